package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pokopini/storefront/internal/apierr"
	"github.com/pokopini/storefront/internal/domain"
)

type ErrorResponse struct {
	Error   string              `json:"error"`
	Status  int                 `json:"status,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	// The status line is already written; nothing useful can be sent on an
	// encode failure.
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Status: status})
}

// handleServiceError maps normalized errors onto HTTP responses.
func handleServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrIllegalStageTransition) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	apiErr, ok := apierr.As(err)
	if !ok {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := apiErr.Status
	switch {
	case apiErr.NetworkError:
		status = http.StatusBadGateway
	case status == 0:
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, ErrorResponse{
		Error:   apiErr.Message,
		Status:  status,
		Details: apiErr.Details,
	})
}
