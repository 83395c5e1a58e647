package http

import (
	"encoding/json"
	"net/http"

	"github.com/pokopini/storefront/internal/domain"
	"github.com/pokopini/storefront/internal/service"
)

type SessionHandler struct {
	sessions *service.SessionManager
}

func NewSessionHandler(sessions *service.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type sessionDTO struct {
	State           string       `json:"state"`
	IsAuthenticated bool         `json:"is_authenticated"`
	User            *domain.User `json:"user,omitempty"`
}

func toSessionDTO(s domain.Session) sessionDTO {
	return sessionDTO{
		State:           s.State.String(),
		IsAuthenticated: s.IsAuthenticated(),
		User:            s.User,
	}
}

func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toSessionDTO(h.sessions.Current()))
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if creds.Username == "" || creds.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if err := h.sessions.Login(r.Context(), creds); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toSessionDTO(h.sessions.Current()))
}

func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if reg.Username == "" || reg.Email == "" || reg.Password == "" {
		respondError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	if err := h.sessions.Register(r.Context(), reg); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toSessionDTO(h.sessions.Current()))
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	respondJSON(w, http.StatusOK, toSessionDTO(h.sessions.Current()))
}

func (h *SessionHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var user domain.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.sessions.UpdateProfile(r.Context(), user); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toSessionDTO(h.sessions.Current()))
}

type changePasswordDTO struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *SessionHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "old and new passwords are required")
		return
	}

	if err := h.sessions.ChangePassword(r.Context(), req.OldPassword, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (h *SessionHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.sessions.ResetPassword(r.Context(), req.Email); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}
