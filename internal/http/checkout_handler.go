package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pokopini/storefront/internal/domain"
	"github.com/pokopini/storefront/internal/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutOrchestrator
}

func NewCheckoutHandler(checkout *service.CheckoutOrchestrator) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

func (h *CheckoutHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.checkout.ListAddresses(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, addresses)
}

func (h *CheckoutHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var address domain.Address
	if err := json.NewDecoder(r.Body).Decode(&address); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := h.checkout.CreateAddress(r.Context(), address)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *CheckoutHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	addressID, err := addressIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid address id")
		return
	}
	var address domain.Address
	if err := json.NewDecoder(r.Body).Decode(&address); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	address.ID = addressID

	updated, err := h.checkout.UpdateAddress(r.Context(), address)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *CheckoutHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	addressID, err := addressIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid address id")
		return
	}

	if err := h.checkout.DeleteAddress(r.Context(), addressID); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *CheckoutHandler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	addressID, err := addressIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid address id")
		return
	}

	if err := h.checkout.SetDefaultAddress(r.Context(), addressID); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

type selectAddressDTO struct {
	AddressID int64 `json:"address_id"`
}

func (h *CheckoutHandler) SelectAddress(w http.ResponseWriter, r *http.Request) {
	var req selectAddressDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.checkout.SelectAddress(req.AddressID); err != nil {
		handleServiceError(w, err)
		return
	}
	h.respondState(w, http.StatusOK)
}

func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.ProceedToConfirmation(); err != nil {
		handleServiceError(w, err)
		return
	}
	h.respondState(w, http.StatusOK)
}

func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.BackToAddressSelection(); err != nil {
		handleServiceError(w, err)
		return
	}
	h.respondState(w, http.StatusOK)
}

type submitResponseDTO struct {
	Stage      string `json:"stage"`
	OrderID    int64  `json:"order_id"`
	PaymentURL string `json:"payment_url"`
}

func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	token, err := h.checkout.Submit(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, submitResponseDTO{
		Stage:      h.checkout.Stage().String(),
		OrderID:    h.checkout.OrderID(),
		PaymentURL: token.PaymentURL,
	})
}

// Reset starts a new checkout attempt after a success or failure outcome.
func (h *CheckoutHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.Reset(); err != nil {
		handleServiceError(w, err)
		return
	}
	h.respondState(w, http.StatusOK)
}

// Callback is where the payment gateway sends the shopper back. The outcome
// is always a redirect: order confirmation on success, home on failure.
func (h *CheckoutHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	outcome := h.checkout.HandleCallback(r.Context(),
		query.Get("token"), query.Get("ref_id"), query.Get("status"))
	http.Redirect(w, r, outcome.RedirectTo, http.StatusSeeOther)
}

type checkoutStateDTO struct {
	Stage             string `json:"stage"`
	SelectedAddressID int64  `json:"selected_address_id,omitempty"`
	OrderID           int64  `json:"order_id,omitempty"`
}

func (h *CheckoutHandler) State(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, http.StatusOK)
}

func (h *CheckoutHandler) respondState(w http.ResponseWriter, status int) {
	respondJSON(w, status, checkoutStateDTO{
		Stage:             h.checkout.Stage().String(),
		SelectedAddressID: h.checkout.SelectedAddressID(),
		OrderID:           h.checkout.OrderID(),
	})
}

func addressIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "addressID"), 10, 64)
}
