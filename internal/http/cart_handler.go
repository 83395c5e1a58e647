package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pokopini/storefront/internal/domain"
	"github.com/pokopini/storefront/internal/service"
)

type CartHandler struct {
	cart *service.CartSynchronizer
}

func NewCartHandler(cart *service.CartSynchronizer) *CartHandler {
	return &CartHandler{cart: cart}
}

type cartItemDTO struct {
	ID          int64  `json:"id"`
	Source      string `json:"source"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	UnitPrice   *int64 `json:"unit_price,omitempty"`
	Quantity    int    `json:"quantity"`
}

type cartDTO struct {
	Items          []cartItemDTO `json:"items"`
	ItemCount      int           `json:"item_count"`
	Subtotal       int64         `json:"subtotal"`
	ShippingMethod string        `json:"shipping_method"`
	ShippingCost   int64         `json:"shipping_cost"`
	FinalTotal     int64         `json:"final_total"`
}

func toCartDTO(cart domain.Cart) cartDTO {
	items := make([]cartItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemDTO{
			ID:          item.ID(),
			Source:      string(item.Source),
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return cartDTO{
		Items:          items,
		ItemCount:      cart.ItemCount(),
		Subtotal:       cart.Subtotal(),
		ShippingMethod: string(cart.ShippingMethod),
		ShippingCost:   cart.ShippingCost(),
		FinalTotal:     cart.FinalTotal(),
	}
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toCartDTO(h.cart.Snapshot()))
}

func (h *CartHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Refresh(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(h.cart.Snapshot()))
}

type addItemDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "product_id must be positive")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := h.cart.Add(r.Context(), req.ProductID, req.Quantity); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCartDTO(h.cart.Snapshot()))
}

type updateQuantityDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req updateQuantityDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.cart.UpdateQuantity(r.Context(), itemID, req.Quantity); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(h.cart.Snapshot()))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.cart.Remove(r.Context(), itemID); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(h.cart.Snapshot()))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(h.cart.Snapshot()))
}

type shippingDTO struct {
	Method string `json:"method"`
}

func (h *CartHandler) SetShipping(w http.ResponseWriter, r *http.Request) {
	var req shippingDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.cart.SetShippingMethod(domain.ShippingMethod(req.Method)); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(h.cart.Snapshot()))
}

func itemIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
}
