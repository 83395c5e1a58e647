package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pokopini/storefront/internal/domain"
)

// CreateOrder creates the order for the current cart. The idempotency key
// protects against double-creation when a confirm click is repeated after a
// network failure.
func (c *Client) CreateOrder(ctx context.Context, addressID int64, method domain.ShippingMethod, idempotencyKey string) (*domain.Order, error) {
	body := map[string]interface{}{
		"address_id":      addressID,
		"shipping_method": method,
	}
	headers := map[string]string{"Idempotency-Key": idempotencyKey}

	var raw json.RawMessage
	if err := c.doHeaders(ctx, http.MethodPost, "/orders/orders/", headers, body, &raw); err != nil {
		return nil, err
	}

	// The endpoint answers either {order: {...}} or the bare order.
	var wrapper struct {
		Order *domain.Order `json:"order"`
	}
	order := &domain.Order{}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Order != nil {
		order = wrapper.Order
	} else if err := json.Unmarshal(raw, order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if order.ID == 0 {
		return nil, fmt.Errorf("order response missing order id")
	}
	return order, nil
}

func (c *Client) CreatePaymentToken(ctx context.Context, orderID int64) (*domain.PaymentToken, error) {
	var token domain.PaymentToken
	path := fmt.Sprintf("/orders/orders/%d/payment-token/", orderID)
	if err := c.do(ctx, http.MethodPost, path, nil, &token); err != nil {
		return nil, err
	}
	if token.PaymentURL == "" {
		return nil, fmt.Errorf("payment token response missing payment url")
	}
	return &token, nil
}

// ResolveCallback turns the gateway's return parameters into a definitive
// outcome. An absent order id means the payment did not complete.
func (c *Client) ResolveCallback(ctx context.Context, token, refID, status string) (*domain.CallbackResult, error) {
	body := map[string]string{
		"token":  token,
		"ref_id": refID,
		"status": status,
	}
	var result domain.CallbackResult
	if err := c.do(ctx, http.MethodPost, "/orders/orders/payment-callback/", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
