package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pokopini/storefront/internal/domain"
)

type productDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type cartItemDTO struct {
	ID       int64      `json:"id"`
	Product  productDTO `json:"product"`
	Quantity int        `json:"quantity"`
}

type cartResponseDTO struct {
	Items []cartItemDTO `json:"items"`
}

func (d cartResponseDTO) toItems() []domain.CartItem {
	items := make([]domain.CartItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.NewRemoteItem(
			item.ID, item.Product.ID, item.Product.Name, item.Product.Price, item.Quantity))
	}
	return items
}

// GetCart returns the authenticated cart's full item list.
func (c *Client) GetCart(ctx context.Context) ([]domain.CartItem, error) {
	var resp cartResponseDTO
	if err := c.do(ctx, http.MethodGet, "/orders/cart/", nil, &resp); err != nil {
		return nil, err
	}
	return resp.toItems(), nil
}

func (c *Client) AddItem(ctx context.Context, productID int64, quantity int) ([]domain.CartItem, error) {
	body := map[string]interface{}{
		"product_id": productID,
		"quantity":   quantity,
	}
	var resp cartResponseDTO
	if err := c.do(ctx, http.MethodPost, "/orders/cart/items/", body, &resp); err != nil {
		return nil, err
	}
	return resp.toItems(), nil
}

func (c *Client) UpdateItem(ctx context.Context, itemID int64, quantity int) ([]domain.CartItem, error) {
	body := map[string]interface{}{"quantity": quantity}
	var resp cartResponseDTO
	path := fmt.Sprintf("/orders/cart/items/%d/", itemID)
	if err := c.do(ctx, http.MethodPut, path, body, &resp); err != nil {
		return nil, err
	}
	return resp.toItems(), nil
}

func (c *Client) RemoveItem(ctx context.Context, itemID int64) ([]domain.CartItem, error) {
	var resp cartResponseDTO
	path := fmt.Sprintf("/orders/cart/items/%d/", itemID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toItems(), nil
}

func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/orders/cart/clear/", nil, nil)
}
