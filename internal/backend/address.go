package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pokopini/storefront/internal/domain"
)

// List handles both the plain-array and the paginated {results: [...]}
// response shapes the address endpoint can produce.
func (c *Client) ListAddresses(ctx context.Context) ([]domain.Address, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/auth/addresses/", nil, &raw); err != nil {
		return nil, err
	}

	var addresses []domain.Address
	if err := json.Unmarshal(raw, &addresses); err == nil {
		return addresses, nil
	}
	var page struct {
		Results []domain.Address `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode addresses: %w", err)
	}
	return page.Results, nil
}

func (c *Client) CreateAddress(ctx context.Context, address domain.Address) (*domain.Address, error) {
	var created domain.Address
	if err := c.do(ctx, http.MethodPost, "/auth/addresses/", address, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateAddress(ctx context.Context, address domain.Address) (*domain.Address, error) {
	var updated domain.Address
	path := fmt.Sprintf("/auth/addresses/%d/", address.ID)
	if err := c.do(ctx, http.MethodPut, path, address, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteAddress(ctx context.Context, addressID int64) error {
	path := fmt.Sprintf("/auth/addresses/%d/", addressID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) SetDefaultAddress(ctx context.Context, addressID int64) error {
	path := fmt.Sprintf("/auth/addresses/%d/set-default/", addressID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}
