package backend

import (
	"context"
	"net/http"

	"github.com/pokopini/storefront/internal/domain"
)

type authResponseDTO struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	User    domain.User `json:"user"`
}

func (d authResponseDTO) toPayload() *domain.AuthPayload {
	return &domain.AuthPayload{
		AccessToken:  d.Access,
		RefreshToken: d.Refresh,
		User:         d.User,
	}
}

// Login and Register go through send directly: they are unauthenticated by
// nature, so a 401 here is a credential problem, not a stale token.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthPayload, error) {
	var resp authResponseDTO
	if err := c.send(ctx, http.MethodPost, "/auth/login/", nil, creds, &resp); err != nil {
		return nil, err
	}
	return resp.toPayload(), nil
}

func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.AuthPayload, error) {
	var resp authResponseDTO
	if err := c.send(ctx, http.MethodPost, "/auth/register/", nil, reg, &resp); err != nil {
		return nil, err
	}
	return resp.toPayload(), nil
}

func (c *Client) GetProfile(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/profile/", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, user domain.User) (*domain.User, error) {
	var updated domain.User
	if err := c.do(ctx, http.MethodPut, "/auth/profile/", user, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	}
	return c.do(ctx, http.MethodPost, "/auth/change-password/", body, nil)
}

func (c *Client) ResetPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.send(ctx, http.MethodPost, "/auth/reset-password/", nil, body, nil)
}
