// Package backend is the REST client for the remote store API. It owns the
// transparent token-refresh policy: an authenticated request that comes back
// 401/403 is retried exactly once after a refresh; a failed refresh tears the
// session down through the auth-failure handler.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/pokopini/storefront/internal/apierr"
	"github.com/pokopini/storefront/internal/platform/logger"
	"github.com/pokopini/storefront/internal/storage"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	store   storage.Store
	log     *logger.Logger
	refresh singleflight.Group

	// invoked when a refresh fails or a refreshed token is still rejected
	onAuthFailure func(context.Context)
}

func New(cfg Config, store storage.Store, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		store: store,
		log:   log,
	}
}

// SetAuthFailureHandler wires the session teardown cascade. Set once at
// startup, before any request is issued.
func (c *Client) SetAuthFailureHandler(fn func(context.Context)) {
	c.onAuthFailure = fn
}

// do issues an authenticated request with the refresh-retry-once policy.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.doHeaders(ctx, method, path, nil, body, out)
}

func (c *Client) doHeaders(ctx context.Context, method, path string, headers map[string]string, body, out interface{}) error {
	err := c.send(ctx, method, path, headers, body, out)
	if err == nil || !apierr.IsAuth(err) {
		return err
	}

	if refreshErr := c.refreshAccessToken(ctx); refreshErr != nil {
		c.log.Warn("token refresh failed, tearing down session", "path", path, "error", refreshErr)
		if c.onAuthFailure != nil {
			c.onAuthFailure(ctx)
		}
		return err // the caller gets the original failure
	}

	retryErr := c.send(ctx, method, path, headers, body, out)
	if retryErr != nil && apierr.IsAuth(retryErr) {
		// Fresh token, still rejected. No second retry; the session is gone.
		c.log.Warn("request rejected after token refresh, tearing down session", "path", path)
		if c.onAuthFailure != nil {
			c.onAuthFailure(ctx)
		}
	}
	return retryErr
}

// refreshAccessToken exchanges the stored refresh token for a new access
// token. Concurrent callers share one round trip; the refresh call itself is
// never retried.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	_, err, _ := c.refresh.Do("refresh", func() (interface{}, error) {
		refreshToken, err := c.store.Get(ctx, storage.KeyRefreshToken)
		if err != nil || len(refreshToken) == 0 {
			return nil, apierr.Unauthorized("no refresh token")
		}

		var resp struct {
			Access string `json:"access"`
		}
		reqBody := map[string]string{"refresh": string(refreshToken)}
		if err := c.send(ctx, http.MethodPost, "/auth/refresh/", nil, reqBody, &resp); err != nil {
			return nil, err
		}
		if resp.Access == "" {
			return nil, apierr.Unauthorized("refresh response missing access token")
		}
		if err := c.store.Set(ctx, storage.KeyAccessToken, []byte(resp.Access)); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
		return resp.Access, nil
	})
	return err
}

// send performs a single attempt with no retry policy.
func (c *Client) send(ctx context.Context, method, path string, headers map[string]string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if token, getErr := c.store.Get(ctx, storage.KeyAccessToken); getErr == nil && len(token) > 0 {
		req.Header.Set("Authorization", "Bearer "+string(token))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apierr.FromTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierr.FromTransport(err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	return decodeError(resp.StatusCode, data)
}

// decodeError normalizes the backend's error payloads, which use any of
// error/message/detail plus per-field details.
func decodeError(status int, data []byte) *apierr.Error {
	var payload struct {
		Error   string              `json:"error"`
		Message string              `json:"message"`
		Detail  string              `json:"detail"`
		Details map[string][]string `json:"details"`
	}
	_ = json.Unmarshal(data, &payload)

	message := payload.Error
	if message == "" {
		message = payload.Message
	}
	if message == "" {
		message = payload.Detail
	}
	return apierr.FromStatus(status, message, payload.Details)
}
