package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pokopini/storefront/internal/domain"
	"github.com/pokopini/storefront/internal/platform/logger"
	"github.com/pokopini/storefront/internal/storage"
)

// AuthAPI defines what the session manager needs from the backend.
type AuthAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthPayload, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.AuthPayload, error)
	GetProfile(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, user domain.User) (*domain.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	ResetPassword(ctx context.Context, email string) error
}

// CartListener receives session lifecycle transitions. Implemented by the
// cart synchronizer.
type CartListener interface {
	HandleLogin(ctx context.Context)
	HandleLogout(ctx context.Context)
}

type SessionManager struct {
	api   AuthAPI
	store storage.Store
	log   *logger.Logger
	cart  CartListener

	mu      sync.RWMutex
	session domain.Session
}

func NewSessionManager(api AuthAPI, store storage.Store, log *logger.Logger) *SessionManager {
	return &SessionManager{
		api:     api,
		store:   store,
		log:     log,
		session: domain.Session{State: domain.SessionUninitialized},
	}
}

// AttachCart wires the cart synchronizer. Set once at startup.
func (m *SessionManager) AttachCart(cart CartListener) {
	m.cart = cart
}

// Restore rebuilds the session from persisted state without contacting the
// server. Anything unparseable clears the persisted state and lands in
// anonymous; restore itself never fails.
func (m *SessionManager) Restore(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.State = domain.SessionRestoring

	accessToken, errAccess := m.store.Get(ctx, storage.KeyAccessToken)
	userData, errUser := m.store.Get(ctx, storage.KeyUser)
	if errAccess != nil || errUser != nil || len(accessToken) == 0 {
		m.teardownLocked(ctx)
		return
	}

	var user domain.User
	if err := json.Unmarshal(userData, &user); err != nil || user.ID == 0 {
		m.log.Warn("persisted user is corrupt, clearing session", "error", err)
		m.teardownLocked(ctx)
		return
	}

	refreshToken, _ := m.store.Get(ctx, storage.KeyRefreshToken)
	if len(refreshToken) == 0 {
		// A session without a refresh token cannot outlive its access token
		// and would never satisfy IsAuthenticated; treat it as not signed in.
		m.log.Warn("persisted session has no refresh token, clearing")
		m.teardownLocked(ctx)
		return
	}
	if expired, err := tokenExpired(string(accessToken)); err != nil {
		m.log.Warn("persisted access token is corrupt, clearing session", "error", err)
		m.teardownLocked(ctx)
		return
	} else if expired {
		// Fine to keep: the transport refreshes on first use.
		m.log.Debug("persisted access token expired, will refresh on first request")
	}

	m.session = domain.Session{
		AccessToken:  string(accessToken),
		RefreshToken: string(refreshToken),
		User:         &user,
		State:        domain.SessionAuthenticated,
	}
	m.log.Info("session restored", "user_id", user.ID)
}

func (m *SessionManager) Login(ctx context.Context, creds domain.Credentials) error {
	payload, err := m.api.Login(ctx, creds)
	if err != nil {
		return err
	}
	return m.establish(ctx, payload)
}

func (m *SessionManager) Register(ctx context.Context, reg domain.Registration) error {
	payload, err := m.api.Register(ctx, reg)
	if err != nil {
		return err
	}
	return m.establish(ctx, payload)
}

// establish persists the authenticated session and kicks off the cart merge.
// Merge failures never fail the login.
func (m *SessionManager) establish(ctx context.Context, payload *domain.AuthPayload) error {
	if err := m.persist(ctx, payload); err != nil {
		return err
	}

	m.mu.Lock()
	user := payload.User
	m.session = domain.Session{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		User:         &user,
		State:        domain.SessionAuthenticated,
	}
	m.mu.Unlock()

	m.log.Info("session established", "user_id", payload.User.ID)
	if m.cart != nil {
		m.cart.HandleLogin(ctx)
	}
	return nil
}

func (m *SessionManager) persist(ctx context.Context, payload *domain.AuthPayload) error {
	userData, err := json.Marshal(payload.User)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, storage.KeyAccessToken, []byte(payload.AccessToken)); err != nil {
		return err
	}
	if err := m.store.Set(ctx, storage.KeyRefreshToken, []byte(payload.RefreshToken)); err != nil {
		return err
	}
	return m.store.Set(ctx, storage.KeyUser, userData)
}

// Logout discards local session state only; the remote cart is untouched.
// Always succeeds locally.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.teardownLocked(ctx)
	m.mu.Unlock()

	if m.cart != nil {
		m.cart.HandleLogout(ctx)
	}
	m.log.Info("session cleared")
}

// ForceLogout is the teardown hook for the transport's failed-refresh path.
func (m *SessionManager) ForceLogout(ctx context.Context) {
	m.Logout(ctx)
}

func (m *SessionManager) teardownLocked(ctx context.Context) {
	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUser} {
		if err := m.store.Delete(ctx, key); err != nil {
			m.log.Warn("failed to clear persisted session key", "key", key, "error", err)
		}
	}
	m.session = domain.Session{State: domain.SessionAnonymous}
}

func (m *SessionManager) UpdateProfile(ctx context.Context, user domain.User) error {
	updated, err := m.api.UpdateProfile(ctx, user)
	if err != nil {
		return err
	}
	m.replaceUser(ctx, updated)
	return nil
}

// RefreshProfile re-fetches the profile and replaces the cached user.
func (m *SessionManager) RefreshProfile(ctx context.Context) error {
	user, err := m.api.GetProfile(ctx)
	if err != nil {
		return err
	}
	m.replaceUser(ctx, user)
	return nil
}

func (m *SessionManager) replaceUser(ctx context.Context, user *domain.User) {
	m.mu.Lock()
	m.session.User = user
	m.mu.Unlock()

	if userData, err := json.Marshal(user); err == nil {
		if err := m.store.Set(ctx, storage.KeyUser, userData); err != nil {
			m.log.Warn("failed to persist updated user", "error", err)
		}
	}
}

func (m *SessionManager) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return m.api.ChangePassword(ctx, oldPassword, newPassword)
}

func (m *SessionManager) ResetPassword(ctx context.Context, email string) error {
	return m.api.ResetPassword(ctx, email)
}

// Current returns a copy of the session.
func (m *SessionManager) Current() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.IsAuthenticated()
}

// tokenExpired inspects the exp claim without verifying the signature; the
// client holds no signing key, the server is the verifier.
func tokenExpired(token string) (bool, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false, err
	}
	if exp == nil {
		return false, nil
	}
	return exp.Before(time.Now()), nil
}
