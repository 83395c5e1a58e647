package service

import (
	"context"
	"sync"
	"time"

	"github.com/pokopini/storefront/internal/domain"
)

// fakeSession implements SessionInfo for testing
type fakeSession struct {
	authenticated bool
}

func (f *fakeSession) IsAuthenticated() bool {
	return f.authenticated
}

// mockAuthAPI implements AuthAPI for testing
type mockAuthAPI struct {
	Payload     *domain.AuthPayload
	Err         error
	UpdatedUser *domain.User
	ProfileErr  error

	LoginCalls    int
	RegisterCalls int
}

func (m *mockAuthAPI) Login(_ context.Context, _ domain.Credentials) (*domain.AuthPayload, error) {
	m.LoginCalls++
	return m.Payload, m.Err
}

func (m *mockAuthAPI) Register(_ context.Context, _ domain.Registration) (*domain.AuthPayload, error) {
	m.RegisterCalls++
	return m.Payload, m.Err
}

func (m *mockAuthAPI) GetProfile(_ context.Context) (*domain.User, error) {
	return m.UpdatedUser, m.ProfileErr
}

func (m *mockAuthAPI) UpdateProfile(_ context.Context, _ domain.User) (*domain.User, error) {
	return m.UpdatedUser, m.ProfileErr
}

func (m *mockAuthAPI) ChangePassword(_ context.Context, _, _ string) error {
	return m.Err
}

func (m *mockAuthAPI) ResetPassword(_ context.Context, _ string) error {
	return m.Err
}

// cartListenerSpy records session lifecycle notifications
type cartListenerSpy struct {
	LoginCalls  int
	LogoutCalls int
}

func (s *cartListenerSpy) HandleLogin(_ context.Context)  { s.LoginCalls++ }
func (s *cartListenerSpy) HandleLogout(_ context.Context) { s.LogoutCalls++ }

// mockCartAPI implements CartAPI for testing
type mockCartAPI struct {
	mu sync.Mutex

	Items  []domain.CartItem
	GetErr error
	Err    error

	// AddFunc overrides AddItem when set (used by merge tests)
	AddFunc func(productID int64, quantity int) ([]domain.CartItem, error)

	GetCalls    int
	AddCalls    int
	UpdateCalls int
	RemoveCalls int
	ClearCalls  int
}

func (m *mockCartAPI) networkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GetCalls + m.AddCalls + m.UpdateCalls + m.RemoveCalls + m.ClearCalls
}

func (m *mockCartAPI) GetCart(_ context.Context) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Items, m.Err
}

func (m *mockCartAPI) AddItem(_ context.Context, productID int64, quantity int) ([]domain.CartItem, error) {
	m.mu.Lock()
	m.AddCalls++
	addFunc := m.AddFunc
	m.mu.Unlock()
	if addFunc != nil {
		return addFunc(productID, quantity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Items, m.Err
}

func (m *mockCartAPI) UpdateItem(_ context.Context, _ int64, _ int) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	return m.Items, m.Err
}

func (m *mockCartAPI) RemoveItem(_ context.Context, _ int64) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemoveCalls++
	return m.Items, m.Err
}

func (m *mockCartAPI) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	return m.Err
}

// mockAddressAPI implements AddressAPI for testing
type mockAddressAPI struct {
	Addresses []domain.Address
	Created   *domain.Address
	Err       error

	DeleteCalls int
}

func (m *mockAddressAPI) ListAddresses(_ context.Context) ([]domain.Address, error) {
	return m.Addresses, m.Err
}

func (m *mockAddressAPI) CreateAddress(_ context.Context, _ domain.Address) (*domain.Address, error) {
	return m.Created, m.Err
}

func (m *mockAddressAPI) UpdateAddress(_ context.Context, address domain.Address) (*domain.Address, error) {
	return &address, m.Err
}

func (m *mockAddressAPI) DeleteAddress(_ context.Context, _ int64) error {
	m.DeleteCalls++
	return m.Err
}

func (m *mockAddressAPI) SetDefaultAddress(_ context.Context, _ int64) error {
	return m.Err
}

// mockOrderAPI implements OrderAPI for testing
type mockOrderAPI struct {
	mu sync.Mutex

	Order    *domain.Order
	OrderErr error

	Token    *domain.PaymentToken
	TokenErr error

	Callback    *domain.CallbackResult
	CallbackErr error
	// simulates resolution latency so concurrent callbacks overlap
	CallbackDelay time.Duration

	CreateOrderCalls int
	TokenCalls       int
	CallbackCalls    int
	IdempotencyKeys  []string
}

func (m *mockOrderAPI) CreateOrder(_ context.Context, _ int64, _ domain.ShippingMethod, idempotencyKey string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateOrderCalls++
	m.IdempotencyKeys = append(m.IdempotencyKeys, idempotencyKey)
	return m.Order, m.OrderErr
}

func (m *mockOrderAPI) CreatePaymentToken(_ context.Context, _ int64) (*domain.PaymentToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TokenCalls++
	return m.Token, m.TokenErr
}

func (m *mockOrderAPI) ResolveCallback(_ context.Context, _, _, _ string) (*domain.CallbackResult, error) {
	if m.CallbackDelay > 0 {
		time.Sleep(m.CallbackDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallbackCalls++
	return m.Callback, m.CallbackErr
}

// mockCartSource implements CartSource for testing
type mockCartSource struct {
	Cart       domain.Cart
	ClearErr   error
	ClearCalls int
}

func (m *mockCartSource) Snapshot() domain.Cart {
	return m.Cart
}

func (m *mockCartSource) SetShippingMethod(method domain.ShippingMethod) error {
	m.Cart.ShippingMethod = method
	return nil
}

func (m *mockCartSource) Clear(_ context.Context) error {
	m.ClearCalls++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Cart.Items = nil
	return nil
}
