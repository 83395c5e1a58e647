package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pokopini/storefront/internal/apierr"
	"github.com/pokopini/storefront/internal/domain"
	"github.com/pokopini/storefront/internal/platform/logger"
)

// AddressAPI is the address service surface consumed, not owned, by checkout.
type AddressAPI interface {
	ListAddresses(ctx context.Context) ([]domain.Address, error)
	CreateAddress(ctx context.Context, address domain.Address) (*domain.Address, error)
	UpdateAddress(ctx context.Context, address domain.Address) (*domain.Address, error)
	DeleteAddress(ctx context.Context, addressID int64) error
	SetDefaultAddress(ctx context.Context, addressID int64) error
}

type OrderAPI interface {
	CreateOrder(ctx context.Context, addressID int64, method domain.ShippingMethod, idempotencyKey string) (*domain.Order, error)
	CreatePaymentToken(ctx context.Context, orderID int64) (*domain.PaymentToken, error)
	ResolveCallback(ctx context.Context, token, refID, status string) (*domain.CallbackResult, error)
}

// CartSource is the cart synchronizer surface checkout reads from.
type CartSource interface {
	Snapshot() domain.Cart
	SetShippingMethod(method domain.ShippingMethod) error
	Clear(ctx context.Context) error
}

// CallbackOutcome is the reconciled end of a checkout: the terminal stage and
// where to send the user.
type CallbackOutcome struct {
	Stage      domain.CheckoutStage
	OrderID    int64
	RedirectTo string
}

// CheckoutOrchestrator drives address selection through order creation,
// payment hand-off and callback reconciliation. It resolves no errors
// itself: every failure is surfaced with the step that failed, and nothing
// payment-adjacent is ever retried automatically.
type CheckoutOrchestrator struct {
	addresses AddressAPI
	orders    OrderAPI
	cart      CartSource
	session   SessionInfo
	log       *logger.Logger

	mu                sync.Mutex
	stage             domain.CheckoutStage
	selectedAddressID int64
	orderID           int64
	idempotencyKey    string
	// one-shot guard: reconciled outcomes keyed by callback token
	reconciled map[string]CallbackOutcome
	// collapses concurrent callbacks for the same token into one resolution
	cbGroup singleflight.Group
}

func NewCheckoutOrchestrator(addresses AddressAPI, orders OrderAPI, cart CartSource, session SessionInfo, log *logger.Logger) *CheckoutOrchestrator {
	return &CheckoutOrchestrator{
		addresses:      addresses,
		orders:         orders,
		cart:           cart,
		session:        session,
		log:            log,
		stage:          domain.StageAddressSelection,
		idempotencyKey: uuid.NewString(),
		reconciled:     make(map[string]CallbackOutcome),
	}
}

func (o *CheckoutOrchestrator) Stage() domain.CheckoutStage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

func (o *CheckoutOrchestrator) SelectedAddressID() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selectedAddressID
}

// OrderID is non-zero once an order has been created, including when the
// payment hand-off afterwards failed.
func (o *CheckoutOrchestrator) OrderID() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.orderID
}

func (o *CheckoutOrchestrator) requireAuth() error {
	if !o.session.IsAuthenticated() {
		return apierr.Unauthorized("checkout requires an authenticated session")
	}
	return nil
}

// Address side-operations: they proxy the address service and never advance
// the stage.

func (o *CheckoutOrchestrator) ListAddresses(ctx context.Context) ([]domain.Address, error) {
	if err := o.requireAuth(); err != nil {
		return nil, err
	}
	return o.addresses.ListAddresses(ctx)
}

func (o *CheckoutOrchestrator) CreateAddress(ctx context.Context, address domain.Address) (*domain.Address, error) {
	if err := o.requireAuth(); err != nil {
		return nil, err
	}
	created, err := o.addresses.CreateAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	// A freshly created address becomes the selection, as on the checkout page.
	o.mu.Lock()
	o.selectedAddressID = created.ID
	o.mu.Unlock()
	return created, nil
}

func (o *CheckoutOrchestrator) UpdateAddress(ctx context.Context, address domain.Address) (*domain.Address, error) {
	if err := o.requireAuth(); err != nil {
		return nil, err
	}
	return o.addresses.UpdateAddress(ctx, address)
}

func (o *CheckoutOrchestrator) DeleteAddress(ctx context.Context, addressID int64) error {
	if err := o.requireAuth(); err != nil {
		return err
	}
	if err := o.addresses.DeleteAddress(ctx, addressID); err != nil {
		return err
	}
	o.mu.Lock()
	if o.selectedAddressID == addressID {
		o.selectedAddressID = 0
	}
	o.mu.Unlock()
	return nil
}

func (o *CheckoutOrchestrator) SetDefaultAddress(ctx context.Context, addressID int64) error {
	if err := o.requireAuth(); err != nil {
		return err
	}
	return o.addresses.SetDefaultAddress(ctx, addressID)
}

func (o *CheckoutOrchestrator) SelectAddress(addressID int64) error {
	if addressID <= 0 {
		return apierr.Validation("invalid address id")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stage != domain.StageAddressSelection {
		return domain.ErrIllegalStageTransition
	}
	o.selectedAddressID = addressID
	return nil
}

// ProceedToConfirmation advances to the read-only summary view. Refused
// without a selected address or with an empty cart.
func (o *CheckoutOrchestrator) ProceedToConfirmation() error {
	if err := o.requireAuth(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !domain.CanTransitionTo(o.stage, domain.StageConfirmation) {
		return domain.ErrIllegalStageTransition
	}
	if o.selectedAddressID == 0 {
		return apierr.Validation("select a delivery address first")
	}
	if o.cart.Snapshot().IsEmpty() {
		return apierr.Validation("cart is empty")
	}
	o.stage = domain.StageConfirmation
	return nil
}

// Reset starts a fresh checkout attempt once the current one has reached a
// terminal outcome. The selection, order id and idempotency key belong to the
// finished attempt and are discarded; recorded callback outcomes are kept so a
// late gateway retry still resolves to what already happened.
func (o *CheckoutOrchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.stage.IsTerminal() {
		return domain.ErrIllegalStageTransition
	}
	o.stage = domain.StageAddressSelection
	o.selectedAddressID = 0
	o.orderID = 0
	o.idempotencyKey = uuid.NewString()
	return nil
}

// BackToAddressSelection is the explicit user navigation backwards.
func (o *CheckoutOrchestrator) BackToAddressSelection() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !domain.CanTransitionTo(o.stage, domain.StageAddressSelection) {
		return domain.ErrIllegalStageTransition
	}
	o.stage = domain.StageAddressSelection
	return nil
}

// Summary is the confirmation view's snapshot: cart, totals, selection.
func (o *CheckoutOrchestrator) Summary() domain.Cart {
	return o.cart.Snapshot()
}

// Submit creates the order, obtains the payment token, clears the cart and
// returns the gateway hand-off. Failure before the order exists rolls back to
// confirmation; failure after leaves the order id in place so a re-submit
// goes straight to payment setup instead of creating a second order.
func (o *CheckoutOrchestrator) Submit(ctx context.Context) (*domain.PaymentToken, error) {
	if err := o.requireAuth(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if !domain.CanTransitionTo(o.stage, domain.StageOrderSubmitting) {
		o.mu.Unlock()
		return nil, domain.ErrIllegalStageTransition
	}
	o.stage = domain.StageOrderSubmitting
	addressID := o.selectedAddressID
	orderID := o.orderID
	idempotencyKey := o.idempotencyKey
	o.mu.Unlock()

	snapshot := o.cart.Snapshot()
	if snapshot.IsEmpty() {
		o.rollbackToConfirmation()
		return nil, apierr.Validation("cart is empty")
	}

	if orderID == 0 {
		order, err := o.orders.CreateOrder(ctx, addressID, snapshot.ShippingMethod, idempotencyKey)
		if err != nil {
			o.rollbackToConfirmation()
			return nil, fmt.Errorf("order was not created: %w", err)
		}
		orderID = order.ID
		o.mu.Lock()
		o.orderID = orderID
		o.mu.Unlock()
		o.log.Info("order created", "order_id", orderID, "final_total", snapshot.FinalTotal())
	}

	token, err := o.orders.CreatePaymentToken(ctx, orderID)
	if err != nil {
		o.rollbackToConfirmation()
		return nil, fmt.Errorf("order %d created but payment setup failed: %w", orderID, err)
	}

	// Clear before navigating away so a gateway cancel does not bring the
	// user back to a stale cart. A failed clear is not worth losing the
	// payment hand-off over.
	if err := o.cart.Clear(ctx); err != nil {
		o.log.Warn("failed to clear cart before payment redirect", "order_id", orderID, "error", err)
	}

	o.mu.Lock()
	o.stage = domain.StagePaymentRedirect
	o.mu.Unlock()
	o.log.Info("redirecting to payment gateway", "order_id", orderID)
	return token, nil
}

func (o *CheckoutOrchestrator) rollbackToConfirmation() {
	o.mu.Lock()
	o.stage = domain.StageConfirmation
	o.mu.Unlock()
}

// HandleCallback reconciles the gateway's return. One-shot per token: a
// repeated invocation returns the recorded outcome without a second
// resolution request, and concurrent invocations for the same token share a
// single resolution.
func (o *CheckoutOrchestrator) HandleCallback(ctx context.Context, token, refID, status string) CallbackOutcome {
	if token == "" {
		o.log.Warn("payment callback missing token")
		return o.recordOutcome("", CallbackOutcome{
			Stage:      domain.StageFailed,
			RedirectTo: "/",
		})
	}

	outcome, _, _ := o.cbGroup.Do(token, func() (interface{}, error) {
		return o.reconcile(ctx, token, refID, status), nil
	})
	return outcome.(CallbackOutcome)
}

func (o *CheckoutOrchestrator) reconcile(ctx context.Context, token, refID, status string) CallbackOutcome {
	o.mu.Lock()
	if outcome, done := o.reconciled[token]; done {
		o.mu.Unlock()
		return outcome
	}
	o.stage = domain.StageCallbackReconciling
	o.mu.Unlock()

	result, err := o.orders.ResolveCallback(ctx, token, refID, status)
	if err != nil || result.OrderID == 0 {
		if err != nil {
			o.log.Error("payment callback resolution failed", "token", token, "error", err)
		} else {
			o.log.Warn("payment was not completed", "token", token)
		}
		return o.recordOutcome(token, CallbackOutcome{
			Stage:      domain.StageFailed,
			RedirectTo: "/",
		})
	}

	o.log.Info("payment reconciled", "token", token, "order_id", result.OrderID)
	return o.recordOutcome(token, CallbackOutcome{
		Stage:      domain.StageSucceeded,
		OrderID:    result.OrderID,
		RedirectTo: fmt.Sprintf("/orders/%d", result.OrderID),
	})
}

func (o *CheckoutOrchestrator) recordOutcome(token string, outcome CallbackOutcome) CallbackOutcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stage = outcome.Stage
	if token != "" {
		o.reconciled[token] = outcome
	}
	return outcome
}
