package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pokopini/storefront/internal/apierr"
	"github.com/pokopini/storefront/internal/domain"
	"github.com/pokopini/storefront/internal/platform/logger"
	"github.com/pokopini/storefront/internal/storage"
)

// CartAPI defines what the synchronizer needs from the remote cart endpoint.
// Every mutation returns the full updated item list.
type CartAPI interface {
	GetCart(ctx context.Context) ([]domain.CartItem, error)
	AddItem(ctx context.Context, productID int64, quantity int) ([]domain.CartItem, error)
	UpdateItem(ctx context.Context, itemID int64, quantity int) ([]domain.CartItem, error)
	RemoveItem(ctx context.Context, itemID int64) ([]domain.CartItem, error)
	Clear(ctx context.Context) error
}

// SessionInfo is the session manager surface the synchronizer depends on.
type SessionInfo interface {
	IsAuthenticated() bool
}

// CartSynchronizer maintains the one authoritative cart view across guest and
// authenticated modes. State updates only after the authoritative write
// (remote response or storage write) succeeds; failures keep the prior state.
type CartSynchronizer struct {
	api     CartAPI
	session SessionInfo
	store   storage.Store
	log     *logger.Logger

	mu       sync.RWMutex
	items    []domain.CartItem
	shipping domain.ShippingMethod
	// remote cart endpoint answered 404; the guest list is the working set
	// for the rest of this session
	degraded bool
}

func NewCartSynchronizer(api CartAPI, session SessionInfo, store storage.Store, log *logger.Logger) *CartSynchronizer {
	return &CartSynchronizer{
		api:      api,
		session:  session,
		store:    store,
		log:      log,
		shipping: domain.ShippingStandard,
	}
}

// remoteActive reports whether mutations should hit the remote cart API.
func (c *CartSynchronizer) remoteActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.IsAuthenticated() && !c.degraded
}

// Refresh reloads the cart from its authoritative source. A 404 from the
// remote endpoint switches this session to the guest working set instead of
// failing; every other error propagates untouched.
func (c *CartSynchronizer) Refresh(ctx context.Context) error {
	if c.remoteActive() {
		items, err := c.api.GetCart(ctx)
		if err != nil {
			if apierr.IsNotFound(err) {
				c.log.Warn("remote cart endpoint not found, falling back to guest cart")
				c.mu.Lock()
				c.degraded = true
				c.mu.Unlock()
				return c.loadGuest(ctx)
			}
			return err
		}
		c.setItems(items)
		return nil
	}
	return c.loadGuest(ctx)
}

func (c *CartSynchronizer) Add(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		return apierr.Validation("quantity must be at least 1")
	}

	if c.remoteActive() {
		items, err := c.api.AddItem(ctx, productID, quantity)
		if err != nil {
			return err
		}
		c.setItems(items)
		return nil
	}

	lines, err := c.guestLines(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, domain.GuestLine{ProductID: productID, Quantity: quantity})
	}
	return c.saveGuestLines(ctx, lines)
}

// UpdateQuantity sets an item's quantity. The item id is the line-item id in
// authenticated mode and the product id in guest mode.
func (c *CartSynchronizer) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return apierr.Validation("quantity must be at least 1")
	}

	if c.remoteActive() {
		items, err := c.api.UpdateItem(ctx, itemID, quantity)
		if err != nil {
			return err
		}
		c.setItems(items)
		return nil
	}

	lines, err := c.guestLines(ctx)
	if err != nil {
		return err
	}
	for i := range lines {
		if lines[i].ProductID == itemID {
			lines[i].Quantity = quantity
			return c.saveGuestLines(ctx, lines)
		}
	}
	return apierr.Validation("product not found in cart")
}

func (c *CartSynchronizer) Remove(ctx context.Context, itemID int64) error {
	if c.remoteActive() {
		items, err := c.api.RemoveItem(ctx, itemID)
		if err != nil {
			return err
		}
		c.setItems(items)
		return nil
	}

	lines, err := c.guestLines(ctx)
	if err != nil {
		return err
	}
	filtered := lines[:0]
	for _, line := range lines {
		if line.ProductID != itemID {
			filtered = append(filtered, line)
		}
	}
	return c.saveGuestLines(ctx, filtered)
}

func (c *CartSynchronizer) Clear(ctx context.Context) error {
	if c.remoteActive() {
		if err := c.api.Clear(ctx); err != nil {
			return err
		}
		c.setItems(nil)
		return nil
	}

	if err := c.store.Delete(ctx, storage.KeyGuestCart); err != nil {
		return fmt.Errorf("clear guest cart: %w", err)
	}
	c.setItems(nil)
	return nil
}

// IsInCart resolves product membership under both item representations.
func (c *CartSynchronizer) IsInCart(productID int64) bool {
	_, ok := c.Snapshot().Find(productID)
	return ok
}

func (c *CartSynchronizer) Quantity(productID int64) int {
	item, ok := c.Snapshot().Find(productID)
	if !ok {
		return 0
	}
	return item.Quantity
}

func (c *CartSynchronizer) SetShippingMethod(method domain.ShippingMethod) error {
	if !method.Valid() {
		return apierr.Validation("unknown shipping method")
	}
	c.mu.Lock()
	c.shipping = method
	c.mu.Unlock()
	return nil
}

// Snapshot returns a read-only copy with derived totals.
func (c *CartSynchronizer) Snapshot() domain.Cart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]domain.CartItem, len(c.items))
	copy(items, c.items)
	return domain.Cart{Items: items, ShippingMethod: c.shipping}
}

// HandleLogin runs the one-time guest-to-remote merge, then loads the remote
// cart. Both steps are best-effort; a logged-in session with a partial cart
// beats a failed login.
func (c *CartSynchronizer) HandleLogin(ctx context.Context) {
	c.mu.Lock()
	c.degraded = false
	c.mu.Unlock()

	c.MergeGuestCart(ctx)
	if err := c.Refresh(ctx); err != nil {
		c.log.Warn("failed to load remote cart after login", "error", err)
	}
}

// HandleLogout reverts to guest mode, re-reading whatever guest cart storage
// holds (normally empty). The remote cart is left alone.
func (c *CartSynchronizer) HandleLogout(ctx context.Context) {
	c.mu.Lock()
	c.degraded = false
	c.mu.Unlock()

	if err := c.loadGuest(ctx); err != nil {
		c.log.Warn("failed to reload guest cart after logout", "error", err)
	}
}

// MergeGuestCart drains the guest list into the remote cart with one
// concurrent add per line. The merge is additive and not transactional:
// failures are logged per product and the guest list is cleared regardless.
func (c *CartSynchronizer) MergeGuestCart(ctx context.Context) {
	lines, err := c.guestLines(ctx)
	if err != nil || len(lines) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, line := range lines {
		wg.Add(1)
		go func(line domain.GuestLine) {
			defer wg.Done()
			if _, err := c.api.AddItem(ctx, line.ProductID, line.Quantity); err != nil {
				c.log.Warn("failed to merge guest cart line",
					"product_id", line.ProductID, "quantity", line.Quantity, "error", err)
			}
		}(line)
	}
	wg.Wait()

	if err := c.store.Delete(ctx, storage.KeyGuestCart); err != nil {
		c.log.Warn("failed to clear guest cart after merge", "error", err)
	}
}

// guestLines reads the persisted guest list. Missing or corrupt data
// degrades to an empty list rather than failing.
func (c *CartSynchronizer) guestLines(ctx context.Context) ([]domain.GuestLine, error) {
	data, err := c.store.Get(ctx, storage.KeyGuestCart)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read guest cart: %w", err)
	}

	var lines []domain.GuestLine
	if err := json.Unmarshal(data, &lines); err != nil {
		c.log.Warn("guest cart storage is corrupt, treating as empty", "error", err)
		return nil, nil
	}
	return lines, nil
}

// saveGuestLines is the authoritative write for guest mode; in-memory items
// update only after it succeeds. Lines with quantity below 1 are dropped,
// never stored.
func (c *CartSynchronizer) saveGuestLines(ctx context.Context, lines []domain.GuestLine) error {
	kept := make([]domain.GuestLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity >= 1 {
			kept = append(kept, line)
		}
	}

	data, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("marshal guest cart: %w", err)
	}
	if err := c.store.Set(ctx, storage.KeyGuestCart, data); err != nil {
		return fmt.Errorf("write guest cart: %w", err)
	}

	items := make([]domain.CartItem, 0, len(kept))
	for _, line := range kept {
		items = append(items, domain.NewGuestItem(line.ProductID, line.Quantity))
	}
	c.setItems(items)
	return nil
}

func (c *CartSynchronizer) loadGuest(ctx context.Context) error {
	lines, err := c.guestLines(ctx)
	if err != nil {
		return err
	}
	items := make([]domain.CartItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity >= 1 {
			items = append(items, domain.NewGuestItem(line.ProductID, line.Quantity))
		}
	}
	c.setItems(items)
	return nil
}

func (c *CartSynchronizer) setItems(items []domain.CartItem) {
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}
