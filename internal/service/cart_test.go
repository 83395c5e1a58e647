package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokopini/storefront/internal/apierr"
	"github.com/pokopini/storefront/internal/domain"
	"github.com/pokopini/storefront/internal/platform/logger"
	"github.com/pokopini/storefront/internal/storage"
)

func newGuestSynchronizer(t *testing.T) (*CartSynchronizer, *mockCartAPI, storage.Store) {
	t.Helper()
	api := &mockCartAPI{}
	store := storage.NewMemoryStore()
	cart := NewCartSynchronizer(api, &fakeSession{authenticated: false}, store, logger.NewNop())
	return cart, api, store
}

func newRemoteSynchronizer(t *testing.T) (*CartSynchronizer, *mockCartAPI) {
	t.Helper()
	api := &mockCartAPI{}
	cart := NewCartSynchronizer(api, &fakeSession{authenticated: true}, storage.NewMemoryStore(), logger.NewNop())
	return cart, api
}

func persistedGuestLines(t *testing.T, store storage.Store) []domain.GuestLine {
	t.Helper()
	data, err := store.Get(context.Background(), storage.KeyGuestCart)
	require.NoError(t, err)
	var lines []domain.GuestLine
	require.NoError(t, json.Unmarshal(data, &lines))
	return lines
}

func TestGuestCart_AddAccumulatesQuantity(t *testing.T) {
	cart, api, store := newGuestSynchronizer(t)
	ctx := context.Background()

	require.NoError(t, cart.Add(ctx, 10, 2))
	require.NoError(t, cart.Add(ctx, 10, 1))
	require.NoError(t, cart.Add(ctx, 11, 3))

	assert.Equal(t, 6, cart.Snapshot().ItemCount())
	assert.Equal(t, 3, cart.Quantity(10))
	assert.Equal(t, 3, cart.Quantity(11))
	assert.Equal(t, 0, api.networkCalls())

	lines := persistedGuestLines(t, store)
	require.Len(t, lines, 2)
	assert.Equal(t, domain.GuestLine{ProductID: 10, Quantity: 3}, lines[0])
	assert.Equal(t, domain.GuestLine{ProductID: 11, Quantity: 3}, lines[1])
}

func TestGuestCart_UpdateAndRemove(t *testing.T) {
	cart, _, store := newGuestSynchronizer(t)
	ctx := context.Background()

	require.NoError(t, cart.Add(ctx, 10, 2))
	require.NoError(t, cart.Add(ctx, 11, 1))

	require.NoError(t, cart.UpdateQuantity(ctx, 10, 5))
	assert.Equal(t, 5, cart.Quantity(10))

	require.NoError(t, cart.Remove(ctx, 11))
	assert.False(t, cart.IsInCart(11))

	lines := persistedGuestLines(t, store)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(10), lines[0].ProductID)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestGuestCart_UpdateUnknownProduct(t *testing.T) {
	cart, api, _ := newGuestSynchronizer(t)

	err := cart.UpdateQuantity(context.Background(), 99, 2)
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Equal(t, 0, api.networkCalls())
}

func TestGuestCart_Clear(t *testing.T) {
	cart, _, store := newGuestSynchronizer(t)
	ctx := context.Background()

	require.NoError(t, cart.Add(ctx, 10, 2))
	require.NoError(t, cart.Clear(ctx))

	assert.True(t, cart.Snapshot().IsEmpty())
	_, err := store.Get(ctx, storage.KeyGuestCart)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestGuestCart_CorruptStorageTreatedAsEmpty(t *testing.T) {
	cart, _, store := newGuestSynchronizer(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, storage.KeyGuestCart, []byte("[broken")))

	require.NoError(t, cart.Refresh(ctx))
	assert.True(t, cart.Snapshot().IsEmpty())

	require.NoError(t, cart.Add(ctx, 10, 1))
	assert.Equal(t, 1, cart.Snapshot().ItemCount())
}

func TestQuantityBelowOneRejectedBeforeAnyNetworkCall(t *testing.T) {
	for _, authenticated := range []bool{false, true} {
		api := &mockCartAPI{}
		cart := NewCartSynchronizer(api, &fakeSession{authenticated: authenticated}, storage.NewMemoryStore(), logger.NewNop())

		var apiErr *apierr.Error
		err := cart.Add(context.Background(), 10, 0)
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 400, apiErr.Status)

		err = cart.UpdateQuantity(context.Background(), 10, -1)
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 400, apiErr.Status)

		assert.Equal(t, 0, api.networkCalls())
	}
}

func TestRemoteCart_MutationsAdoptServerItemList(t *testing.T) {
	cart, api := newRemoteSynchronizer(t)
	api.Items = []domain.CartItem{
		domain.NewRemoteItem(501, 10, "Leather Bag", 250000, 2),
	}

	require.NoError(t, cart.Add(context.Background(), 10, 2))

	snapshot := cart.Snapshot()
	assert.Equal(t, 1, api.AddCalls)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, domain.ItemSourceRemote, snapshot.Items[0].Source)
	assert.Equal(t, int64(501), snapshot.Items[0].ID())
	assert.Equal(t, int64(500000), snapshot.Subtotal())
}

func TestRemoteCart_FailedMutationKeepsPriorState(t *testing.T) {
	cart, api := newRemoteSynchronizer(t)
	api.Items = []domain.CartItem{domain.NewRemoteItem(501, 10, "Leather Bag", 250000, 2)}
	require.NoError(t, cart.Refresh(context.Background()))

	api.Err = errors.New("backend unavailable")
	err := cart.UpdateQuantity(context.Background(), 501, 5)
	assert.Error(t, err)
	assert.Equal(t, 2, cart.Quantity(10))
}

func TestRefresh_RemoteNotFoundFallsBackToGuestCart(t *testing.T) {
	api := &mockCartAPI{GetErr: &apierr.Error{Status: 404, Message: "not found"}}
	store := storage.NewMemoryStore()
	cart := NewCartSynchronizer(api, &fakeSession{authenticated: true}, store, logger.NewNop())

	ctx := context.Background()
	lines, err := json.Marshal([]domain.GuestLine{{ProductID: 10, Quantity: 2}})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, storage.KeyGuestCart, lines))

	require.NoError(t, cart.Refresh(ctx))
	assert.Equal(t, 2, cart.Quantity(10))

	// Subsequent mutations stay on the guest working set.
	require.NoError(t, cart.Add(ctx, 11, 1))
	assert.Equal(t, 1, api.networkCalls())
	assert.Equal(t, 3, cart.Snapshot().ItemCount())
}

func TestRefresh_OtherRemoteErrorsPropagate(t *testing.T) {
	api := &mockCartAPI{GetErr: &apierr.Error{Status: 500, Message: "boom", Retryable: true}}
	cart := NewCartSynchronizer(api, &fakeSession{authenticated: true}, storage.NewMemoryStore(), logger.NewNop())

	err := cart.Refresh(context.Background())
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.Status)
}

func TestMergeGuestCart_DrainsEveryLineAndClearsStorage(t *testing.T) {
	api := &mockCartAPI{}
	store := storage.NewMemoryStore()
	cart := NewCartSynchronizer(api, &fakeSession{authenticated: true}, store, logger.NewNop())

	ctx := context.Background()
	lines, err := json.Marshal([]domain.GuestLine{
		{ProductID: 10, Quantity: 2},
		{ProductID: 11, Quantity: 1},
		{ProductID: 12, Quantity: 4},
	})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, storage.KeyGuestCart, lines))

	cart.MergeGuestCart(ctx)

	assert.Equal(t, 3, api.AddCalls)
	_, err = store.Get(ctx, storage.KeyGuestCart)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestMergeGuestCart_PartialFailureStillClearsGuestList(t *testing.T) {
	api := &mockCartAPI{}
	api.AddFunc = func(productID int64, quantity int) ([]domain.CartItem, error) {
		if productID == 11 {
			return nil, errors.New("out of stock")
		}
		return nil, nil
	}
	store := storage.NewMemoryStore()
	cart := NewCartSynchronizer(api, &fakeSession{authenticated: true}, store, logger.NewNop())

	ctx := context.Background()
	lines, err := json.Marshal([]domain.GuestLine{
		{ProductID: 10, Quantity: 2},
		{ProductID: 11, Quantity: 1},
	})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, storage.KeyGuestCart, lines))

	cart.MergeGuestCart(ctx)

	assert.Equal(t, 2, api.AddCalls)
	_, err = store.Get(ctx, storage.KeyGuestCart)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestMergeGuestCart_NothingToMerge(t *testing.T) {
	api := &mockCartAPI{}
	cart := NewCartSynchronizer(api, &fakeSession{authenticated: true}, storage.NewMemoryStore(), logger.NewNop())

	cart.MergeGuestCart(context.Background())
	assert.Equal(t, 0, api.networkCalls())
}

func TestHandleLogin_MergesThenLoadsRemoteCart(t *testing.T) {
	session := &fakeSession{authenticated: false}
	api := &mockCartAPI{}
	store := storage.NewMemoryStore()
	cart := NewCartSynchronizer(api, session, store, logger.NewNop())

	ctx := context.Background()
	require.NoError(t, cart.Add(ctx, 10, 2))

	session.authenticated = true
	api.Items = []domain.CartItem{domain.NewRemoteItem(501, 10, "Leather Bag", 250000, 2)}
	cart.HandleLogin(ctx)

	assert.Equal(t, 1, api.AddCalls)
	assert.Equal(t, 1, api.GetCalls)
	_, err := store.Get(ctx, storage.KeyGuestCart)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	snapshot := cart.Snapshot()
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, domain.ItemSourceRemote, snapshot.Items[0].Source)
}

func TestHandleLogout_RevertsToGuestView(t *testing.T) {
	session := &fakeSession{authenticated: true}
	api := &mockCartAPI{Items: []domain.CartItem{domain.NewRemoteItem(501, 10, "Leather Bag", 250000, 2)}}
	cart := NewCartSynchronizer(api, session, storage.NewMemoryStore(), logger.NewNop())

	ctx := context.Background()
	require.NoError(t, cart.Refresh(ctx))
	require.False(t, cart.Snapshot().IsEmpty())

	session.authenticated = false
	cart.HandleLogout(ctx)

	assert.True(t, cart.Snapshot().IsEmpty())
}

func TestSetShippingMethod(t *testing.T) {
	cart, _, _ := newGuestSynchronizer(t)

	assert.Equal(t, domain.ShippingStandard, cart.Snapshot().ShippingMethod)
	require.NoError(t, cart.SetShippingMethod(domain.ShippingExpress))
	assert.Equal(t, domain.ShippingExpress, cart.Snapshot().ShippingMethod)

	err := cart.SetShippingMethod(domain.ShippingMethod("overnight"))
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
}
