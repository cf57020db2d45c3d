package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/storefront-core/internal/bus"
	"github.com/capitalize-ai/storefront-core/internal/cart"
	"github.com/capitalize-ai/storefront-core/internal/markup"
	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
)

const listing = "Here are some options:\n• iPhone 16 - $999 - Key features: A18 chip, 48MP camera\n• Galaxy S24 - $899"

type fixedAssistant struct {
	reply string

	mu        sync.Mutex
	forgotten []string
}

func (a *fixedAssistant) Chat(context.Context, model.ChatRequest) (*model.ChatReply, error) {
	return &model.ChatReply{Reply: a.reply}, nil
}

func (a *fixedAssistant) Forget(instanceID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.forgotten = append(a.forgotten, instanceID)
}

func TestCartService_KeysPerShopper(t *testing.T) {
	ctx := context.Background()
	storage := cart.NewMemoryStorage()
	svc := NewCartService(storage, "cartItems", "", logger.NewNop())

	_, err := svc.Add(ctx, "alice", &model.AddToCartRequest{Name: "iPhone 16", Price: "$999"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "alice", &model.AddToCartRequest{Name: "iPhone 16", Price: "$999"})
	require.NoError(t, err)

	view := svc.Get(ctx, "alice")
	require.Len(t, view.CartItems, 1)
	assert.Equal(t, "iphone-16-phone", view.CartItems[0].ID)
	assert.Equal(t, 2, view.CartItems[0].Quantity)
	assert.Equal(t, model.DefaultImage, view.CartItems[0].Image)
	assert.Equal(t, 1998.0, view.CartTotal)

	assert.Empty(t, svc.Get(ctx, "bob").CartItems)

	data, err := storage.Get(ctx, "alice.cartItems")
	require.NoError(t, err)
	var persisted []model.CartItem
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, view.CartItems, persisted)
}

func TestCartService_ReloadsAfterRelease(t *testing.T) {
	ctx := context.Background()
	storage := cart.NewMemoryStorage()
	svc := NewCartService(storage, "cartItems", "", logger.NewNop())

	_, err := svc.AddItem(ctx, "alice", model.CartItem{ID: "a", Name: "A", Price: 19.99, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "alice", model.CartItem{ID: "b", Name: "B", Price: 5})
	require.NoError(t, err)

	svc.Release("alice")
	view := svc.Get(ctx, "alice")
	require.Len(t, view.CartItems, 2)
	assert.Equal(t, 44.98, view.CartTotal)
	assert.Equal(t, 3, view.ItemCount)
}

type slowStorage struct {
	*cart.MemoryStorage
	slowKey string
	entered chan struct{}
	release chan struct{}
}

func (s *slowStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if key == s.slowKey {
		close(s.entered)
		<-s.release
	}
	return s.MemoryStorage.Get(ctx, key)
}

func TestCartService_SlowLoadDoesNotBlockOtherShoppers(t *testing.T) {
	ctx := context.Background()
	storage := &slowStorage{
		MemoryStorage: cart.NewMemoryStorage(),
		slowKey:       "alice.cartItems",
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	svc := NewCartService(storage, "cartItems", "", logger.NewNop())

	aliceDone := make(chan struct{})
	go func() {
		defer close(aliceDone)
		svc.Get(ctx, "alice")
	}()
	<-storage.entered

	bobDone := make(chan struct{})
	go func() {
		defer close(bobDone)
		_, _ = svc.AddItem(ctx, "bob", model.CartItem{ID: "a", Name: "A", Price: 1})
	}()

	select {
	case <-bobDone:
	case <-time.After(time.Second):
		t.Fatal("bob's cart waited on alice's load")
	}

	close(storage.release)
	<-aliceDone
	assert.Len(t, svc.Get(ctx, "bob").CartItems, 1)
}

func TestCartService_EvictIdle(t *testing.T) {
	ctx := context.Background()
	storage := cart.NewMemoryStorage()
	svc := NewCartService(storage, "cartItems", "", logger.NewNop())

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.AddItem(ctx, "alice", model.CartItem{ID: "a", Name: "A", Price: 1})
	require.NoError(t, err)
	now = now.Add(20 * time.Minute)
	_, err = svc.AddItem(ctx, "bob", model.CartItem{ID: "b", Name: "B", Price: 2})
	require.NoError(t, err)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, svc.EvictIdle(30*time.Minute))
	assert.Equal(t, 0, svc.EvictIdle(30*time.Minute))

	svc.mu.Lock()
	_, aliceLoaded := svc.stores["alice"]
	_, bobLoaded := svc.stores["bob"]
	svc.mu.Unlock()
	assert.False(t, aliceLoaded)
	assert.True(t, bobLoaded)

	view := svc.Get(ctx, "alice")
	require.Len(t, view.CartItems, 1)
	assert.Equal(t, "a", view.CartItems[0].ID)
}

func TestCartService_RunEvictionStopsWithContext(t *testing.T) {
	svc := NewCartService(cart.NewMemoryStorage(), "cartItems", "", logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.RunEviction(ctx, 5*time.Millisecond, time.Minute)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("eviction loop did not stop")
	}
}

func TestCartService_QuantityChanges(t *testing.T) {
	ctx := context.Background()
	svc := NewCartService(cart.NewMemoryStorage(), "", "", logger.NewNop())

	_, err := svc.AddItem(ctx, "alice", model.CartItem{ID: "a", Price: 1})
	require.NoError(t, err)

	view, err := svc.Decrease(ctx, "alice", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, view.CartItems[0].Quantity)

	view, err = svc.Increase(ctx, "alice", "a")
	require.NoError(t, err)
	assert.Equal(t, 2, view.CartItems[0].Quantity)

	_, err = svc.Increase(ctx, "alice", "missing")
	assert.ErrorIs(t, err, ErrItemNotInCart)

	view, err = svc.Remove(ctx, "alice", "a")
	require.NoError(t, err)
	assert.Empty(t, view.CartItems)
}

func TestCartService_RejectsAnonymousItem(t *testing.T) {
	svc := NewCartService(cart.NewMemoryStorage(), "", "", logger.NewNop())
	_, err := svc.Add(context.Background(), "alice", &model.AddToCartRequest{Price: 3})
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestCartService_Checkout(t *testing.T) {
	ctx := context.Background()
	svc := NewCartService(cart.NewMemoryStorage(), "", "", logger.NewNop())

	_, err := svc.Checkout(ctx, "alice")
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.AddItem(ctx, "alice", model.CartItem{ID: "a", Price: 19.99, Quantity: 2})
	require.NoError(t, err)

	resp, err := svc.Checkout(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, "confirmed", resp.Status)
	assert.Equal(t, 2, resp.ItemCount)
	assert.Equal(t, 39.98, resp.Total)
	assert.Empty(t, resp.Cart.CartItems)
	assert.Empty(t, svc.Get(ctx, "alice").CartItems)
}

func newChatService(t *testing.T, b bus.Bus, a *fixedAssistant) (*ChatService, *CartService) {
	t.Helper()
	carts := NewCartService(cart.NewMemoryStorage(), "", "", logger.NewNop())
	svc := NewChatService(a, b, carts, markup.New("", ""), SessionTiming{
		NotifyDelay:    time.Hour,
		NotifyCooldown: time.Hour,
	}, logger.NewNop())
	t.Cleanup(svc.Shutdown)
	return svc, carts
}

func TestChatService_ClickAddsToShopperCart(t *testing.T) {
	ctx := context.Background()
	b := bus.NewLocalBus()
	svc, carts := newChatService(t, b, &fixedAssistant{reply: listing})

	var pushed []model.CartView
	sess, err := svc.Mount(ctx, "alice", MountOptions{
		OnCart: func(v model.CartView) { pushed = append(pushed, v) },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers(sess.Topic()))

	require.NoError(t, sess.Open())
	_, err = sess.Send(ctx, "phones please")
	require.NoError(t, err)

	_, err = sess.ClickAddToCart(ctx, "iphone-16-phone")
	require.NoError(t, err)
	_, err = sess.ClickAddToCart(ctx, "iphone-16-phone")
	require.NoError(t, err)

	view := carts.Get(ctx, "alice")
	require.Len(t, view.CartItems, 1)
	assert.Equal(t, "iPhone 16", view.CartItems[0].Name)
	assert.Equal(t, 999.0, view.CartItems[0].Price)
	assert.Equal(t, 2, view.CartItems[0].Quantity)
	require.Len(t, pushed, 2)
	assert.Equal(t, 2, pushed[1].ItemCount)
}

func TestChatService_UnmountRemovesSubscription(t *testing.T) {
	ctx := context.Background()
	b := bus.NewLocalBus()
	a := &fixedAssistant{reply: "hi"}
	svc, carts := newChatService(t, b, a)

	sess, err := svc.Mount(ctx, "alice", MountOptions{})
	require.NoError(t, err)
	topic := sess.Topic()
	assert.Equal(t, 1, svc.Active())

	assert.ErrorIs(t, svc.Unmount("bob", sess.InstanceID()), ErrSessionNotFound)
	require.NoError(t, svc.Unmount("alice", sess.InstanceID()))

	assert.Zero(t, b.Subscribers(topic))
	assert.Zero(t, svc.Active())
	assert.True(t, sess.Unmounted())
	assert.Equal(t, []string{sess.InstanceID()}, a.forgotten)

	require.NoError(t, b.PublishAddToCart(ctx, topic, model.AddToCartEvent{ShopperID: "alice", ID: "x", Name: "X"}))
	assert.Empty(t, carts.Get(ctx, "alice").CartItems)

	_, err = svc.Get("alice", sess.InstanceID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestChatService_GetChecksOwner(t *testing.T) {
	svc, _ := newChatService(t, bus.NewLocalBus(), &fixedAssistant{})

	sess, err := svc.Mount(context.Background(), "alice", MountOptions{})
	require.NoError(t, err)

	got, err := svc.Get("alice", sess.InstanceID())
	require.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = svc.Get("bob", sess.InstanceID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestChatService_IgnoresForeignShopperEvents(t *testing.T) {
	ctx := context.Background()
	b := bus.NewLocalBus()
	svc, carts := newChatService(t, b, &fixedAssistant{})

	sess, err := svc.Mount(ctx, "alice", MountOptions{})
	require.NoError(t, err)

	require.NoError(t, b.PublishAddToCart(ctx, sess.Topic(), model.AddToCartEvent{ShopperID: "mallory", ID: "x", Name: "X"}))
	assert.Empty(t, carts.Get(ctx, "alice").CartItems)
}
