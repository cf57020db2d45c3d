// Package service provides the business logic behind the storefront API:
// per-shopper cart stores and mounted chat sessions.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/storefront-core/internal/cart"
	"github.com/capitalize-ai/storefront-core/internal/catalog"
	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
	"github.com/capitalize-ai/storefront-core/pkg/metrics"
)

var (
	// ErrInvalidItem is returned for an add request with neither id nor name.
	ErrInvalidItem = errors.New("item needs an id or a name")

	// ErrEmptyCart is returned when checking out an empty cart.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrItemNotInCart is returned for quantity changes on a missing line.
	ErrItemNotInCart = errors.New("item not in cart")
)

// StorageKey returns the storage key of a shopper's cart.
func StorageKey(shopperID, key string) string {
	return shopperID + "." + key
}

// CartService owns one cart.Store per shopper, loaded lazily from the
// shared storage backend. Stores unused for longer than the idle TTL are
// dropped by RunEviction and reloaded from storage on next use.
type CartService struct {
	storage      cart.Storage
	key          string
	defaultImage string
	logger       *logger.Logger
	now          func() time.Time

	mu     sync.Mutex
	stores map[string]*storeEntry
}

type storeEntry struct {
	store    *cart.Store
	lastUsed time.Time
}

// NewCartService creates a cart service persisting under key.
func NewCartService(storage cart.Storage, key, defaultImage string, log *logger.Logger) *CartService {
	if key == "" {
		key = "cartItems"
	}
	if defaultImage == "" {
		defaultImage = model.DefaultImage
	}
	return &CartService{
		storage:      storage,
		key:          key,
		defaultImage: defaultImage,
		logger:       log,
		now:          time.Now,
		stores:       make(map[string]*storeEntry),
	}
}

// Store returns the shopper's cart store, loading it on first use. The
// load runs outside the service lock; when two callers race, the first
// store inserted wins.
func (s *CartService) Store(ctx context.Context, shopperID string) *cart.Store {
	if st := s.cached(shopperID); st != nil {
		return st
	}

	loaded := cart.NewStore(ctx, s.storage, StorageKey(shopperID, s.key), s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.stores[shopperID]; ok {
		e.lastUsed = s.now()
		return e.store
	}
	s.stores[shopperID] = &storeEntry{store: loaded, lastUsed: s.now()}
	metrics.CartStoresActive.Inc()
	return loaded
}

func (s *CartService) cached(shopperID string) *cart.Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.stores[shopperID]
	if !ok {
		return nil
	}
	e.lastUsed = s.now()
	return e.store
}

// Get returns the shopper's cart.
func (s *CartService) Get(ctx context.Context, shopperID string) model.CartView {
	return s.Store(ctx, shopperID).State().View()
}

// Add normalizes req and adds it to the cart.
func (s *CartService) Add(ctx context.Context, shopperID string, req *model.AddToCartRequest) (model.CartView, error) {
	if strings.TrimSpace(req.ID) == "" && strings.TrimSpace(req.Name) == "" {
		return model.CartView{}, ErrInvalidItem
	}
	return s.AddItem(ctx, shopperID, catalog.CartItem(*req, s.defaultImage))
}

// AddItem adds an already-normalized line to the cart.
func (s *CartService) AddItem(ctx context.Context, shopperID string, item model.CartItem) (model.CartView, error) {
	if item.ID == "" {
		return model.CartView{}, ErrInvalidItem
	}
	return s.dispatch(ctx, shopperID, cart.Add(item))
}

// Remove deletes a line. Removing a missing line is a no-op.
func (s *CartService) Remove(ctx context.Context, shopperID, itemID string) (model.CartView, error) {
	return s.dispatch(ctx, shopperID, cart.Remove(itemID))
}

// Increase adds one to a line's quantity.
func (s *CartService) Increase(ctx context.Context, shopperID, itemID string) (model.CartView, error) {
	if err := s.requireItem(ctx, shopperID, itemID); err != nil {
		return model.CartView{}, err
	}
	return s.dispatch(ctx, shopperID, cart.Increase(itemID))
}

// Decrease removes one from a line's quantity, never going below one.
func (s *CartService) Decrease(ctx context.Context, shopperID, itemID string) (model.CartView, error) {
	if err := s.requireItem(ctx, shopperID, itemID); err != nil {
		return model.CartView{}, err
	}
	return s.dispatch(ctx, shopperID, cart.Decrease(itemID))
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, shopperID string) (model.CartView, error) {
	return s.dispatch(ctx, shopperID, cart.Clear())
}

// Checkout places an order for the current cart and clears it.
func (s *CartService) Checkout(ctx context.Context, shopperID string) (*model.CheckoutResponse, error) {
	state := s.Store(ctx, shopperID).State()
	if len(state.CartItems) == 0 {
		return nil, ErrEmptyCart
	}

	orderID := uuid.Must(uuid.NewV7()).String()
	view, err := s.dispatch(ctx, shopperID, cart.Clear())

	s.logger.Info("checkout completed",
		zap.String("shopper_id", shopperID),
		zap.String("order_id", orderID),
		zap.Int("item_count", state.ItemCount()),
		zap.Float64("total", state.CartTotal()),
	)

	return &model.CheckoutResponse{
		OrderID:   orderID,
		Status:    "confirmed",
		ItemCount: state.ItemCount(),
		Total:     state.CartTotal(),
		Message:   fmt.Sprintf("Order placed for %d item(s).", state.ItemCount()),
		Cart:      view,
	}, err
}

// Release drops the in-memory store of a shopper. The persisted cart is kept.
func (s *CartService) Release(shopperID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[shopperID]; ok {
		delete(s.stores, shopperID)
		metrics.CartStoresActive.Dec()
	}
}

// EvictIdle releases every store unused for longer than maxIdle and
// returns how many were dropped.
func (s *CartService) EvictIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	evicted := 0
	for id, e := range s.stores {
		if e.lastUsed.Before(cutoff) {
			delete(s.stores, id)
			evicted++
		}
	}
	metrics.CartStoresActive.Sub(float64(evicted))
	return evicted
}

// RunEviction calls EvictIdle every interval until ctx is done. A
// non-positive interval disables eviction.
func (s *CartService) RunEviction(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(maxIdle); n > 0 {
				s.logger.Debug("evicted idle carts", zap.Int("count", n))
			}
		}
	}
}

func (s *CartService) requireItem(ctx context.Context, shopperID, itemID string) error {
	if s.Store(ctx, shopperID).State().Find(itemID) < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotInCart, itemID)
	}
	return nil
}

// dispatch applies a to the shopper's store. A persistence failure is
// returned alongside the already-applied view.
func (s *CartService) dispatch(ctx context.Context, shopperID string, a cart.Action) (model.CartView, error) {
	state, err := s.Store(ctx, shopperID).Dispatch(ctx, a)
	return state.View(), err
}
