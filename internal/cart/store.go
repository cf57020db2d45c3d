package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
	"github.com/capitalize-ai/storefront-core/pkg/metrics"
)

// ErrPersist wraps storage failures during write-back. The in-memory
// transition has already been applied when it is returned.
var ErrPersist = errors.New("cart not persisted")

// Store is the single owner of one shopper's cart. It loads once from
// storage and writes the full item list back after every action.
//
// Two stores sharing one storage key (two browser tabs, two replicas) are
// last-write-wins; nothing coordinates them.
type Store struct {
	storage Storage
	key     string
	logger  *logger.Logger

	mu    sync.Mutex
	state model.CartState
}

// NewStore creates a store and loads its initial state from storage. A
// missing or unparseable value yields an empty cart.
func NewStore(ctx context.Context, storage Storage, key string, log *logger.Logger) *Store {
	s := &Store{
		storage: storage,
		key:     key,
		logger:  log.With(zap.String("cart_key", key)),
	}
	s.state = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) model.CartState {
	empty := model.CartState{CartItems: []model.CartItem{}}

	data, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return empty
	}
	if err != nil {
		metrics.CartPersistErrorsTotal.WithLabelValues("read").Inc()
		s.logger.Warn("failed to read cart, starting empty", zap.Error(err))
		return empty
	}

	items, err := decodeItems(data)
	if err != nil {
		metrics.CartPersistErrorsTotal.WithLabelValues("decode").Inc()
		s.logger.Warn("discarding unparseable cart", zap.Error(err))
		return empty
	}

	return model.CartState{CartItems: items}
}

// decodeItems parses a persisted item list, dropping lines without an id
// and clamping quantities into range.
func decodeItems(data []byte) ([]model.CartItem, error) {
	var raw []model.CartItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	items := make([]model.CartItem, 0, len(raw))
	for _, it := range raw {
		if it.ID == "" {
			continue
		}
		it.Quantity = clampQuantity(it.Quantity)
		items = append(items, it)
	}
	return items, nil
}

// State returns a snapshot of the current cart.
func (s *Store) State() model.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.CartState{CartItems: clone(s.state.CartItems)}
}

// Dispatch applies a and persists the result. The returned state is the
// new state even when the error is non-nil.
func (s *Store) Dispatch(ctx context.Context, a Action) (model.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reduce(s.state, a)
	metrics.CartActionsTotal.WithLabelValues(string(a.Type)).Inc()

	snapshot := model.CartState{CartItems: clone(s.state.CartItems)}

	if err := s.persist(ctx, snapshot.CartItems); err != nil {
		metrics.CartPersistErrorsTotal.WithLabelValues("write").Inc()
		s.logger.Warn("failed to persist cart",
			zap.String("action", string(a.Type)),
			zap.Error(err),
		)
		return snapshot, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	return snapshot, nil
}

func (s *Store) persist(ctx context.Context, items []model.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.storage.Put(ctx, s.key, data)
}
