package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/storefront-core/internal/assistant"
	"github.com/capitalize-ai/storefront-core/internal/bus"
	"github.com/capitalize-ai/storefront-core/internal/chat"
	"github.com/capitalize-ai/storefront-core/internal/markup"
	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
	"github.com/capitalize-ai/storefront-core/pkg/metrics"
)

// ErrSessionNotFound is returned for unknown sessions and for sessions
// owned by another shopper.
var ErrSessionNotFound = errors.New("chat session not found")

// SessionTiming configures the timers of mounted sessions.
type SessionTiming struct {
	GreetingDelay  time.Duration
	NotifyDelay    time.Duration
	NotifyCooldown time.Duration
}

// MountOptions receives the pushes of one mounted session. Every field is
// optional.
type MountOptions struct {
	OnMessage      func(model.ChatMessage)
	OnNotification func(visible bool)
	OnCart         func(model.CartView)
}

type mountedSession struct {
	session     *chat.Session
	unsubscribe bus.Unsubscribe
}

// ChatService mounts chat sessions and bridges their add-to-cart clicks to
// the shopper's cart over the bus.
type ChatService struct {
	assistant   assistant.Client
	bus         bus.Bus
	carts       *CartService
	transformer *markup.Transformer
	timing      SessionTiming
	logger      *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*mountedSession
}

// NewChatService creates a chat service.
func NewChatService(
	assistantClient assistant.Client,
	eventBus bus.Bus,
	carts *CartService,
	transformer *markup.Transformer,
	timing SessionTiming,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		assistant:   assistantClient,
		bus:         eventBus,
		carts:       carts,
		transformer: transformer,
		timing:      timing,
		logger:      log,
		sessions:    make(map[string]*mountedSession),
	}
}

// Mount creates a session for shopperID and subscribes the shopper's cart
// to the session's add-to-cart topic.
func (s *ChatService) Mount(ctx context.Context, shopperID string, opts MountOptions) (*chat.Session, error) {
	instanceID := uuid.Must(uuid.NewV7()).String()

	sess := chat.NewSession(chat.Options{
		InstanceID:     instanceID,
		ShopperID:      shopperID,
		Assistant:      s.assistant,
		Bus:            s.bus,
		Transformer:    s.transformer,
		Logger:         s.logger.With(zap.String("shopper_id", shopperID)),
		GreetingDelay:  s.timing.GreetingDelay,
		NotifyDelay:    s.timing.NotifyDelay,
		NotifyCooldown: s.timing.NotifyCooldown,
		OnMessage:      opts.OnMessage,
		OnNotification: opts.OnNotification,
	})

	unsubscribe, err := s.bus.SubscribeAddToCart(sess.Topic(), func(ctx context.Context, ev model.AddToCartEvent) {
		if ev.ShopperID != shopperID {
			s.logger.Warn("ignoring add-to-cart for another shopper",
				zap.String("instance_id", instanceID),
				zap.String("event_shopper_id", ev.ShopperID),
			)
			return
		}
		view, err := s.carts.AddItem(ctx, shopperID, ev.Item())
		if err != nil {
			s.logger.Warn("add-to-cart from chat failed",
				zap.String("instance_id", instanceID),
				zap.String("product_id", ev.ID),
				zap.Error(err),
			)
			if errors.Is(err, ErrInvalidItem) {
				return
			}
		}
		if opts.OnCart != nil {
			opts.OnCart(view)
		}
	})
	if err != nil {
		sess.Unmount()
		return nil, err
	}

	s.mu.Lock()
	s.sessions[instanceID] = &mountedSession{session: sess, unsubscribe: unsubscribe}
	s.mu.Unlock()

	metrics.ChatSessionsActive.Inc()
	s.logger.Info("chat session mounted",
		zap.String("instance_id", instanceID),
		zap.String("shopper_id", shopperID),
	)

	return sess, nil
}

// Get returns a mounted session owned by shopperID.
func (s *ChatService) Get(shopperID, instanceID string) (*chat.Session, error) {
	s.mu.RLock()
	m, ok := s.sessions[instanceID]
	s.mu.RUnlock()

	if !ok || m.session.ShopperID() != shopperID {
		return nil, ErrSessionNotFound
	}
	return m.session, nil
}

// Unmount tears a session down and removes its cart subscription.
func (s *ChatService) Unmount(shopperID, instanceID string) error {
	s.mu.Lock()
	m, ok := s.sessions[instanceID]
	if !ok || m.session.ShopperID() != shopperID {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.sessions, instanceID)
	s.mu.Unlock()

	s.teardown(m)
	return nil
}

// Shutdown unmounts every session.
func (s *ChatService) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*mountedSession)
	s.mu.Unlock()

	for _, m := range sessions {
		s.teardown(m)
	}
}

// Active returns the number of mounted sessions.
func (s *ChatService) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *ChatService) teardown(m *mountedSession) {
	m.session.Unmount()
	if err := m.unsubscribe(); err != nil {
		s.logger.Warn("failed to remove add-to-cart subscription",
			zap.String("instance_id", m.session.InstanceID()),
			zap.Error(err),
		)
	}
	if f, ok := s.assistant.(assistant.Forgetter); ok {
		f.Forget(m.session.InstanceID())
	}
	metrics.ChatSessionsActive.Dec()
	s.logger.Info("chat session unmounted", zap.String("instance_id", m.session.InstanceID()))
}
