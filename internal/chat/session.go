// Package chat implements the assistant widget session: greeting, the
// send/receive protocol, product card rendering and add-to-cart clicks on
// the cards in the transcript.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/capitalize-ai/storefront-core/internal/assistant"
	"github.com/capitalize-ai/storefront-core/internal/bus"
	"github.com/capitalize-ai/storefront-core/internal/catalog"
	"github.com/capitalize-ai/storefront-core/internal/markup"
	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
	"github.com/capitalize-ai/storefront-core/pkg/metrics"
	"github.com/capitalize-ai/storefront-core/pkg/tracing"
)

// State is the conversation state of a session.
type State string

const (
	StateIdle          State = "idle"
	StateGreeting      State = "greeting"
	StateAwaitingInput State = "awaiting_input"
	StateSending       State = "sending"
	StateError         State = "error"
)

const (
	// GreetingText is the canned welcome appended on first open.
	GreetingText = "Hi there! I'm your shopping assistant. Pick a category below or tell me what you're looking for."

	// ErrorText replaces a reply that could not be fetched.
	ErrorText = "Error connecting to chatbot. Please try again."

	// DefaultGreetingDelay emulates the assistant typing the greeting.
	DefaultGreetingDelay = 500 * time.Millisecond
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrBusy            = errors.New("a message is already being sent")
	ErrClosed          = errors.New("chat session is closed")
	ErrUnknownCategory = errors.New("unknown category")
	ErrTargetNotFound  = errors.New("add-to-cart button not found in transcript")
)

// categoryPrompts are the messages sent by the quick-select buttons.
var categoryPrompts = map[string]string{
	catalog.CategoryPhone:  "Show me the best phones you have",
	catalog.CategoryLaptop: "Show me the best laptops you have",
	catalog.CategoryTV:     "Show me the best TVs you have",
}

// CategoryPrompt returns the canned text for a quick-select category.
func CategoryPrompt(category string) (string, bool) {
	text, ok := categoryPrompts[strings.ToLower(category)]
	return text, ok
}

// Options configures a Session.
type Options struct {
	// InstanceID identifies the session to the assistant. A random UUID is
	// used when empty.
	InstanceID string
	ShopperID  string

	Assistant   assistant.Client
	Bus         bus.Bus
	Transformer *markup.Transformer
	Logger      *logger.Logger

	// GreetingDelay of zero appends the greeting immediately.
	GreetingDelay  time.Duration
	NotifyDelay    time.Duration
	NotifyCooldown time.Duration

	// OnMessage and OnNotification are called without the session lock
	// held, possibly from timer goroutines.
	OnMessage      func(model.ChatMessage)
	OnNotification func(visible bool)
}

// Session is one mounted chat widget.
type Session struct {
	instanceID    string
	shopperID     string
	assistant     assistant.Client
	bus           bus.Bus
	transformer   *markup.Transformer
	logger        *logger.Logger
	greetingDelay time.Duration
	onMessage     func(model.ChatMessage)
	notifier      *Notifier
	createdAt     time.Time

	mu            sync.Mutex
	state         State
	open          bool
	greeted       bool
	greetingTimer *time.Timer
	greetingGen   uint64
	messages      []model.ChatMessage
	cancelSend    context.CancelFunc
	unmounted     bool
}

// NewSession mounts a closed widget. The help prompt is armed right away.
func NewSession(opts Options) *Session {
	instanceID := opts.InstanceID
	if instanceID == "" {
		instanceID = uuid.New().String()
	}
	transformer := opts.Transformer
	if transformer == nil {
		transformer = &markup.Transformer{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	s := &Session{
		instanceID:    instanceID,
		shopperID:     opts.ShopperID,
		assistant:     opts.Assistant,
		bus:           opts.Bus,
		transformer:   transformer,
		logger:        log.With(zap.String("instance_id", instanceID)),
		greetingDelay: opts.GreetingDelay,
		onMessage:     opts.OnMessage,
		createdAt:     time.Now().UTC(),
		state:         StateIdle,
		messages:      []model.ChatMessage{},
	}
	s.notifier = NewNotifier(opts.NotifyDelay, opts.NotifyCooldown, opts.OnNotification)
	s.notifier.WidgetClosed()
	return s
}

// InstanceID returns the session's instance identifier.
func (s *Session) InstanceID() string { return s.instanceID }

// ShopperID returns the shopper owning the session.
func (s *Session) ShopperID() string { return s.shopperID }

// Topic returns the bus topic add-to-cart clicks are published on.
func (s *Session) Topic() string { return bus.Topic(s.instanceID) }

// Notifier returns the session's help-prompt notifier.
func (s *Session) Notifier() *Notifier { return s.notifier }

// State returns the conversation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatMessage(nil), s.messages...)
}

// View returns the client representation of the session.
func (s *Session) View() model.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SessionView{
		InstanceID:   s.instanceID,
		State:        string(s.state),
		Loading:      s.state == StateSending,
		Notification: s.notifier.Visible(),
		Messages:     append([]model.ChatMessage(nil), s.messages...),
		CreatedAt:    s.createdAt,
	}
}

// Open shows the widget. The first open greets the shopper.
func (s *Session) Open() error {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return ErrClosed
	}
	s.open = true

	var greeting *model.ChatMessage
	if s.state == StateIdle && !s.greeted {
		s.setStateLocked(StateGreeting)
		if s.greetingDelay <= 0 {
			greeting = s.greetLocked()
		} else {
			gen := s.greetingGen
			s.greetingTimer = time.AfterFunc(s.greetingDelay, func() { s.greetAfterDelay(gen) })
		}
	}
	s.mu.Unlock()

	s.notifier.WidgetOpened()
	s.emit(greeting)
	return nil
}

// Close hides the widget and re-arms the help prompt.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return ErrClosed
	}
	s.open = false
	s.mu.Unlock()

	s.notifier.WidgetClosed()
	return nil
}

// DismissNotification hides the help prompt for the cooldown period.
func (s *Session) DismissNotification() error {
	s.mu.Lock()
	unmounted := s.unmounted
	s.mu.Unlock()
	if unmounted {
		return ErrClosed
	}
	s.notifier.Dismiss()
	return nil
}

func (s *Session) greetAfterDelay(gen uint64) {
	s.mu.Lock()
	if s.unmounted || gen != s.greetingGen || s.greeted {
		s.mu.Unlock()
		return
	}
	s.greetingTimer = nil
	msg := s.greetLocked()
	s.mu.Unlock()

	s.emit(msg)
}

// greetLocked appends the greeting and cancels a pending greeting timer.
func (s *Session) greetLocked() *model.ChatMessage {
	s.cancelGreetingLocked()
	s.greeted = true
	msg := model.ChatMessage{Text: GreetingText, HasButtons: true}
	s.appendLocked(msg)
	if s.state == StateGreeting {
		s.setStateLocked(StateAwaitingInput)
	}
	return &msg
}

func (s *Session) cancelGreetingLocked() {
	s.greetingGen++
	if s.greetingTimer != nil {
		s.greetingTimer.Stop()
		s.greetingTimer = nil
	}
}

// Send appends the shopper's text, asks the assistant and appends its
// reply. A failed request appends ErrorText instead and is not returned
// as an error. The returned message is the one appended for the reply.
func (s *Session) Send(ctx context.Context, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.unmounted || !s.open {
		s.mu.Unlock()
		return model.ChatMessage{}, ErrClosed
	}
	if s.state == StateSending {
		s.mu.Unlock()
		return model.ChatMessage{}, ErrBusy
	}

	var greeting *model.ChatMessage
	if !s.greeted {
		greeting = s.greetLocked()
	}

	req := model.ChatRequest{
		Message:    text,
		NewChat:    len(s.messages) <= 1,
		InstanceID: s.instanceID,
	}
	userMsg := model.ChatMessage{Text: text, IsUser: true}
	s.appendLocked(userMsg)
	s.setStateLocked(StateSending)

	sendCtx, cancel := context.WithCancel(ctx)
	s.cancelSend = cancel
	s.mu.Unlock()
	defer cancel()

	s.emit(greeting)
	s.emit(&userMsg)

	ctx, span := tracing.Tracer("chat").Start(sendCtx, "chat.send")
	span.SetAttributes(
		attribute.String("chat.instance_id", s.instanceID),
		attribute.Bool("chat.new_chat", req.NewChat),
	)
	start := time.Now()
	reply, err := s.ask(ctx, req)
	if err != nil {
		span.RecordError(err)
	}
	span.End()

	s.mu.Lock()
	s.cancelSend = nil
	if s.unmounted {
		s.mu.Unlock()
		s.logger.Debug("dropping reply for unmounted session")
		return model.ChatMessage{}, ErrClosed
	}

	var msg model.ChatMessage
	if err != nil {
		metrics.RecordChat("error", time.Since(start).Seconds())
		s.logger.Warn("assistant request failed", zap.Error(err))
		s.setStateLocked(StateError)
		msg = model.ChatMessage{Text: ErrorText}
	} else {
		metrics.RecordChat("ok", time.Since(start).Seconds())
		msg = s.render(reply)
	}
	s.appendLocked(msg)
	s.setStateLocked(StateAwaitingInput)
	s.mu.Unlock()

	s.emit(&msg)
	return msg, nil
}

func (s *Session) ask(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error) {
	if s.assistant == nil {
		return nil, errors.New("no assistant configured")
	}
	reply, err := s.assistant.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, errors.New("empty assistant reply")
	}
	return reply, nil
}

// render turns an assistant reply into a transcript message. Markup sent
// by the backend is sanitized; plain product listings become cards.
func (s *Session) render(reply *model.ChatReply) model.ChatMessage {
	switch {
	case reply.IsHTML:
		return model.ChatMessage{Text: markup.Sanitize(reply.Reply), IsHTML: true}
	case markup.ShouldTransform(reply.Reply):
		return model.ChatMessage{Text: s.transformer.Transform(reply.Reply), IsHTML: true}
	default:
		return model.ChatMessage{Text: reply.Reply}
	}
}

// SelectCategory sends the canned prompt for a quick-select category.
func (s *Session) SelectCategory(ctx context.Context, category string) (model.ChatMessage, error) {
	text, ok := CategoryPrompt(category)
	if !ok {
		return model.ChatMessage{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return s.Send(ctx, text)
}

// ClickAddToCart handles a click on an add-to-cart button of a product card
// in this session's transcript. The item is read from the button's data
// attributes and published on the session's bus topic.
func (s *Session) ClickAddToCart(ctx context.Context, productID string) (model.AddToCartEvent, error) {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return model.AddToCartEvent{}, ErrClosed
	}
	button, found := findAddToCartButton(s.messages, productID)
	s.mu.Unlock()
	if !found {
		return model.AddToCartEvent{}, fmt.Errorf("%w: %q", ErrTargetNotFound, productID)
	}

	name, _ := button.Attr("data-product-name")
	price, _ := button.Attr("data-product-price")
	image, _ := button.Attr("data-product-image")

	ev := model.AddToCartEvent{
		InstanceID: s.instanceID,
		ShopperID:  s.shopperID,
		ID:         productID,
		Name:       name,
		Price:      catalog.ParsePrice(price),
		Image:      image,
		CreatedAt:  time.Now().UTC(),
	}

	if s.bus == nil {
		return ev, errors.New("no add-to-cart bus configured")
	}
	if err := s.bus.PublishAddToCart(ctx, s.Topic(), ev); err != nil {
		return ev, fmt.Errorf("failed to publish add-to-cart: %w", err)
	}

	s.logger.Debug("add-to-cart clicked", zap.String("product_id", productID))
	return ev, nil
}

// findAddToCartButton searches the markup messages, newest first, for the
// button carrying productID.
func findAddToCartButton(messages []model.ChatMessage, productID string) (*goquery.Selection, bool) {
	if productID == "" {
		return nil, false
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if !messages[i].IsHTML {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(messages[i].Text))
		if err != nil {
			continue
		}
		button := doc.Find("button.add-to-cart-btn[data-product-id]").FilterFunction(func(_ int, sel *goquery.Selection) bool {
			id, _ := sel.Attr("data-product-id")
			return id == productID
		}).First()
		if button.Length() > 0 {
			return button, true
		}
	}
	return nil, false
}

// Unmount tears the session down: timers are cancelled, an in-flight
// request is abandoned and its reply dropped.
func (s *Session) Unmount() {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return
	}
	s.unmounted = true
	s.open = false
	s.cancelGreetingLocked()
	if s.cancelSend != nil {
		s.cancelSend()
		s.cancelSend = nil
	}
	s.mu.Unlock()

	s.notifier.Stop()
}

// Unmounted reports whether Unmount was called.
func (s *Session) Unmounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unmounted
}

func (s *Session) appendLocked(msg model.ChatMessage) {
	s.messages = append(s.messages, msg)

	author, kind := "assistant", "text"
	if msg.IsUser {
		author = "user"
	}
	if msg.IsHTML {
		kind = "html"
	}
	metrics.ChatMessagesTotal.WithLabelValues(author, kind).Inc()
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug("chat state change",
		zap.String("from", string(s.state)),
		zap.String("to", string(next)),
	)
	s.state = next
}

func (s *Session) emit(msg *model.ChatMessage) {
	if msg != nil && s.onMessage != nil {
		s.onMessage(*msg)
	}
}
