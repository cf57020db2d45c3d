package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/capitalize-ai/storefront-core/internal/chat"
	"github.com/capitalize-ai/storefront-core/internal/middleware"
	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/internal/search"
	"github.com/capitalize-ai/storefront-core/internal/service"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
	"github.com/capitalize-ai/storefront-core/pkg/metrics"
)

// Frame types on the widget channel.
const (
	FrameSession      = "session"
	FrameMessage      = "message"
	FrameNotification = "notification"
	FrameCart         = "cart"
	FrameSuggestions  = "suggestions"
	FrameError        = "error"

	FrameOpen     = "open"
	FrameClose    = "close"
	FrameSend     = "send"
	FrameCategory = "category"
	FrameClick    = "click"
	FrameDismiss  = "dismiss"
	FrameSearch   = "search"
)

const outboxSize = 32

// WidgetHandler serves the widget WebSocket. Each connection mounts one
// chat session and unmounts it when the connection ends.
type WidgetHandler struct {
	chats    *service.ChatService
	catalog  Catalog
	debounce time.Duration
	logger   *logger.Logger
}

// NewWidgetHandler creates a new widget handler.
func NewWidgetHandler(chats *service.ChatService, c Catalog, debounce time.Duration, log *logger.Logger) *WidgetHandler {
	return &WidgetHandler{
		chats:    chats,
		catalog:  c,
		debounce: debounce,
		logger:   log,
	}
}

// Serve handles GET /api/v1/ws
func (h *WidgetHandler) Serve(w http.ResponseWriter, r *http.Request) {
	shopperID := middleware.GetShopperID(r.Context())
	log := middleware.RequestLogger(r.Context(), h.logger)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	metrics.WidgetConnectionsActive.Inc()
	defer metrics.WidgetConnectionsActive.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan model.WidgetFrame, outboxSize)
	push := func(f model.WidgetFrame) {
		select {
		case out <- f:
		case <-ctx.Done():
		}
	}

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		for {
			select {
			case f := <-out:
				if err := wsjson.Write(ctx, conn, f); err != nil {
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	sess, err := h.chats.Mount(ctx, shopperID, service.MountOptions{
		OnMessage: func(m model.ChatMessage) {
			push(model.WidgetFrame{Type: FrameMessage, Message: &m})
		},
		OnNotification: func(visible bool) {
			push(model.WidgetFrame{Type: FrameNotification, Visible: &visible})
		},
		OnCart: func(v model.CartView) {
			push(model.WidgetFrame{Type: FrameCart, Cart: &v})
		},
	})
	if err != nil {
		log.Error("failed to mount widget session", zap.Error(err))
		return
	}

	debouncer := search.NewDebouncer(h.catalog, h.debounce, func(query string, results []model.Suggestion) {
		push(model.WidgetFrame{Type: FrameSuggestions, Query: query, Results: results})
	}, log)

	var inflight sync.WaitGroup
	defer func() {
		debouncer.Close()
		if err := h.chats.Unmount(shopperID, sess.InstanceID()); err != nil && !errors.Is(err, service.ErrSessionNotFound) {
			log.Warn("failed to unmount widget session", zap.Error(err))
		}
		cancel()
		inflight.Wait()
		writer.Wait()
	}()

	view := sess.View()
	push(model.WidgetFrame{Type: FrameSession, Session: &view})

	for {
		var in model.WidgetFrame
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					log.Debug("widget connection ended", zap.Error(err))
				}
			}
			return
		}

		h.handleFrame(ctx, sess, debouncer, in, push, &inflight)
	}
}

func (h *WidgetHandler) handleFrame(
	ctx context.Context,
	sess *chat.Session,
	debouncer *search.Debouncer,
	in model.WidgetFrame,
	push func(model.WidgetFrame),
	inflight *sync.WaitGroup,
) {
	fail := func(err error) {
		push(model.WidgetFrame{Type: FrameError, Error: err.Error()})
	}

	switch in.Type {
	case FrameOpen:
		if err := sess.Open(); err != nil {
			fail(err)
		}
	case FrameClose:
		if err := sess.Close(); err != nil {
			fail(err)
		}
	case FrameDismiss:
		if err := sess.DismissNotification(); err != nil {
			fail(err)
		}
	case FrameSend, FrameCategory:
		if in.Type == FrameSend {
			if err := middleware.ValidateMessageText(in.Text); err != nil {
				fail(err)
				return
			}
		}
		// Replies are pushed through OnMessage; the read loop stays free
		// for close and dismiss frames meanwhile.
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			var err error
			if in.Type == FrameSend {
				_, err = sess.Send(ctx, in.Text)
			} else {
				_, err = sess.SelectCategory(ctx, in.Category)
			}
			if err != nil && ctx.Err() == nil {
				fail(err)
			}
		}()
	case FrameClick:
		if _, err := sess.ClickAddToCart(ctx, in.ID); err != nil {
			fail(err)
		}
	case FrameSearch:
		if err := middleware.ValidateQuery(in.Query); err != nil {
			fail(err)
			return
		}
		debouncer.Type(in.Query)
	default:
		fail(errors.New("unknown frame type: " + in.Type))
	}
}
