package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/storefront-core/internal/chat"
	"github.com/capitalize-ai/storefront-core/internal/middleware"
	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/internal/service"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
)

// ChatHandler handles chat session endpoints.
type ChatHandler struct {
	service *service.ChatService
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/v1/chat/sessions
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.service.Mount(ctx, middleware.GetShopperID(ctx), service.MountOptions{})
	if err != nil {
		middleware.RequestLogger(ctx, h.logger).Error("failed to mount chat session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create chat session")
		return
	}

	writeJSON(w, http.StatusCreated, sess.View())
}

// Get handles GET /api/v1/chat/sessions/{id}
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// Delete handles DELETE /api/v1/chat/sessions/{id}
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID := chi.URLParam(r, "id")

	if err := middleware.ValidateInstanceID(instanceID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Unmount(middleware.GetShopperID(ctx), instanceID); err != nil {
		writeError(w, http.StatusNotFound, "chat session not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Open handles POST /api/v1/chat/sessions/{id}/open
func (h *ChatHandler) Open(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Open(); err != nil {
		h.writeChatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// Close handles POST /api/v1/chat/sessions/{id}/close
func (h *ChatHandler) Close(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Close(); err != nil {
		h.writeChatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// DismissNotification handles POST /api/v1/chat/sessions/{id}/notification/dismiss
func (h *ChatHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.DismissNotification(); err != nil {
		h.writeChatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// SendMessage handles POST /api/v1/chat/sessions/{id}/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := sess.Send(r.Context(), req.Text)
	if err != nil {
		h.writeChatError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, &model.SendMessageResponse{
		Reply:   reply,
		Session: sess.View(),
	})
}

// SelectCategory handles POST /api/v1/chat/sessions/{id}/categories/{category}
func (h *ChatHandler) SelectCategory(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	reply, err := sess.SelectCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		h.writeChatError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, &model.SendMessageResponse{
		Reply:   reply,
		Session: sess.View(),
	})
}

// CartClick handles POST /api/v1/chat/sessions/{id}/cart-clicks
func (h *ChatHandler) CartClick(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req model.CartClickRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateItemID(req.ProductID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := sess.ClickAddToCart(r.Context(), req.ProductID)
	if err != nil {
		h.writeChatError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, ev)
}

// session resolves the {id} session of the calling shopper.
func (h *ChatHandler) session(w http.ResponseWriter, r *http.Request) (*chat.Session, bool) {
	instanceID := chi.URLParam(r, "id")
	if err := middleware.ValidateInstanceID(instanceID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	sess, err := h.service.Get(middleware.GetShopperID(r.Context()), instanceID)
	if err != nil {
		writeError(w, http.StatusNotFound, "chat session not found")
		return nil, false
	}
	return sess, true
}

func (h *ChatHandler) writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrTargetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrBusy), errors.Is(err, chat.ErrClosed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		middleware.RequestLogger(r.Context(), h.logger).Error("chat request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "chat request failed")
	}
}
