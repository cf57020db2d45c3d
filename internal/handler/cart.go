// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/storefront-core/internal/cart"
	"github.com/capitalize-ai/storefront-core/internal/middleware"
	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/internal/service"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
)

// CartHandler handles cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *logger.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(svc *service.CartService, log *logger.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  log,
	}
}

// Get handles GET /api/v1/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, h.service.Get(ctx, middleware.GetShopperID(ctx)))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.AddToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateAddToCart(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.service.Add(ctx, middleware.GetShopperID(ctx), &req)
	h.respond(w, r, view, err)
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.itemAction(w, r, h.service.Remove)
}

// Increase handles POST /api/v1/cart/items/{id}/increase
func (h *CartHandler) Increase(w http.ResponseWriter, r *http.Request) {
	h.itemAction(w, r, h.service.Increase)
}

// Decrease handles POST /api/v1/cart/items/{id}/decrease
func (h *CartHandler) Decrease(w http.ResponseWriter, r *http.Request) {
	h.itemAction(w, r, h.service.Decrease)
}

// Clear handles DELETE /api/v1/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.service.Clear(ctx, middleware.GetShopperID(ctx))
	h.respond(w, r, view, err)
}

// Checkout handles POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := h.service.Checkout(ctx, middleware.GetShopperID(ctx))
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, cart.ErrPersist):
		middleware.RequestLogger(ctx, h.logger).Warn("checkout completed but cart not persisted", zap.Error(err))
	case err != nil:
		middleware.RequestLogger(ctx, h.logger).Error("checkout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "checkout failed")
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

type itemActionFunc func(ctx context.Context, shopperID, itemID string) (model.CartView, error)

func (h *CartHandler) itemAction(w http.ResponseWriter, r *http.Request, action itemActionFunc) {
	ctx := r.Context()
	itemID := chi.URLParam(r, "id")

	if err := middleware.ValidateItemID(itemID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := action(ctx, middleware.GetShopperID(ctx), itemID)
	h.respond(w, r, view, err)
}

// respond writes the cart view. A failed write-back still returns the
// applied state; the in-memory cart is authoritative.
func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, view model.CartView, err error) {
	switch {
	case err == nil:
	case errors.Is(err, cart.ErrPersist):
		middleware.RequestLogger(r.Context(), h.logger).Warn("cart change not persisted", zap.Error(err))
	case errors.Is(err, service.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrItemNotInCart):
		writeError(w, http.StatusNotFound, "item not in cart")
		return
	default:
		middleware.RequestLogger(r.Context(), h.logger).Error("cart update failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cart update failed")
		return
	}

	writeJSON(w, http.StatusOK, view)
}
