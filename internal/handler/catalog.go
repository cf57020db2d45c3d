package handler

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/storefront-core/internal/catalog"
	"github.com/capitalize-ai/storefront-core/internal/middleware"
	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
)

// Catalog is the product side of the storefront backend.
type Catalog interface {
	Products(ctx context.Context, category string) ([]model.Product, error)
	Suggestions(ctx context.Context, query string) ([]model.Suggestion, error)
}

// CatalogHandler proxies product listings and search suggestions.
type CatalogHandler struct {
	catalog      Catalog
	imageBase    string
	defaultImage string
	logger       *logger.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(c Catalog, imageBase, defaultImage string, log *logger.Logger) *CatalogHandler {
	if imageBase == "" {
		imageBase = "/api/product-image"
	}
	return &CatalogHandler{
		catalog:      c,
		imageBase:    imageBase,
		defaultImage: defaultImage,
		logger:       log,
	}
}

// Products handles GET /api/v1/products?category=
// Products missing an image, brand or features are filled with defaults.
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	products, err := h.catalog.Products(ctx, category)
	if err != nil {
		middleware.RequestLogger(ctx, h.logger).Warn("product lookup failed",
			zap.String("category", category),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "products are unavailable right now")
		return
	}

	writeJSON(w, http.StatusOK, catalog.NormalizeAll(products, h.defaultImage))
}

// Suggestions handles GET /api/v1/search-suggestions?query=
// A failed lookup degrades to an empty list. Suggestions without an image
// point at the image lookup endpoint.
func (h *CatalogHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("query"))

	if err := middleware.ValidateQuery(query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if query == "" {
		writeJSON(w, http.StatusOK, []model.Suggestion{})
		return
	}

	results, err := h.catalog.Suggestions(ctx, query)
	if err != nil {
		middleware.RequestLogger(ctx, h.logger).Warn("suggestion lookup failed",
			zap.String("query", query),
			zap.Error(err),
		)
		results = nil
	}
	if results == nil {
		results = []model.Suggestion{}
	}
	for i := range results {
		if results[i].Image == "" {
			results[i].Image = catalog.ImageURL(h.imageBase, results[i].Name)
		}
	}

	writeJSON(w, http.StatusOK, results)
}
