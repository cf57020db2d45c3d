package catalog

import (
	"strings"

	"github.com/capitalize-ai/storefront-core/internal/model"
)

// DefaultBrand fills products the backend returns without a brand.
const DefaultBrand = "Generic"

// Normalize applies data-shape defaults to a backend product so rendering
// never blocks on a missing field.
func Normalize(p model.Product, defaultImage string) model.CatalogProduct {
	if defaultImage == "" {
		defaultImage = model.DefaultImage
	}

	out := model.CatalogProduct{
		ID:       p.ID,
		Name:     strings.TrimSpace(p.Name),
		Price:    ParsePrice(p.Price),
		Image:    p.Image,
		Category: p.Category,
		Brand:    p.Brand,
		Features: p.Features,
	}

	if out.ID == "" {
		out.ID = ProductID(out.Name, categoryOf(out.Name, out.Category))
	}
	if out.Image == "" {
		out.Image = defaultImage
	}
	if out.Brand == "" {
		out.Brand = DefaultBrand
	}
	if out.Features == nil {
		out.Features = []string{}
	}

	return out
}

// NormalizeAll applies Normalize to every product.
func NormalizeAll(products []model.Product, defaultImage string) []model.CatalogProduct {
	out := make([]model.CatalogProduct, 0, len(products))
	for _, p := range products {
		out = append(out, Normalize(p, defaultImage))
	}
	return out
}

// CartItem converts an add request into a cart line, coercing the price and
// synthesizing the identifier when the caller has none.
func CartItem(req model.AddToCartRequest, defaultImage string) model.CartItem {
	id := req.ID
	if id == "" {
		id = ProductID(req.Name, categoryOf(req.Name, req.Category))
	}
	image := req.Image
	if image == "" {
		image = defaultImage
	}
	return model.CartItem{
		ID:       id,
		Name:     req.Name,
		Price:    ParsePrice(req.Price),
		Image:    image,
		Quantity: req.Quantity,
	}
}

// categoryOf prefers the declared category and falls back to name keywords.
func categoryOf(name, category string) string {
	if category != "" {
		return category
	}
	return DetectCategory(name)
}
