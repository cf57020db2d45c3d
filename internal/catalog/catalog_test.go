package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/storefront-core/internal/model"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"currency string", "$999", 999},
		{"thousands separator", "$1,299.99", 1299.99},
		{"plain number", 19.99, 19.99},
		{"int", 5, 5},
		{"placeholder text", "Price unavailable", 0},
		{"nil", nil, 0},
		{"garbage", "1.2.3", 0},
		{"unsupported type", []int{1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePrice(tt.in))
		})
	}
}

func TestPriceDigits(t *testing.T) {
	assert.Equal(t, "1299.99", PriceDigits("$1,299.99"))
	assert.Equal(t, "", PriceDigits("Price unavailable"))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "iphone-16", Slug("iPhone 16"))
	assert.Equal(t, "samsung-65-qled-4k", Slug("  Samsung 65\" QLED -- 4K!! "))
	assert.Equal(t, "", Slug("---"))
}

func TestDetectCategory(t *testing.T) {
	assert.Equal(t, CategoryPhone, DetectCategory("iPhone 16"))
	assert.Equal(t, CategoryPhone, DetectCategory("Galaxy S24"))
	assert.Equal(t, CategoryLaptop, DetectCategory("MacBook Air M3"))
	assert.Equal(t, CategoryLaptop, DetectCategory("Gaming Notebook 15"))
	assert.Equal(t, CategoryTV, DetectCategory("LG OLED TV 55"))
	assert.Equal(t, CategoryTV, DetectCategory("Sony Television X90"))
	assert.Equal(t, "", DetectCategory("Bose Headphones 700"))
	assert.Equal(t, "", DetectCategory("Stvdio Monitor"))
}

func TestProductID(t *testing.T) {
	assert.Equal(t, "iphone-16-phone", ProductID("iPhone 16", "phone"))
	assert.Equal(t, "bose-qc45", ProductID("Bose QC45", ""))
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, "/api/product-image/iPhone%2016", ImageURL("/api/product-image/", "iPhone 16"))
}

func TestNormalize_Defaults(t *testing.T) {
	p := Normalize(model.Product{Name: "Pixel 9", Price: "$799.00", Category: "phone"}, "")

	assert.Equal(t, "pixel-9-phone", p.ID)
	assert.Equal(t, 799.0, p.Price)
	assert.Equal(t, model.DefaultImage, p.Image)
	assert.Equal(t, DefaultBrand, p.Brand)
	assert.NotNil(t, p.Features)
	assert.Empty(t, p.Features)
}

func TestNormalize_KeepsProvidedFields(t *testing.T) {
	p := Normalize(model.Product{
		ID:       "sku-1",
		Name:     "ThinkPad X1",
		Price:    1499.0,
		Image:    "/img/x1.png",
		Category: "laptop",
		Brand:    "Lenovo",
		Features: []string{"14 inch"},
	}, "/fallback.png")

	assert.Equal(t, "sku-1", p.ID)
	assert.Equal(t, "/img/x1.png", p.Image)
	assert.Equal(t, "Lenovo", p.Brand)
	assert.Equal(t, []string{"14 inch"}, p.Features)
}

func TestCartItem_SynthesizesID(t *testing.T) {
	item := CartItem(model.AddToCartRequest{Name: "Galaxy S24", Category: "phone", Price: "$899"}, "/d.png")

	assert.Equal(t, "galaxy-s24-phone", item.ID)
	assert.Equal(t, 899.0, item.Price)
	assert.Equal(t, "/d.png", item.Image)
}

func TestCartItem_DetectsCategoryFromName(t *testing.T) {
	item := CartItem(model.AddToCartRequest{Name: "MacBook Air", Price: 1099}, "")

	assert.Equal(t, "macbook-air-laptop", item.ID)
	assert.Equal(t, "", item.Image)
}
