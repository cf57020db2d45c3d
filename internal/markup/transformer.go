// Package markup turns plain-text assistant replies that list products as
// bullets into product card markup with embedded add-to-cart buttons.
package markup

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"

	"github.com/capitalize-ai/storefront-core/internal/catalog"
	"github.com/capitalize-ai/storefront-core/internal/model"
)

const (
	// Bullet separates product entries in a reply.
	Bullet = "• "

	// Marker identifies markup this package already produced.
	Marker = `class="product-card"`

	// PriceUnavailable replaces a missing price.
	PriceUnavailable = "Price unavailable"

	nameSeparator = " - "
)

var (
	pricePattern    = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d+)?`)
	featuresPattern = regexp.MustCompile(`(?i)key features:\s*([^\n]*)`)
)

var cardTemplate = template.Must(template.New("card").Parse(
	`<div class="product-card" data-product-id="{{.ID}}">` +
		`<img class="product-card-image" src="{{.Image}}" alt="{{.Name}}" data-fallback-src="{{.FallbackImage}}">` +
		`<div class="product-card-body">` +
		`<h4 class="product-card-name">{{.Name}}</h4>` +
		`<p class="product-card-price">{{.Price}}</p>` +
		`{{if .Features}}<p class="product-card-features">{{.Features}}</p>{{end}}` +
		`<div class="product-card-actions">` +
		`<a class="view-details-btn" href="{{.DetailsURL}}" target="_blank" rel="noopener noreferrer" data-product-id="{{.ID}}">View Details</a>` +
		`<button type="button" class="add-to-cart-btn" data-product-id="{{.ID}}" data-product-name="{{.Name}}" data-product-price="{{.PriceValue}}" data-product-image="{{.Image}}">Add to Cart</button>` +
		`</div></div></div>`,
))

// Product is one parsed bullet entry.
type Product struct {
	ID       string
	Name     string
	Price    string
	Features []string
	Image    string
}

type cardData struct {
	Product
	Features      string
	PriceValue    string
	DetailsURL    string
	FallbackImage string
}

// Transformer renders product cards. The zero value uses the default
// image lookup path, details path and placeholder image.
type Transformer struct {
	ImageBase     string
	DetailsBase   string
	FallbackImage string
}

// New returns a Transformer with the given image lookup base path and
// placeholder image.
func New(imageBase, fallbackImage string) *Transformer {
	return &Transformer{
		ImageBase:     imageBase,
		FallbackImage: fallbackImage,
	}
}

func (t *Transformer) imageBase() string {
	if t.ImageBase == "" {
		return "/api/product-image"
	}
	return t.ImageBase
}

func (t *Transformer) detailsBase() string {
	if t.DetailsBase == "" {
		return "/product"
	}
	return strings.TrimRight(t.DetailsBase, "/")
}

func (t *Transformer) fallbackImage() string {
	if t.FallbackImage == "" {
		return model.DefaultImage
	}
	return t.FallbackImage
}

// Transform rewrites each "• name - details" bullet of text into a product
// card. Only the bullet's first line describes the product; text after it,
// such as a closing question, follows the card verbatim. The text before
// the first bullet is kept verbatim, bullets without a name separator are
// kept as text, and text that already contains cards is returned unchanged.
func (t *Transformer) Transform(text string) string {
	if strings.Contains(text, Marker) {
		return text
	}

	segments := strings.Split(text, Bullet)
	if len(segments) < 2 {
		return text
	}

	var out strings.Builder
	out.WriteString(segments[0])

	for _, seg := range segments[1:] {
		line, tail := seg, ""
		if i := strings.IndexByte(seg, '\n'); i >= 0 {
			line, tail = seg[:i], seg[i:]
		}

		p, ok := t.Parse(line)
		if !ok {
			out.WriteString(Bullet)
			out.WriteString(seg)
			continue
		}
		card, err := t.render(p)
		if err != nil {
			out.WriteString(Bullet)
			out.WriteString(seg)
			continue
		}
		out.WriteString(card)
		if strings.TrimSpace(tail) != "" {
			out.WriteString(tail)
		}
	}

	return out.String()
}

// Parse extracts one product from a bullet segment (without the bullet).
func (t *Transformer) Parse(segment string) (Product, bool) {
	idx := strings.Index(segment, nameSeparator)
	if idx < 0 {
		return Product{}, false
	}

	name := strings.TrimSpace(segment[:idx])
	if name == "" {
		return Product{}, false
	}
	rest := segment[idx+len(nameSeparator):]

	price := PriceUnavailable
	if m := pricePattern.FindString(rest); m != "" {
		price = strings.ReplaceAll(m, " ", "")
	}

	features := []string{}
	if m := featuresPattern.FindStringSubmatch(rest); m != nil {
		for _, f := range strings.Split(m[1], ",") {
			if f = strings.TrimSpace(f); f != "" {
				features = append(features, f)
			}
		}
	}

	return Product{
		ID:       catalog.ProductID(name, catalog.DetectCategory(name)),
		Name:     name,
		Price:    price,
		Features: features,
		Image:    catalog.ImageURL(t.imageBase(), name),
	}, true
}

func (t *Transformer) render(p Product) (string, error) {
	value := catalog.PriceDigits(p.Price)
	if value == "" {
		value = "0"
	}

	var buf bytes.Buffer
	err := cardTemplate.Execute(&buf, cardData{
		Product:       p,
		Features:      strings.Join(p.Features, ", "),
		PriceValue:    value,
		DetailsURL:    t.detailsBase() + "/" + p.ID,
		FallbackImage: t.fallbackImage(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

var listingHints = []string{"here are", "best matching"}

// ShouldTransform reports whether a plain-text reply looks like a product
// listing: it has bullets and phrasing such as "Here are" or "best matching".
func ShouldTransform(reply string) bool {
	if !strings.Contains(reply, Bullet) || strings.Contains(reply, Marker) {
		return false
	}
	lower := strings.ToLower(reply)
	for _, hint := range listingHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
