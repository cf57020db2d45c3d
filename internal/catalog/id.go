package catalog

import (
	"net/url"
	"regexp"
	"strings"
)

// Category suffixes recognised in product names.
const (
	CategoryPhone  = "phone"
	CategoryLaptop = "laptop"
	CategoryTV     = "tv"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	phoneWords  = regexp.MustCompile(`iphone|galaxy|pixel|oneplus|smartphone|\bphones?\b`)
	laptopWords = regexp.MustCompile(`macbook|notebook|laptop|thinkpad|chromebook`)
	tvWords     = regexp.MustCompile(`\btv\b|television`)
)

// Slug lower-cases name, collapses runs of non-alphanumerics into a single
// hyphen and trims hyphens at both ends.
func Slug(name string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// DetectCategory guesses a category from keywords in a product name.
func DetectCategory(name string) string {
	lower := strings.ToLower(name)
	switch {
	case phoneWords.MatchString(lower):
		return CategoryPhone
	case laptopWords.MatchString(lower):
		return CategoryLaptop
	case tvWords.MatchString(lower):
		return CategoryTV
	default:
		return ""
	}
}

// ProductID builds the stable identifier used across the catalog, the cart
// and generated product cards.
func ProductID(name, category string) string {
	id := Slug(name)
	if category == "" {
		return id
	}
	return id + "-" + strings.ToLower(category)
}

// ImageURL returns the image lookup URL for a product name.
func ImageURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(name)
}
