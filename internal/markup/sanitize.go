package markup

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataAttributes()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^button$`)).OnElements("button")
	p.AllowElements("div", "button")
	p.RequireNoReferrerOnLinks(true)
	return p
}

// Sanitize strips scripts, event handlers and unsafe URLs from markup the
// assistant backend sends pre-rendered, keeping the class and data-*
// attributes product cards rely on.
func Sanitize(html string) string {
	return policy.Sanitize(html)
}
