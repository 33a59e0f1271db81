package marketplace

import (
	"regexp"
	"strings"
)

// Kind describes how a raw wish input should be interpreted.
type Kind string

const (
	KindURL  Kind = "url"
	KindText Kind = "text"
)

var urlPattern = regexp.MustCompile(`^https?://`)

// Pattern describes one recognized marketplace URL shape. Extract pulls the
// product identifiers out of a matching URL; KnownBlocked marks platforms that
// always soft-block crawlers, so direct scraping is skipped for them.
type Pattern struct {
	Platform     string
	Expr         *regexp.Regexp
	KnownBlocked bool
}

// Match is the result of classifying a URL against the pattern table.
type Match struct {
	Platform     string
	IDs          []string
	KnownBlocked bool
}

var patterns = []Pattern{
	{
		Platform:     "shopee",
		Expr:         regexp.MustCompile(`shopee\.[a-z.]+/.*-i\.(\d+)\.(\d+)`),
		KnownBlocked: true,
	},
	{
		Platform:     "shopee",
		Expr:         regexp.MustCompile(`shopee\.[a-z.]+/product/(\d+)/(\d+)`),
		KnownBlocked: true,
	},
	{
		Platform:     "lazada",
		Expr:         regexp.MustCompile(`lazada\.[a-z.]+/products/.*-i(\d+)(?:-s(\d+))?`),
		KnownBlocked: true,
	},
	{
		Platform: "amazon",
		Expr:     regexp.MustCompile(`amazon\.[a-z.]+/(?:.*/)?(?:dp|gp/product)/([A-Z0-9]{10})`),
	},
	{
		Platform: "ebay",
		Expr:     regexp.MustCompile(`ebay\.[a-z.]+/itm/(?:[^/]+/)?(\d+)`),
	},
	{
		Platform: "aliexpress",
		Expr:     regexp.MustCompile(`aliexpress\.[a-z.]+/item/(\d+)\.html`),
	},
	{
		Platform: "etsy",
		Expr:     regexp.MustCompile(`etsy\.com/listing/(\d+)`),
	},
	{
		Platform: "taobao",
		Expr:     regexp.MustCompile(`taobao\.com/item\.htm\?.*\bid=(\d+)`),
	},
	{
		Platform: "mercadolibre",
		Expr:     regexp.MustCompile(`mercadoli[bv]re\.[a-z.]+/.*(ML[A-Z]-?\d+)`),
	},
}

// IsURL reports whether the raw input looks like an absolute HTTP(S) URL.
func IsURL(input string) bool {
	return urlPattern.MatchString(strings.TrimSpace(input))
}

// Classify resolves the input kind and, for URLs, the marketplace match if the
// URL fits a known platform shape. The match is nil for unrecognized URLs.
func Classify(input string) (Kind, *Match) {
	trimmed := strings.TrimSpace(input)
	if !IsURL(trimmed) {
		return KindText, nil
	}

	for _, p := range patterns {
		groups := p.Expr.FindStringSubmatch(trimmed)
		if groups == nil {
			continue
		}
		ids := make([]string, 0, len(groups)-1)
		for _, g := range groups[1:] {
			if g != "" {
				ids = append(ids, g)
			}
		}
		if len(ids) == 0 {
			continue
		}
		return KindURL, &Match{Platform: p.Platform, IDs: ids, KnownBlocked: p.KnownBlocked}
	}

	return KindURL, nil
}
