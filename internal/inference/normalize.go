package inference

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

var priceCleaner = regexp.MustCompile(`[^0-9.,]`)

// Normalize applies the post-processing invariants to a draft, regardless of
// what the model produced. searchImageURL, when non-empty, takes precedence
// over any image the model proposed.
func Normalize(draft *ProductDraft, searchImageURL string) *ProductDraft {
	if draft == nil {
		return nil
	}

	draft.Name = strings.TrimSpace(draft.Name)
	draft.Description = strings.TrimSpace(draft.Description)
	draft.Price = normalizePrice(draft.Price)
	draft.Currency = normalizeCurrency(draft.Currency)

	// The model's own link guesses are unreliable and must not leak to users,
	// so the shopping link is always rebuilt from the resolved name.
	draft.ShoppingLink = ShoppingSearchURL(draft.Name)

	if searchImageURL != "" {
		draft.ImageURL = searchImageURL
	}

	return draft
}

// ShoppingSearchURL builds the deterministic shopping search link for a
// product name.
func ShoppingSearchURL(name string) string {
	query := strings.TrimSpace(name)
	if query == "" {
		return ""
	}
	return "https://www.google.com/search?tbm=shop&q=" + url.QueryEscape(query)
}

func normalizePrice(raw string) string {
	cleaned := priceCleaner.ReplaceAllString(strings.TrimSpace(raw), "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" || cleaned == "." {
		return "0"
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil || value.IsNegative() {
		return "0"
	}
	return value.String()
}

func normalizeCurrency(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !currencyPattern.MatchString(code) {
		return "USD"
	}
	return code
}
