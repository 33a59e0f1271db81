package marketplace

import (
	"strings"
	"testing"
)

func TestClassifyText(t *testing.T) {
	kind, match := Classify("nintendo switch oled")
	if kind != KindText {
		t.Fatalf("expected text kind, got %s", kind)
	}
	if match != nil {
		t.Fatalf("expected no marketplace match for free text")
	}
}

func TestClassifyUnrecognizedURL(t *testing.T) {
	kind, match := Classify("https://example.com/some/product")
	if kind != KindURL {
		t.Fatalf("expected url kind, got %s", kind)
	}
	if match != nil {
		t.Fatalf("expected no match for unrecognized host, got %+v", match)
	}
}

func TestClassifyMarketplaceURLs(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		platform string
		ids      []string
		blocked  bool
	}{
		{
			name:     "shopee item",
			input:    "https://shopee.sg/Wireless-Mouse-i.178392.9982771123",
			platform: "shopee",
			ids:      []string{"178392", "9982771123"},
			blocked:  true,
		},
		{
			name:     "shopee product path",
			input:    "https://shopee.co.id/product/178392/9982771123",
			platform: "shopee",
			ids:      []string{"178392", "9982771123"},
			blocked:  true,
		},
		{
			name:     "lazada",
			input:    "https://www.lazada.sg/products/gaming-keyboard-i2712345678-s9987654321.html",
			platform: "lazada",
			ids:      []string{"2712345678", "9987654321"},
			blocked:  true,
		},
		{
			name:     "amazon dp",
			input:    "https://www.amazon.com/Sony-Headphones/dp/B09XS7JWHH?ref=something",
			platform: "amazon",
			ids:      []string{"B09XS7JWHH"},
		},
		{
			name:     "ebay item",
			input:    "https://www.ebay.com/itm/234567890123",
			platform: "ebay",
			ids:      []string{"234567890123"},
		},
		{
			name:     "aliexpress",
			input:    "https://www.aliexpress.com/item/1005004123456789.html",
			platform: "aliexpress",
			ids:      []string{"1005004123456789"},
		},
		{
			name:     "etsy listing",
			input:    "https://www.etsy.com/listing/987654321/handmade-ceramic-mug",
			platform: "etsy",
			ids:      []string{"987654321"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, match := Classify(tc.input)
			if kind != KindURL {
				t.Fatalf("expected url kind, got %s", kind)
			}
			if match == nil {
				t.Fatalf("expected a marketplace match")
			}
			if match.Platform != tc.platform {
				t.Fatalf("expected platform %s, got %s", tc.platform, match.Platform)
			}
			if len(match.IDs) != len(tc.ids) {
				t.Fatalf("expected ids %v, got %v", tc.ids, match.IDs)
			}
			for i, id := range tc.ids {
				if match.IDs[i] != id {
					t.Fatalf("expected ids %v, got %v", tc.ids, match.IDs)
				}
			}
			if match.KnownBlocked != tc.blocked {
				t.Fatalf("expected KnownBlocked=%v for %s", tc.blocked, tc.platform)
			}
		})
	}
}

func TestBuildQueryContainsIdentifiers(t *testing.T) {
	inputs := []string{
		"https://shopee.sg/Wireless-Mouse-i.178392.9982771123",
		"https://www.amazon.com/dp/B09XS7JWHH",
		"https://www.ebay.com/itm/234567890123",
		"https://www.etsy.com/listing/987654321/mug",
	}

	for _, input := range inputs {
		_, match := Classify(input)
		if match == nil {
			t.Fatalf("expected match for %s", input)
		}
		query := BuildQuery(match)
		if query == "" {
			t.Fatalf("expected non-empty query for %s", input)
		}
		if !strings.HasPrefix(query, match.Platform+" product") {
			t.Fatalf("unexpected query shape %q", query)
		}
		for _, id := range match.IDs {
			if !strings.Contains(query, id) {
				t.Fatalf("query %q missing identifier %s", query, id)
			}
		}
		if strings.Contains(query, "site:") {
			t.Fatalf("query must not contain search operators: %q", query)
		}
	}
}

func TestBuildQueryNilMatch(t *testing.T) {
	if q := BuildQuery(nil); q != "" {
		t.Fatalf("expected empty query for nil match, got %q", q)
	}
}
