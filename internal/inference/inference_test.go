package inference

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/wishlane/wishlane-backend/pkg/config"
	"github.com/wishlane/wishlane-backend/pkg/openai"
)

type stubChat struct {
	response string
	err      error
	calls    int
}

func (s *stubChat) ChatCompletion(_ context.Context, _ []openai.Message) (string, error) {
	s.calls++
	return s.response, s.err
}

func TestFromTextParsesFencedJSON(t *testing.T) {
	chat := &stubChat{response: "```json\n" + `{"name":"Sony WH-1000XM5","price":"348.00","currency":"usd","tags":["audio"],"shoppingLink":"https://fake.example","description":"Noise canceling headphones."}` + "\n```"}
	engine := newOpenAIEngine(chat, nil)

	draft, err := engine.FromText(context.Background(), "sony xm5", "en", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Name != "Sony WH-1000XM5" {
		t.Fatalf("unexpected name %q", draft.Name)
	}
	if draft.Price != "348.00" {
		t.Fatalf("unexpected price %q", draft.Price)
	}
}

func TestFromTextMalformedOutput(t *testing.T) {
	chat := &stubChat{response: "I could not find that product, sorry!"}
	engine := newOpenAIEngine(chat, nil)

	_, err := engine.FromText(context.Background(), "anything", "en", nil, "")
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if formatErr.Raw != "I could not find that product, sorry!" {
		t.Fatalf("raw model text not retained: %q", formatErr.Raw)
	}
}

func TestFromTextTransportErrorPassesThrough(t *testing.T) {
	chat := &stubChat{err: errors.New("dial tcp: connection refused")}
	engine := newOpenAIEngine(chat, nil)

	_, err := engine.FromText(context.Background(), "anything", "en", nil, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	var formatErr *FormatError
	if errors.As(err, &formatErr) {
		t.Fatalf("transport failures must not be format errors")
	}
}

func TestNewEngineWithoutKeyReturnsMock(t *testing.T) {
	engine, err := NewEngine(config.OpenAIConfig{Model: "gpt-4o-mini"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	draft, err := engine.FromText(context.Background(), "red leather backpack", "en", nil, "")
	if err != nil {
		t.Fatalf("mock engine must not error: %v", err)
	}
	if draft.Name != "red leather backpack" {
		t.Fatalf("unexpected mock name %q", draft.Name)
	}
	if draft.Price != "0" || draft.Currency != "USD" {
		t.Fatalf("unexpected mock draft shape: %+v", draft)
	}
}

func TestMockEngineDerivesNameFromURL(t *testing.T) {
	draft, err := NewMockEngine().FromText(context.Background(), "https://shop.example.com/red-leather-backpack?ref=x", "en", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Name != "red leather backpack" {
		t.Fatalf("unexpected name %q", draft.Name)
	}
}

func TestNormalizeShoppingLinkIdempotent(t *testing.T) {
	modelGuesses := []string{"", "https://evil.example/phish", "not a url at all"}
	for _, guess := range modelGuesses {
		draft := Normalize(&ProductDraft{Name: "LEGO Millennium Falcon 75192", ShoppingLink: guess}, "")
		want := "https://www.google.com/search?tbm=shop&q=" + url.QueryEscape("LEGO Millennium Falcon 75192")
		if draft.ShoppingLink != want {
			t.Fatalf("shopping link %q, want %q", draft.ShoppingLink, want)
		}

		again := Normalize(draft, "")
		if again.ShoppingLink != want {
			t.Fatalf("normalization not idempotent: %q", again.ShoppingLink)
		}
	}
}

func TestNormalizePriceAndCurrency(t *testing.T) {
	cases := []struct {
		price, currency     string
		wantPrice, wantCurr string
	}{
		{"$1,299.99", "usd", "1299.99", "USD"},
		{"free", "", "0", "USD"},
		{"-5", "EUR", "0", "EUR"},
		{"42", "yen", "42", "YEN"},
		{"", "£", "0", "USD"},
	}
	for _, tc := range cases {
		draft := Normalize(&ProductDraft{Name: "x", Price: tc.price, Currency: tc.currency}, "")
		if draft.Price != tc.wantPrice {
			t.Fatalf("price %q -> %q, want %q", tc.price, draft.Price, tc.wantPrice)
		}
		if draft.Currency != tc.wantCurr {
			t.Fatalf("currency %q -> %q, want %q", tc.currency, draft.Currency, tc.wantCurr)
		}
	}
}

func TestNormalizeSearchImageOverridesModelImage(t *testing.T) {
	draft := Normalize(&ProductDraft{Name: "x", ImageURL: "https://model.example/guess.jpg"}, "https://search.example/found.jpg")
	if draft.ImageURL != "https://search.example/found.jpg" {
		t.Fatalf("search image must override model image, got %q", draft.ImageURL)
	}

	kept := Normalize(&ProductDraft{Name: "x", ImageURL: "https://model.example/guess.jpg"}, "")
	if kept.ImageURL != "https://model.example/guess.jpg" {
		t.Fatalf("model image should survive when no search image exists, got %q", kept.ImageURL)
	}
}

func TestFromImagePromptIncludesLanguage(t *testing.T) {
	chat := &stubChat{response: `{"name":"Ceramic Mug","price":"12","currency":"USD","tags":[],"shoppingLink":"","description":""}`}
	engine := newOpenAIEngine(chat, nil)

	draft, err := engine.FromImage(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg", "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Name != "Ceramic Mug" {
		t.Fatalf("unexpected name %q", draft.Name)
	}
	if chat.calls != 1 {
		t.Fatalf("expected a single completion call, got %d", chat.calls)
	}
}

func TestStripCodeFenceVariants(t *testing.T) {
	const body = `{"name":"x"}`
	for _, raw := range []string{body, "```json\n" + body + "\n```", "```\n" + body + "\n```", "  " + body + "  "} {
		if got := stripCodeFence(raw); got != body {
			t.Fatalf("stripCodeFence(%q) = %q", raw, got)
		}
	}
}
