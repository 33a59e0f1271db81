package inference

import (
	"context"
	"strings"
)

const mockNameLimit = 80

// mockEngine produces a deterministic draft derived only from the input. It is
// used when no inference credential is configured and as the fallback when the
// real engine is unreachable.
type mockEngine struct{}

// NewMockEngine returns the deterministic offline engine.
func NewMockEngine() Engine {
	return &mockEngine{}
}

func (m *mockEngine) FromImage(_ context.Context, _ []byte, _ string, _ string) (*ProductDraft, error) {
	return m.draft("Uploaded item"), nil
}

func (m *mockEngine) FromText(_ context.Context, inputText, _ string, searchCtx *SearchContext, _ string) (*ProductDraft, error) {
	name := cleanedName(inputText)
	if searchCtx != nil && searchCtx.Title != "" {
		name = cleanedName(searchCtx.Title)
	}
	if name == "" {
		name = "Wished item"
	}
	return m.draft(name), nil
}

func (m *mockEngine) draft(name string) *ProductDraft {
	return &ProductDraft{
		Name:        name,
		Price:       "0",
		Currency:    "USD",
		Tags:        []string{"wishlist"},
		Description: "Details pending, added from a quick wish.",
	}
}

// cleanedName turns a raw input (free text or URL) into a short display name.
func cleanedName(input string) string {
	name := strings.TrimSpace(input)
	if idx := strings.Index(name, "://"); idx >= 0 {
		name = name[idx+3:]
		if slash := strings.Index(name, "/"); slash >= 0 {
			name = name[slash+1:]
		}
		if q := strings.IndexAny(name, "?#"); q >= 0 {
			name = name[:q]
		}
		name = strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(name)
	}
	name = strings.Join(strings.Fields(name), " ")
	if len(name) > mockNameLimit {
		name = strings.TrimSpace(name[:mockNameLimit])
	}
	return name
}
