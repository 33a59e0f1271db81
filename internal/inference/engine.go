package inference

import (
	"context"

	"github.com/wishlane/wishlane-backend/pkg/config"
	"github.com/wishlane/wishlane-backend/pkg/logger"
	"github.com/wishlane/wishlane-backend/pkg/openai"
)

// Engine produces product drafts from raw wish input.
type Engine interface {
	FromImage(ctx context.Context, imageBytes []byte, mimeType, language string) (*ProductDraft, error)
	FromText(ctx context.Context, inputText, language string, searchCtx *SearchContext, suggestedQuery string) (*ProductDraft, error)
}

// NewEngine resolves the concrete engine at construction time: the OpenAI
// backed engine when an API key is configured, the deterministic mock
// otherwise. The mock keeps the surrounding system functional in degraded
// mode, it never errors and never touches the network.
func NewEngine(cfg config.OpenAIConfig, logg *logger.Logger) (Engine, error) {
	if cfg.APIKey == "" {
		return NewMockEngine(), nil
	}

	client, err := openai.NewClient(cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, err
	}
	return newOpenAIEngine(client, logg), nil
}
