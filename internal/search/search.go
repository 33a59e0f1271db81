package search

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/wishlane/wishlane-backend/pkg/config"
	"github.com/wishlane/wishlane-backend/pkg/logger"
)

const resultLimit = 3

// Result is the corroborating context returned for a product query.
type Result struct {
	Title    string
	Snippet  string
	Link     string
	ImageURL string
}

type searchBackend interface {
	Search(ctx context.Context, query string, limit int64) ([]*customsearch.Result, error)
}

// Client queries an external search index for product context. Every failure
// mode degrades to a nil result; only construction can error.
type Client struct {
	backend  searchBackend
	engineID string
	logg     *logger.Logger
}

// NewClient builds the search client, or returns nil (not an error) when the
// search credentials are absent so callers can skip the stage entirely.
func NewClient(ctx context.Context, cfg config.SearchConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	svc, err := customsearch.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}

	return &Client{
		backend:  &customSearchBackend{svc: svc, engineID: cfg.EngineID},
		engineID: cfg.EngineID,
		logg:     logg,
	}, nil
}

// Search runs the query and returns the best result, or nil when nothing
// useful came back. Transport failures are logged and converted to nil as
// well; a missing search result must never fail the enrichment.
func (c *Client) Search(ctx context.Context, query string) *Result {
	if c == nil || strings.TrimSpace(query) == "" {
		return nil
	}

	items, err := c.backend.Search(ctx, query, resultLimit)
	if err != nil {
		if c.logg != nil {
			ctx = c.logg.WithField(ctx, "query", query)
			c.logg.Warn(ctx, "web search failed, continuing without context: "+err.Error())
		}
		return nil
	}
	if len(items) == 0 {
		return nil
	}

	best := items[0]
	result := &Result{
		Title:   best.Title,
		Snippet: best.Snippet,
		Link:    best.Link,
	}
	for _, item := range items {
		if url := firstImage(item); url != "" {
			result.ImageURL = url
			break
		}
	}
	return result
}

// firstImage digs the cse_image entry out of the result's pagemap, which the
// API ships as raw JSON.
func firstImage(item *customsearch.Result) string {
	if item == nil || len(item.Pagemap) == 0 {
		return ""
	}
	var pagemap struct {
		CSEImage []struct {
			Src string `json:"src"`
		} `json:"cse_image"`
	}
	if err := json.Unmarshal(item.Pagemap, &pagemap); err != nil {
		return ""
	}
	for _, img := range pagemap.CSEImage {
		if strings.HasPrefix(img.Src, "http") {
			return img.Src
		}
	}
	return ""
}

type customSearchBackend struct {
	svc      *customsearch.Service
	engineID string
}

func (b *customSearchBackend) Search(ctx context.Context, query string, limit int64) ([]*customsearch.Result, error) {
	resp, err := b.svc.Cse.List().Context(ctx).Cx(b.engineID).Q(query).Num(limit).Do()
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}
