package enrich

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/wishlane/wishlane-backend/internal/inference"
	"github.com/wishlane/wishlane-backend/internal/marketplace"
	"github.com/wishlane/wishlane-backend/internal/scraper"
	"github.com/wishlane/wishlane-backend/internal/search"
	"github.com/wishlane/wishlane-backend/internal/wishes"
	"github.com/wishlane/wishlane-backend/pkg/db/models"
	"github.com/wishlane/wishlane-backend/pkg/enums"
	"github.com/wishlane/wishlane-backend/pkg/logger"
	"github.com/wishlane/wishlane-backend/pkg/metrics"
)

const (
	lockTTL = 30 * time.Minute

	quotaNote = "Daily AI limit reached. Upgrade to premium or try again tomorrow."

	stageQuota     = "quota"
	stageScrape    = "scrape"
	stageSearch    = "search"
	stageInference = "inference"
	stageImage     = "image"
	stagePersist   = "persist"

	resultOK       = "ok"
	resultFallback = "fallback"
	resultFailed   = "failed"
	resultSkipped  = "skipped"
)

type itemsRepository interface {
	FindItemByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	MarkAICompleted(ctx context.Context, id uuid.UUID, fields wishes.EnrichedFields) (bool, error)
	MarkAIFailed(ctx context.Context, id uuid.UUID, message string) (bool, error)
	MarkAISkipped(ctx context.Context, id uuid.UUID, note string) (bool, error)
	SetUploadStatus(ctx context.Context, id uuid.UUID, status enums.UploadStatus) (bool, error)
}

type quotaGate interface {
	TryConsume(ctx context.Context, userID uuid.UUID) (bool, error)
}

type failureRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, input, errorMessage string, debugMessage *string)
}

type pageScraper interface {
	Scrape(ctx context.Context, url string) (*scraper.Page, error)
}

type webSearcher interface {
	Search(ctx context.Context, query string) *search.Result
}

type imageStore interface {
	AcquireImage(ctx context.Context, candidateURL, itemID string) string
	PersistUpload(ctx context.Context, data []byte, itemID, ext string) string
}

type runLocker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	EnrichLockKey(itemID string) string
}

// Pipeline executes the enrichment chain for one item: quota gate, source
// classification, scrape with search fallback, inference, image persistence,
// then exactly one terminal status write per axis.
type Pipeline struct {
	repo     itemsRepository
	quota    quotaGate
	recorder failureRecorder
	scraper  pageScraper
	searcher webSearcher
	engine   inference.Engine
	fallback inference.Engine
	photos   imageStore
	locker   runLocker
	metrics  *metrics.PipelineMetrics
	logg     *logger.Logger

	inferenceTimeout time.Duration
}

// PipelineParams collects the pipeline dependencies. Searcher, Locker and
// Metrics are optional; the pipeline degrades without them.
type PipelineParams struct {
	Repo             itemsRepository
	Quota            quotaGate
	Recorder         failureRecorder
	Scraper          pageScraper
	Searcher         webSearcher
	Engine           inference.Engine
	Photos           imageStore
	Locker           runLocker
	Metrics          *metrics.PipelineMetrics
	Logger           *logger.Logger
	InferenceTimeout time.Duration
}

// NewPipeline validates the wiring and builds the pipeline.
func NewPipeline(params PipelineParams) (*Pipeline, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("items repository required")
	}
	if params.Quota == nil {
		return nil, fmt.Errorf("quota gate required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("failure recorder required")
	}
	if params.Scraper == nil {
		return nil, fmt.Errorf("scraper required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("inference engine required")
	}
	if params.Photos == nil {
		return nil, fmt.Errorf("photo store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.InferenceTimeout <= 0 {
		params.InferenceTimeout = 60 * time.Second
	}

	return &Pipeline{
		repo:             params.Repo,
		quota:            params.Quota,
		recorder:         params.Recorder,
		scraper:          params.Scraper,
		searcher:         params.Searcher,
		engine:           params.Engine,
		fallback:         inference.NewMockEngine(),
		photos:           params.Photos,
		locker:           params.Locker,
		metrics:          params.Metrics,
		logg:             params.Logger,
		inferenceTimeout: params.InferenceTimeout,
	}, nil
}

// Run executes the pipeline for one job. It never returns an error for
// enrichment failures; those end in a terminal status write. The returned
// error only reports that the run could not start at all.
func (p *Pipeline) Run(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	ctx = p.logg.WithItemID(ctx, job.ItemID.String())
	ctx = p.logg.WithUserID(ctx, job.UserID.String())

	if !p.acquireLock(ctx, job) {
		p.logg.Info(ctx, "enrichment already in flight, dropping duplicate job")
		return nil
	}
	defer p.releaseLock(ctx, job)

	item, err := p.repo.FindItemByID(ctx, job.ItemID)
	if err != nil {
		return fmt.Errorf("loading item for enrichment: %w", err)
	}
	if item.AIStatus.IsTerminal() {
		p.logg.Info(ctx, "item already enriched, skipping")
		return nil
	}

	allowed, err := p.quota.TryConsume(ctx, job.UserID)
	if err != nil {
		p.fail(ctx, job, "could not verify AI usage allowance", err, nil)
		return nil
	}
	if !allowed {
		p.metrics.IncOutcome(stageQuota, resultSkipped)
		if _, err := p.repo.MarkAISkipped(ctx, job.ItemID, quotaNote); err != nil {
			p.logg.Error(ctx, "writing skipped status", err)
		}
		p.logg.Info(ctx, "quota exhausted, item skipped")
		return nil
	}
	p.metrics.IncOutcome(stageQuota, resultOK)

	switch job.Kind {
	case KindImage:
		p.runImage(ctx, job)
	default:
		p.runTextual(ctx, job)
	}
	return nil
}

// runImage enriches a raw image wish: the upload itself is the canonical
// image, inference only fills the textual fields.
func (p *Pipeline) runImage(ctx context.Context, job Job) {
	data, err := os.ReadFile(job.ImagePath)
	if err != nil {
		p.fail(ctx, job, "uploaded image could not be read", err, nil)
		return
	}
	// The staged file has served its purpose once read; the persisted copy is
	// the durable one.
	defer os.Remove(job.ImagePath)

	if _, err := p.repo.SetUploadStatus(ctx, job.ItemID, enums.UploadStatusUploading); err != nil {
		p.logg.Error(ctx, "advancing upload status", err)
	}

	imageStart := time.Now()
	persistedURL := p.photos.PersistUpload(ctx, data, job.ItemID.String(), extFromMime(job.ImageMime))
	p.metrics.ObserveDuration(stageImage, time.Since(imageStart))

	uploadStatus := enums.UploadStatusCompleted
	if persistedURL == "" {
		uploadStatus = enums.UploadStatusFailed
		p.metrics.IncOutcome(stageImage, resultFailed)
	} else {
		p.metrics.IncOutcome(stageImage, resultOK)
	}
	if _, err := p.repo.SetUploadStatus(ctx, job.ItemID, uploadStatus); err != nil {
		p.logg.Error(ctx, "writing terminal upload status", err)
	}

	draft, failed := p.infer(ctx, job, func(ctx context.Context, engine inference.Engine) (*inference.ProductDraft, error) {
		return engine.FromImage(ctx, data, job.ImageMime, job.Language)
	})
	if failed {
		return
	}

	inference.Normalize(draft, "")
	p.complete(ctx, job, draft, persistedURL)
}

// runTextual enriches a URL or free-text wish through the fallback chain:
// direct scrape, then targeted search, then generic inference.
func (p *Pipeline) runTextual(ctx context.Context, job Job) {
	inputText := job.Input()
	searchImage := ""
	var searchCtx *inference.SearchContext
	suggestedQuery := ""

	if job.Kind == KindURL {
		_, match := marketplace.Classify(job.URL)

		scraped := false
		if match == nil || !match.KnownBlocked {
			scrapeStart := time.Now()
			page, err := p.scraper.Scrape(ctx, job.URL)
			p.metrics.ObserveDuration(stageScrape, time.Since(scrapeStart))
			switch {
			case err == nil:
				p.metrics.IncOutcome(stageScrape, resultOK)
				if title := page.BestTitle(); title != "" {
					inputText = title
				}
				searchImage = page.OGImage
				scraped = true
			case errors.Is(err, scraper.ErrBlocked), errors.Is(err, scraper.ErrFetch):
				p.metrics.IncOutcome(stageScrape, resultFallback)
				p.logg.Warn(ctx, "scrape unavailable, falling back to search: "+err.Error())
			default:
				p.metrics.IncOutcome(stageScrape, resultFallback)
				p.logg.Warn(ctx, "scrape failed unexpectedly, falling back to search: "+err.Error())
			}
		}

		if !scraped {
			suggestedQuery = marketplace.BuildQuery(match)
			if query := suggestedQuery; query != "" && p.searcher != nil {
				searchStart := time.Now()
				result := p.searcher.Search(ctx, query)
				p.metrics.ObserveDuration(stageSearch, time.Since(searchStart))
				if result != nil {
					p.metrics.IncOutcome(stageSearch, resultOK)
					searchCtx = &inference.SearchContext{
						Title:    result.Title,
						Snippet:  result.Snippet,
						Link:     result.Link,
						ImageURL: result.ImageURL,
					}
					if result.ImageURL != "" {
						searchImage = result.ImageURL
					}
				} else {
					p.metrics.IncOutcome(stageSearch, resultFallback)
				}
			}
		}
	}

	draft, failed := p.infer(ctx, job, func(ctx context.Context, engine inference.Engine) (*inference.ProductDraft, error) {
		return engine.FromText(ctx, inputText, job.Language, searchCtx, suggestedQuery)
	})
	if failed {
		return
	}

	inference.Normalize(draft, searchImage)

	imageURL := ""
	if draft.ImageURL != "" {
		imageStart := time.Now()
		imageURL = p.photos.AcquireImage(ctx, draft.ImageURL, job.ItemID.String())
		p.metrics.ObserveDuration(stageImage, time.Since(imageStart))
		if imageURL == "" {
			p.metrics.IncOutcome(stageImage, resultFallback)
		} else {
			p.metrics.IncOutcome(stageImage, resultOK)
		}
	}

	p.complete(ctx, job, draft, imageURL)
}

type inferCall func(ctx context.Context, engine inference.Engine) (*inference.ProductDraft, error)

// infer runs the configured engine and falls back to the deterministic mock
// on transport failure. A malformed model response is terminal; a guessed
// draft must never be written over it.
func (p *Pipeline) infer(ctx context.Context, job Job, call inferCall) (*inference.ProductDraft, bool) {
	inferCtx, cancel := context.WithTimeout(ctx, p.inferenceTimeout)
	defer cancel()

	start := time.Now()
	draft, err := call(inferCtx, p.engine)
	p.metrics.ObserveDuration(stageInference, time.Since(start))
	if err == nil {
		p.metrics.IncOutcome(stageInference, resultOK)
		return draft, false
	}

	var formatErr *inference.FormatError
	if errors.As(err, &formatErr) {
		p.metrics.IncOutcome(stageInference, resultFailed)
		debug := formatErr.Raw
		p.fail(ctx, job, "AI response could not be interpreted", err, &debug)
		return nil, true
	}

	p.metrics.IncOutcome(stageInference, resultFallback)
	p.logg.Warn(ctx, "inference engine unavailable, using deterministic draft: "+err.Error())

	draft, fallbackErr := call(ctx, p.fallback)
	if fallbackErr != nil {
		p.fail(ctx, job, "product details could not be generated", fallbackErr, nil)
		return nil, true
	}
	return draft, false
}

// complete writes the single terminal COMPLETED state with the draft fields.
func (p *Pipeline) complete(ctx context.Context, job Job, draft *inference.ProductDraft, imageURL string) {
	fields := wishes.EnrichedFields{
		Name:     draft.Name,
		Price:    draft.Price,
		Currency: draft.Currency,
	}
	if imageURL != "" {
		fields.ImageURL = &imageURL
	}
	if draft.ShoppingLink != "" {
		link := draft.ShoppingLink
		fields.AILink = &link
	}
	if draft.Description != "" {
		notes := draft.Description
		fields.Notes = &notes
	}

	start := time.Now()
	wrote, err := p.repo.MarkAICompleted(ctx, job.ItemID, fields)
	p.metrics.ObserveDuration(stagePersist, time.Since(start))
	if err != nil {
		p.metrics.IncOutcome(stagePersist, resultFailed)
		p.logg.Error(ctx, "writing completed status", err)
		return
	}
	if !wrote {
		p.logg.Warn(ctx, "item reached a terminal status concurrently, completed write dropped")
		return
	}
	p.metrics.IncOutcome(stagePersist, resultOK)
	p.logg.Info(ctx, "item enriched")
}

// fail records the failure and writes the single terminal FAILED state. The
// recorder runs first but can never mask the status write.
func (p *Pipeline) fail(ctx context.Context, job Job, userMessage string, cause error, debug *string) {
	if debug == nil && cause != nil {
		msg := cause.Error()
		debug = &msg
	}
	p.recorder.Record(ctx, job.UserID, job.Input(), userMessage, debug)

	if _, err := p.repo.MarkAIFailed(ctx, job.ItemID, userMessage); err != nil {
		p.logg.Error(ctx, "writing failed status", err)
	}
	p.metrics.IncOutcome(stagePersist, resultFailed)
	p.logg.Error(ctx, "enrichment failed: "+userMessage, cause)
}

// acquireLock enforces at-most-one run per item per enqueue. A lock outage
// degrades to running without the guard.
func (p *Pipeline) acquireLock(ctx context.Context, job Job) bool {
	if p.locker == nil {
		return true
	}
	ok, err := p.locker.SetNX(ctx, p.locker.EnrichLockKey(job.ItemID.String()), "1", lockTTL)
	if err != nil {
		p.logg.Warn(ctx, "enrich lock unavailable, proceeding unguarded: "+err.Error())
		return true
	}
	return ok
}

// releaseLock frees the guard once the run has settled. Terminal writes are
// guarded in the repository, so a later duplicate enqueue is a safe no-op;
// if the delete fails the TTL reaps the key.
func (p *Pipeline) releaseLock(ctx context.Context, job Job) {
	if p.locker == nil {
		return
	}
	if err := p.locker.Del(ctx, p.locker.EnrichLockKey(job.ItemID.String())); err != nil {
		p.logg.Warn(ctx, "enrich lock release failed: "+err.Error())
	}
}

func extFromMime(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
