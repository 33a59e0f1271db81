package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 4 * 1024 * 1024
	minImageTags = 3
)

// ErrBlocked marks a soft block: the site answered but served an anti-bot or
// captcha interstitial instead of product content.
var ErrBlocked = errors.New("page scrape blocked")

// ErrFetch marks a transport or HTTP-level failure.
var ErrFetch = errors.New("page fetch failed")

var blockedTitleMarkers = []string{"robot", "captcha", "verify", "access denied"}

// headerProfiles are rotated per request to look like an ordinary browser.
var headerProfiles = []map[string]string{
	{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://www.google.com/",
	},
	{
		"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
		"Accept-Language": "en-US,en;q=0.8",
		"Referer":         "https://www.bing.com/",
	},
	{
		"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
		"Accept-Language": "en-GB,en;q=0.9",
		"Referer":         "https://duckduckgo.com/",
	},
	{
		"User-Agent":      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://www.google.com/",
	},
}

// Page holds the product-relevant fields extracted from a scraped document.
type Page struct {
	Title    string
	OGTitle  string
	OGImage  string
	ImgCount int
}

// BestTitle prefers the Open Graph title over the document title.
func (p *Page) BestTitle() string {
	if p.OGTitle != "" {
		return p.OGTitle
	}
	return p.Title
}

// Scraper fetches product pages with browser-like headers.
type Scraper struct {
	httpClient *http.Client
	timeout    time.Duration
	pick       func(n int) int
}

// New builds a scraper with the given per-fetch timeout.
func New(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scraper{
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		pick:       rand.Intn,
	}
}

// Scrape fetches the URL and extracts product metadata. Soft blocks and thin
// pages return ErrBlocked, transport and HTTP failures return ErrFetch; both
// are fallback triggers for the caller, not fatal conditions.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	profile := headerProfiles[s.pick(len(headerProfiles))]
	for k, v := range profile {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d for %s", ErrFetch, resp.StatusCode, pageURL)
	}

	page, err := parsePage(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if reason := blockReason(page, pageURL); reason != "" {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, reason)
	}

	return page, nil
}

func parsePage(body io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	page := &Page{
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		ImgCount: doc.Find("img").Length(),
	}
	if v, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		page.OGTitle = strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		page.OGImage = strings.TrimSpace(v)
	}
	return page, nil
}

// blockReason applies the soft-block heuristics. A page with no Open Graph
// metadata and almost no images is treated as an interstitial even when the
// title looks harmless.
func blockReason(page *Page, pageURL string) string {
	title := strings.ToLower(page.Title)
	for _, marker := range blockedTitleMarkers {
		if strings.Contains(title, marker) {
			return "anti-bot title marker: " + marker
		}
	}

	haystack := title + " " + strings.ToLower(pageURL)
	if strings.Contains(haystack, "shopee") && strings.Contains(title, "login") {
		return "shopee login interstitial"
	}

	if page.OGImage == "" && page.OGTitle == "" && page.ImgCount < minImageTags {
		return "thin page without product metadata"
	}

	return ""
}
