package photos

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/wishlane/wishlane-backend/pkg/config"
	"github.com/wishlane/wishlane-backend/pkg/flickr"
	"github.com/wishlane/wishlane-backend/pkg/logger"
	"github.com/wishlane/wishlane-backend/pkg/redis"
)

const (
	maxImageBytes    = 10 * 1024 * 1024
	photosetCacheTTL = 24 * time.Hour
)

type photoBackend interface {
	Upload(ctx context.Context, photo []byte, fileName, title string) (string, error)
	CreatePhotoset(ctx context.Context, title, primaryPhotoID string) (string, error)
	AddToPhotoset(ctx context.Context, photosetID, photoID string) error
	GetSizes(ctx context.Context, photoID string) ([]flickr.Size, error)
}

type photosetCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	PhotosetKey() string
}

// Store converts ephemeral image bytes into a durable public URL. Every
// failure mode degrades: no durable store means a local uploads URL, no
// downloadable image means an empty result. It never fails the enrichment.
type Store struct {
	httpClient    *http.Client
	backend       photoBackend
	cache         photosetCache
	logg          *logger.Logger
	uploadsDir    string
	baseURL       string
	photosetTitle string
	photosetID    atomic.Pointer[string]
}

// StoreParams collects the store's dependencies. Backend and Cache may be nil;
// the store then keeps images on local disk only.
type StoreParams struct {
	Backend  photoBackend
	Cache    *redis.Client
	Logger   *logger.Logger
	Uploads  config.UploadsConfig
	Photoset string
	Timeout  time.Duration
}

// NewStore builds the image persistence layer.
func NewStore(params StoreParams) (*Store, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Uploads.Dir == "" {
		return nil, fmt.Errorf("uploads directory required")
	}
	if params.Timeout <= 0 {
		params.Timeout = 8 * time.Second
	}
	if err := os.MkdirAll(params.Uploads.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("preparing uploads directory: %w", err)
	}

	store := &Store{
		httpClient:    &http.Client{Timeout: params.Timeout},
		backend:       params.Backend,
		logg:          params.Logger,
		uploadsDir:    params.Uploads.Dir,
		baseURL:       strings.TrimRight(params.Uploads.BaseURL, "/"),
		photosetTitle: params.Photoset,
	}
	if params.Cache != nil {
		store.cache = params.Cache
	}
	return store, nil
}

// AcquireImage downloads the candidate image and persists it durably,
// returning the public URL, or "" when no image could be obtained at all.
func (s *Store) AcquireImage(ctx context.Context, candidateURL, itemID string) string {
	if strings.TrimSpace(candidateURL) == "" {
		return ""
	}

	data, ext, err := s.download(ctx, candidateURL)
	if err != nil {
		s.logg.Warn(ctx, "image download failed, continuing without image: "+err.Error())
		return ""
	}

	localPath, localURL, err := s.writeLocal(data, itemID, ext)
	if err != nil {
		s.logg.Warn(ctx, "local image write failed: "+err.Error())
		localURL = ""
	}

	durableURL := s.persistDurable(ctx, data, itemID, ext)
	if durableURL == "" {
		// The local copy stays behind as the served fallback.
		return localURL
	}

	if localPath != "" {
		if err := os.Remove(localPath); err != nil {
			s.logg.Warn(ctx, "removing local image copy: "+err.Error())
		}
	}
	return durableURL
}

// PersistUpload stores caller-provided image bytes the same way AcquireImage
// stores downloaded ones. Used for raw image wishes.
func (s *Store) PersistUpload(ctx context.Context, data []byte, itemID, ext string) string {
	if len(data) == 0 {
		return ""
	}
	if ext == "" {
		ext = ".jpg"
	}

	localPath, localURL, err := s.writeLocal(data, itemID, ext)
	if err != nil {
		s.logg.Warn(ctx, "local image write failed: "+err.Error())
		localURL = ""
	}

	durableURL := s.persistDurable(ctx, data, itemID, ext)
	if durableURL == "" {
		return localURL
	}
	if localPath != "" {
		if err := os.Remove(localPath); err != nil {
			s.logg.Warn(ctx, "removing local image copy: "+err.Error())
		}
	}
	return durableURL
}

func (s *Store) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image fetch returned %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image body")
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	return data, extensionFor(resp.Header.Get("Content-Type"), rawURL), nil
}

func (s *Store) writeLocal(data []byte, itemID, ext string) (string, string, error) {
	sum := sha256.Sum256(data)
	name := fmt.Sprintf("%s-%s%s", itemID, hex.EncodeToString(sum[:8]), ext)
	path := filepath.Join(s.uploadsDir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", err
	}
	return path, s.baseURL + "/uploads/" + name, nil
}

// persistDurable pushes the bytes to the photo store and returns the chosen
// public rendition URL, or "" when the durable path is unavailable.
func (s *Store) persistDurable(ctx context.Context, data []byte, itemID, ext string) string {
	if s.backend == nil {
		return ""
	}

	photoID, err := s.backend.Upload(ctx, data, itemID+ext, itemID)
	if err != nil {
		s.logg.Warn(ctx, "durable image upload failed: "+err.Error())
		return ""
	}

	s.attachToPhotoset(ctx, photoID)

	sizes, err := s.backend.GetSizes(ctx, photoID)
	if err != nil {
		s.logg.Warn(ctx, "listing photo renditions failed: "+err.Error())
		return ""
	}
	return flickr.LargestDisplayURL(sizes)
}

// attachToPhotoset adds the photo to the shared photoset, creating the set
// lazily on first use. Two concurrent first uploads may both create a set;
// they converge on whichever id lands in the cache last, which is harmless.
func (s *Store) attachToPhotoset(ctx context.Context, photoID string) {
	photosetID := s.cachedPhotosetID(ctx)
	if photosetID == "" {
		created, err := s.backend.CreatePhotoset(ctx, s.photosetTitle, photoID)
		if err != nil {
			s.logg.Warn(ctx, "creating photoset failed: "+err.Error())
			return
		}
		s.storePhotosetID(ctx, created)
		return
	}

	if err := s.backend.AddToPhotoset(ctx, photosetID, photoID); err != nil {
		s.logg.Warn(ctx, "adding photo to photoset failed: "+err.Error())
	}
}

func (s *Store) cachedPhotosetID(ctx context.Context) string {
	if id := s.photosetID.Load(); id != nil && *id != "" {
		return *id
	}
	if s.cache == nil {
		return ""
	}
	id, err := s.cache.Get(ctx, s.cache.PhotosetKey())
	if err != nil || id == "" {
		return ""
	}
	s.photosetID.Store(&id)
	return id
}

func (s *Store) storePhotosetID(ctx context.Context, id string) {
	s.photosetID.Store(&id)
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.PhotosetKey(), id, photosetCacheTTL); err != nil {
		s.logg.Warn(ctx, "caching photoset id failed: "+err.Error())
	}
}

func extensionFor(contentType, rawURL string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return ".jpg"
	}

	clean := rawURL
	if q := strings.IndexAny(clean, "?#"); q >= 0 {
		clean = clean[:q]
	}
	switch ext := strings.ToLower(filepath.Ext(clean)); ext {
	case ".png", ".webp", ".gif", ".jpg", ".jpeg":
		return ext
	}
	return ".jpg"
}
