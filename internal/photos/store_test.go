package photos

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wishlane/wishlane-backend/pkg/config"
	"github.com/wishlane/wishlane-backend/pkg/flickr"
	"github.com/wishlane/wishlane-backend/pkg/logger"
)

type stubBackend struct {
	uploadErr    error
	photoID      string
	createdSets  int
	addedPhotos  int
	sizes        []flickr.Size
	sizesErr     error
	photosetID   string
	addErr       error
	lastUploaded []byte
}

func (s *stubBackend) Upload(_ context.Context, photo []byte, _, _ string) (string, error) {
	s.lastUploaded = photo
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	return s.photoID, nil
}

func (s *stubBackend) CreatePhotoset(_ context.Context, _, _ string) (string, error) {
	s.createdSets++
	return s.photosetID, nil
}

func (s *stubBackend) AddToPhotoset(_ context.Context, _, _ string) error {
	s.addedPhotos++
	return s.addErr
}

func (s *stubBackend) GetSizes(_ context.Context, _ string) ([]flickr.Size, error) {
	return s.sizes, s.sizesErr
}

type memoryCache struct {
	values map[string]string
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", errors.New("miss")
	}
	return v, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value.(string)
	return nil
}

func (m *memoryCache) PhotosetKey() string { return "wl:photoset:id" }

func newTestStore(t *testing.T, backend photoBackend) *Store {
	t.Helper()
	store, err := NewStore(StoreParams{
		Backend: backend,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Uploads: config.UploadsConfig{Dir: t.TempDir(), BaseURL: "http://localhost:8080"},
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("building store: %v", err)
	}
	store.cache = &memoryCache{}
	return store
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAcquireImageDurablePath(t *testing.T) {
	backend := &stubBackend{
		photoID:    "p1",
		photosetID: "set-1",
		sizes: []flickr.Size{
			{Label: "Medium", Width: 500, Source: "https://live.example/p1_m.jpg"},
			{Label: "Large", Width: 1024, Source: "https://live.example/p1_b.jpg"},
			{Label: "Original", Width: 4000, Source: "https://live.example/p1_o.jpg"},
		},
	}
	store := newTestStore(t, backend)
	srv := imageServer(t)

	got := store.AcquireImage(context.Background(), srv.URL+"/mouse.jpg", "item-1")
	if got != "https://live.example/p1_b.jpg" {
		t.Fatalf("expected largest non-Original rendition, got %q", got)
	}
	if backend.createdSets != 1 {
		t.Fatalf("expected lazy photoset creation, got %d", backend.createdSets)
	}

	// Local temp copy is deleted after the confirmed durable upload.
	entries, err := os.ReadDir(store.uploadsDir)
	if err != nil {
		t.Fatalf("reading uploads dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty uploads dir, found %d files", len(entries))
	}
}

func TestAcquireImageReusesCachedPhotoset(t *testing.T) {
	backend := &stubBackend{
		photoID: "p2",
		sizes:   []flickr.Size{{Label: "Large", Width: 1024, Source: "https://live.example/p2_b.jpg"}},
	}
	store := newTestStore(t, backend)
	store.cache = &memoryCache{values: map[string]string{"wl:photoset:id": "set-cached"}}
	srv := imageServer(t)

	if got := store.AcquireImage(context.Background(), srv.URL, "item-2"); got == "" {
		t.Fatalf("expected durable url")
	}
	if backend.createdSets != 0 {
		t.Fatalf("cached photoset must be reused, created %d", backend.createdSets)
	}
	if backend.addedPhotos != 1 {
		t.Fatalf("expected photo added to cached set, got %d", backend.addedPhotos)
	}
}

func TestAcquireImageFallsBackToLocalCopy(t *testing.T) {
	backend := &stubBackend{uploadErr: errors.New("503 service unavailable")}
	store := newTestStore(t, backend)
	srv := imageServer(t)

	got := store.AcquireImage(context.Background(), srv.URL+"/mouse.jpg", "item-3")
	if !strings.HasPrefix(got, "http://localhost:8080/uploads/") {
		t.Fatalf("expected local fallback url, got %q", got)
	}

	name := strings.TrimPrefix(got, "http://localhost:8080/uploads/")
	if _, err := os.Stat(filepath.Join(store.uploadsDir, name)); err != nil {
		t.Fatalf("local fallback file missing: %v", err)
	}
}

func TestAcquireImageDownloadFailure(t *testing.T) {
	store := newTestStore(t, &stubBackend{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if got := store.AcquireImage(context.Background(), srv.URL, "item-4"); got != "" {
		t.Fatalf("expected empty url on download failure, got %q", got)
	}
}

func TestAcquireImageEmptyCandidate(t *testing.T) {
	store := newTestStore(t, &stubBackend{})
	if got := store.AcquireImage(context.Background(), "  ", "item-5"); got != "" {
		t.Fatalf("expected empty url, got %q", got)
	}
}

func TestPersistUploadNoBackend(t *testing.T) {
	store, err := NewStore(StoreParams{
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Uploads: config.UploadsConfig{Dir: t.TempDir(), BaseURL: "http://localhost:8080"},
	})
	if err != nil {
		t.Fatalf("building store: %v", err)
	}

	got := store.PersistUpload(context.Background(), []byte{0x89, 0x50, 0x4E, 0x47}, "item-6", ".png")
	if !strings.Contains(got, "/uploads/item-6-") || !strings.HasSuffix(got, ".png") {
		t.Fatalf("unexpected local url %q", got)
	}
}
