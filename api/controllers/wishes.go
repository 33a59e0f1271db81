package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wishlane/wishlane-backend/api/responses"
	"github.com/wishlane/wishlane-backend/api/validators"
	"github.com/wishlane/wishlane-backend/internal/enrich"
	"github.com/wishlane/wishlane-backend/internal/wishes"
	pkgerrors "github.com/wishlane/wishlane-backend/pkg/errors"
	"github.com/wishlane/wishlane-backend/pkg/logger"
)

const maxWishUploadBytes = 10 << 20

var errUploadTooLarge = errors.New("upload exceeds the size limit")

type createWishPayload struct {
	URL      string `json:"url" validate:"omitempty,url,max=2048"`
	Text     string `json:"text" validate:"omitempty,max=2000"`
	Language string `json:"language" validate:"omitempty,max=8"`
}

// WishCreate records a placeholder wish and queues its enrichment job.
// The body is either JSON with a url or text source, or multipart form data
// carrying an image file.
func WishCreate(svc wishes.Service, dispatcher enrich.Dispatcher, uploadsDir string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || dispatcher == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishes service unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		collectionID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "collectionId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid collection id"))
			return
		}

		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "multipart/form-data" {
			createImageWish(w, r, svc, dispatcher, uploadsDir, logg, userID, collectionID)
			return
		}

		var payload createWishPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		item, err := svc.CreateWish(ctx, wishes.CreateWishInput{
			UserID:       userID,
			CollectionID: collectionID,
			URL:          strings.TrimSpace(payload.URL),
			Text:         strings.TrimSpace(payload.Text),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		job := enrich.Job{
			ItemID:   item.ID,
			UserID:   userID,
			Language: strings.TrimSpace(payload.Language),
		}
		if url := strings.TrimSpace(payload.URL); url != "" {
			job.Kind = enrich.KindURL
			job.URL = url
		} else {
			job.Kind = enrich.KindText
			job.Text = strings.TrimSpace(payload.Text)
		}

		if err := dispatcher.Enqueue(ctx, job); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func createImageWish(w http.ResponseWriter, r *http.Request, svc wishes.Service, dispatcher enrich.Dispatcher, uploadsDir string, logg *logger.Logger, userID, collectionID uuid.UUID) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxWishUploadBytes); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image file is required"))
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file must be an image"))
		return
	}
	if header.Size > maxWishUploadBytes {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "image must be 10MB or smaller"))
		return
	}

	item, err := svc.CreateWish(ctx, wishes.CreateWishInput{
		UserID:       userID,
		CollectionID: collectionID,
		HasImage:     true,
	})
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}

	imagePath, err := stashUpload(uploadsDir, item.ID, header.Filename, file)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "image must be 10MB or smaller"))
			return
		}
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing upload"))
		return
	}

	job := enrich.Job{
		ItemID:    item.ID,
		UserID:    userID,
		Kind:      enrich.KindImage,
		ImagePath: imagePath,
		ImageMime: mimeType,
		Language:  strings.TrimSpace(r.FormValue("language")),
	}
	if err := dispatcher.Enqueue(ctx, job); err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}

	responses.WriteSuccessStatus(w, http.StatusCreated, item)
}

// stashUpload writes the incoming image to the staging area so the worker can
// read it by path. A source longer than the declared limit is rejected, never
// truncated.
func stashUpload(uploadsDir string, itemID uuid.UUID, filename string, src io.Reader) (string, error) {
	dir := enrich.StagingDir(uploadsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating staging dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(dir, itemID.String()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating staging file: %w", err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, io.LimitReader(src, maxWishUploadBytes+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing staging file: %w", err)
	}
	if n > maxWishUploadBytes {
		os.Remove(path)
		return "", errUploadTooLarge
	}
	return path, nil
}

// WishGet returns a single item, used by clients to poll enrichment progress.
func WishGet(svc wishes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishes service unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		itemID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "itemId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		item, err := svc.GetItem(ctx, userID, itemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
