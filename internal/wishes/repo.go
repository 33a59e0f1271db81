package wishes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishlane/wishlane-backend/pkg/db/models"
	"github.com/wishlane/wishlane-backend/pkg/enums"
	"github.com/wishlane/wishlane-backend/pkg/pagination"
)

// Repository exposes wish collection and item persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishes repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateCollection persists a new wish collection.
func (r *Repository) CreateCollection(ctx context.Context, collection *models.WishCollection) (*models.WishCollection, error) {
	if collection.ID == uuid.Nil {
		collection.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(collection).Error; err != nil {
		return nil, err
	}
	return collection, nil
}

// FindCollection retrieves a collection by ID.
func (r *Repository) FindCollection(ctx context.Context, id uuid.UUID) (*models.WishCollection, error) {
	var c models.WishCollection
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateItem persists the placeholder item the pipeline will enrich.
func (r *Repository) CreateItem(ctx context.Context, item *models.Item) (*models.Item, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// FindItemByID retrieves an item by ID.
func (r *Repository) FindItemByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByCollection returns a cursor page of items, newest first.
func (r *Repository) ListByCollection(ctx context.Context, collectionID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Item, string, error) {
	buffered := pagination.LimitWithBuffer(limit)

	query := r.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Order("created_at DESC, id DESC").
		Limit(buffered)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var items []models.Item
	if err := query.Find(&items).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(items) == buffered {
		items = items[:buffered-1]
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return items, nextCursor, nil
}

// EnrichedFields carries the pipeline's output for the completed write.
type EnrichedFields struct {
	Name     string
	Price    string
	Currency string
	ImageURL *string
	AILink   *string
	Notes    *string
}

// MarkAICompleted writes the enriched fields and the COMPLETED status. The
// guard on the current PENDING status makes the terminal write exactly-once;
// a second pipeline run for the same item becomes a no-op.
func (r *Repository) MarkAICompleted(ctx context.Context, id uuid.UUID, fields EnrichedFields) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND ai_status = ?", id, enums.AIStatusPending).
		Updates(map[string]any{
			"name":       fields.Name,
			"price":      fields.Price,
			"currency":   fields.Currency,
			"image_url":  fields.ImageURL,
			"ai_link":    fields.AILink,
			"notes":      fields.Notes,
			"ai_status":  enums.AIStatusCompleted,
			"ai_error":   nil,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// MarkAIFailed writes the FAILED status with a short user-visible message.
func (r *Repository) MarkAIFailed(ctx context.Context, id uuid.UUID, message string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND ai_status = ?", id, enums.AIStatusPending).
		Updates(map[string]any{
			"ai_status":  enums.AIStatusFailed,
			"ai_error":   message,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// MarkAISkipped writes the SKIPPED status after a quota denial, with an
// explanatory note instead of an error.
func (r *Repository) MarkAISkipped(ctx context.Context, id uuid.UUID, note string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND ai_status = ?", id, enums.AIStatusPending).
		Updates(map[string]any{
			"ai_status":  enums.AIStatusSkipped,
			"notes":      note,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// SetUploadStatus advances the upload axis. Terminal states only accept the
// transition from UPLOADING, and UPLOADING only from PENDING, so no write can
// move the axis backward.
func (r *Repository) SetUploadStatus(ctx context.Context, id uuid.UUID, status enums.UploadStatus) (bool, error) {
	var from enums.UploadStatus
	switch status {
	case enums.UploadStatusUploading:
		from = enums.UploadStatusPending
	case enums.UploadStatusCompleted, enums.UploadStatusFailed:
		from = enums.UploadStatusUploading
	default:
		return false, nil
	}

	res := r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND upload_status = ?", id, from).
		Updates(map[string]any{
			"upload_status": status,
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// SetImageURL updates only the image field, used when the upload axis
// completes after the AI axis already wrote its terminal state.
func (r *Repository) SetImageURL(ctx context.Context, id uuid.UUID, imageURL string) error {
	return r.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"image_url":  imageURL,
			"updated_at": time.Now().UTC(),
		}).Error
}
