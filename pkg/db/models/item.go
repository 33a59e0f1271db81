package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wishlane/wishlane-backend/pkg/enums"
)

// Item is the unit of enrichment. It is created synchronously as a
// placeholder and mutated only by the pipeline's background run thereafter.
type Item struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CollectionID uuid.UUID `gorm:"column:collection_id;type:uuid;not null;index:items_collection_id_idx"`

	// OriginalOwnerID survives collection duplication; it names the user who
	// first authored this content, not the current collection owner.
	OriginalOwnerID uuid.UUID `gorm:"column:original_owner_id;type:uuid;not null"`

	Link *string `gorm:"column:link"`

	Name string `gorm:"column:name;not null"`
	// Price is a decimal rendered as string to avoid float rounding.
	Price    string  `gorm:"column:price;not null;default:'0'"`
	Currency string  `gorm:"column:currency;not null;default:'USD'"`
	ImageURL *string `gorm:"column:image_url"`
	// AILink is the derived canonical shopping search URL, distinct from the
	// user-supplied Link.
	AILink *string `gorm:"column:ai_link"`
	Notes  *string `gorm:"column:notes"`

	UploadStatus enums.UploadStatus `gorm:"column:upload_status;not null;default:'PENDING'"`
	AIStatus     enums.AIStatus     `gorm:"column:ai_status;not null;default:'PENDING'"`
	AIError      *string            `gorm:"column:ai_error"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
