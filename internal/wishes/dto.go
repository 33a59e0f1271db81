package wishes

import (
	"time"

	"github.com/google/uuid"

	"github.com/wishlane/wishlane-backend/pkg/db/models"
)

// FallbackImageURL is served in place of a missing item image; enrichment can
// legitimately finish without ever resolving one.
const FallbackImageURL = "https://www.gravatar.com/avatar/?d=mp&s=512"

// ItemDTO is the wire shape of an item.
type ItemDTO struct {
	ID           uuid.UUID `json:"id"`
	CollectionID uuid.UUID `json:"collection_id"`
	Link         *string   `json:"link,omitempty"`
	Name         string    `json:"name"`
	Price        string    `json:"price"`
	Currency     string    `json:"currency"`
	ImageURL     string    `json:"image_url"`
	AILink       *string   `json:"ai_link,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
	UploadStatus string    `json:"upload_status"`
	AIStatus     string    `json:"ai_status"`
	AIError      *string   `json:"ai_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CollectionDTO is the wire shape of a wish collection.
type CollectionDTO struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemToDTO maps a model to its wire shape, substituting the fallback image
// when none was resolved.
func ItemToDTO(item *models.Item) *ItemDTO {
	imageURL := FallbackImageURL
	if item.ImageURL != nil && *item.ImageURL != "" {
		imageURL = *item.ImageURL
	}

	return &ItemDTO{
		ID:           item.ID,
		CollectionID: item.CollectionID,
		Link:         item.Link,
		Name:         item.Name,
		Price:        item.Price,
		Currency:     item.Currency,
		ImageURL:     imageURL,
		AILink:       item.AILink,
		Notes:        item.Notes,
		UploadStatus: item.UploadStatus.String(),
		AIStatus:     item.AIStatus.String(),
		AIError:      item.AIError,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

// CollectionToDTO maps a collection model to its wire shape.
func CollectionToDTO(c *models.WishCollection) *CollectionDTO {
	return &CollectionDTO{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt}
}
