package models

import (
	"time"

	"github.com/google/uuid"
)

// WishCollection groups items under an owning user.
type WishCollection struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID uuid.UUID `gorm:"column:owner_user_id;type:uuid;not null;index:wish_collections_owner_idx"`
	Title       string    `gorm:"column:title;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
