package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the canonical identity row. Registration and login live in the
// identity service; this backend only reads identity and owns the AI usage
// ledger columns.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	IsPremium    bool       `gorm:"column:is_premium;not null;default:false"`
	AIUsageCount int        `gorm:"column:ai_usage_count;not null;default:0"`
	LastUsageAt  *time.Time `gorm:"column:last_usage_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
