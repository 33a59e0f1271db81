package models

import (
	"time"

	"github.com/google/uuid"
)

// CrawlerLog is a write-once audit row created on pipeline failure paths.
// The pipeline never reads these back; an admin surface does.
type CrawlerLog struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:crawler_logs_user_id_idx"`
	Input        string    `gorm:"column:input;not null"`
	ErrorMessage string    `gorm:"column:error_message;not null"`
	DebugMessage *string   `gorm:"column:debug_message"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
