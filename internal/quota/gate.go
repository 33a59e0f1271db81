package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishlane/wishlane-backend/pkg/db/models"
)

// DefaultDailyLimit caps inference calls per non-premium user per day.
const DefaultDailyLimit = 10

// Gate enforces the per-user daily inference allowance. Consumption is a
// single conditional UPDATE so concurrent calls for the same user cannot race
// past the cap.
type Gate struct {
	db    *gorm.DB
	limit int
	now   func() time.Time
}

// NewGate builds the quota gate with the given daily limit.
func NewGate(db *gorm.DB, limit int) (*Gate, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Gate{db: db, limit: limit, now: time.Now}, nil
}

// TryConsume records one usage unit for the user and reports whether the
// pipeline may proceed. Premium users always pass without mutation. The unit
// is not refunded if a later stage fails; a started run counts as usage.
func (g *Gate) TryConsume(ctx context.Context, userID uuid.UUID) (bool, error) {
	var user models.User
	if err := g.db.WithContext(ctx).Select("id", "is_premium").First(&user, "id = ?", userID).Error; err != nil {
		return false, fmt.Errorf("loading user for quota check: %w", err)
	}
	if user.IsPremium {
		return true, nil
	}

	now := g.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	res := g.db.WithContext(ctx).Exec(`
		UPDATE users
		SET ai_usage_count = CASE
				WHEN last_usage_at IS NULL OR last_usage_at < ? THEN 1
				ELSE ai_usage_count + 1
			END,
			last_usage_at = ?,
			updated_at = ?
		WHERE id = ?
		  AND is_premium = ?
		  AND (last_usage_at IS NULL OR last_usage_at < ? OR ai_usage_count < ?)`,
		dayStart, now, now, userID, false, dayStart, g.limit)
	if res.Error != nil {
		return false, fmt.Errorf("consuming quota unit: %w", res.Error)
	}

	return res.RowsAffected > 0, nil
}
