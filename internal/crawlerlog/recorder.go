package crawlerlog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishlane/wishlane-backend/pkg/db/models"
	"github.com/wishlane/wishlane-backend/pkg/logger"
)

// Recorder appends audit rows for enrichment failures. It is write-only from
// the pipeline's perspective; an admin surface reads the rows for diagnostics.
type Recorder struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewRecorder builds the failure recorder.
func NewRecorder(db *gorm.DB, logg *logger.Logger) (*Recorder, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Recorder{db: db, logg: logg}, nil
}

// Record persists one failure entry. Recorder failures are logged and
// swallowed so they can never mask the item's own terminal status write.
func (r *Recorder) Record(ctx context.Context, userID uuid.UUID, input, errorMessage string, debugMessage *string) {
	entry := &models.CrawlerLog{
		UserID:       userID,
		Input:        input,
		ErrorMessage: errorMessage,
		DebugMessage: debugMessage,
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		ctx = r.logg.WithUserID(ctx, userID.String())
		r.logg.Error(ctx, "failed to persist crawler log entry", err)
	}
}
