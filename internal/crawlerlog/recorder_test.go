package crawlerlog

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wishlane/wishlane-backend/pkg/logger"
)

func newTestRecorder(t *testing.T) (*Recorder, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	err = db.Exec(`CREATE TABLE crawler_logs (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		input text NOT NULL,
		error_message text NOT NULL,
		debug_message text,
		created_at datetime
	)`).Error
	if err != nil {
		t.Fatalf("creating crawler_logs table: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Exec(`DROP TABLE crawler_logs`).Error
	})

	rec, err := NewRecorder(db, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("building recorder: %v", err)
	}
	return rec, db
}

func TestRecordPersistsEntry(t *testing.T) {
	rec, db := newTestRecorder(t)
	userID := uuid.New()
	debug := "raw model output: not json"

	rec.Record(context.Background(), userID, "https://shopee.sg/thing-i.1.2", "inference output unparseable", &debug)

	var row struct {
		UserID       string
		Input        string
		ErrorMessage string
		DebugMessage *string
	}
	err := db.Raw(`SELECT user_id, input, error_message, debug_message FROM crawler_logs WHERE user_id = ?`, userID).Scan(&row).Error
	if err != nil {
		t.Fatalf("reading row: %v", err)
	}
	if row.Input != "https://shopee.sg/thing-i.1.2" {
		t.Fatalf("unexpected input %q", row.Input)
	}
	if row.ErrorMessage != "inference output unparseable" {
		t.Fatalf("unexpected error message %q", row.ErrorMessage)
	}
	if row.DebugMessage == nil || *row.DebugMessage != debug {
		t.Fatalf("debug message not retained: %v", row.DebugMessage)
	}
}

func TestRecordSwallowsWriteFailure(t *testing.T) {
	rec, db := newTestRecorder(t)
	if err := db.Exec(`DROP TABLE crawler_logs`).Error; err != nil {
		t.Fatalf("dropping table: %v", err)
	}

	// Must not panic or surface the error.
	rec.Record(context.Background(), uuid.New(), "input", "message", nil)
}
