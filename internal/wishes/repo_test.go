package wishes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wishlane/wishlane-backend/pkg/db/models"
	"github.com/wishlane/wishlane-backend/pkg/enums"
)

func newTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}

	statements := []string{
		`CREATE TABLE wish_collections (
			id text PRIMARY KEY,
			owner_user_id text NOT NULL,
			title text NOT NULL,
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE TABLE items (
			id text PRIMARY KEY,
			collection_id text NOT NULL,
			original_owner_id text NOT NULL,
			link text,
			name text NOT NULL,
			price text NOT NULL DEFAULT '0',
			currency text NOT NULL DEFAULT 'USD',
			image_url text,
			ai_link text,
			notes text,
			upload_status text NOT NULL DEFAULT 'PENDING'
				CHECK (upload_status IN ('PENDING', 'UPLOADING', 'COMPLETED', 'FAILED')),
			ai_status text NOT NULL DEFAULT 'PENDING'
				CHECK (ai_status IN ('PENDING', 'COMPLETED', 'FAILED', 'SKIPPED')),
			ai_error text,
			created_at datetime,
			updated_at datetime
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("creating schema: %v", err)
		}
	}
	t.Cleanup(func() {
		_ = db.Exec(`DROP TABLE items`).Error
		_ = db.Exec(`DROP TABLE wish_collections`).Error
	})

	return NewRepository(db), db
}

func seedItem(t *testing.T, repo *Repository) *models.Item {
	t.Helper()
	item, err := repo.CreateItem(context.Background(), &models.Item{
		CollectionID:    uuid.New(),
		OriginalOwnerID: uuid.New(),
		Name:            "placeholder",
		Price:           "0",
		Currency:        "USD",
		UploadStatus:    enums.UploadStatusPending,
		AIStatus:        enums.AIStatusPending,
	})
	if err != nil {
		t.Fatalf("seeding item: %v", err)
	}
	return item
}

func TestMarkAICompletedExactlyOnce(t *testing.T) {
	repo, _ := newTestRepo(t)
	item := seedItem(t, repo)
	ctx := context.Background()

	imageURL := "https://live.example/p_b.jpg"
	aiLink := "https://www.google.com/search?tbm=shop&q=thing"
	wrote, err := repo.MarkAICompleted(ctx, item.ID, EnrichedFields{
		Name:     "Resolved Thing",
		Price:    "19.99",
		Currency: "USD",
		ImageURL: &imageURL,
		AILink:   &aiLink,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !wrote {
		t.Fatalf("first terminal write must succeed")
	}

	again, err := repo.MarkAICompleted(ctx, item.ID, EnrichedFields{Name: "Other", Price: "1", Currency: "USD"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again {
		t.Fatalf("second terminal write must be a no-op")
	}

	got, err := repo.FindItemByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("loading item: %v", err)
	}
	if got.Name != "Resolved Thing" || got.AIStatus != enums.AIStatusCompleted {
		t.Fatalf("unexpected final state: name=%q status=%s", got.Name, got.AIStatus)
	}
}

func TestTerminalStatesDoNotOverwriteEachOther(t *testing.T) {
	repo, _ := newTestRepo(t)
	item := seedItem(t, repo)
	ctx := context.Background()

	if wrote, err := repo.MarkAIFailed(ctx, item.ID, "inference failed"); err != nil || !wrote {
		t.Fatalf("first failed write: wrote=%v err=%v", wrote, err)
	}
	if wrote, _ := repo.MarkAISkipped(ctx, item.ID, "quota"); wrote {
		t.Fatalf("skipped must not overwrite failed")
	}
	if wrote, _ := repo.MarkAICompleted(ctx, item.ID, EnrichedFields{Name: "x", Price: "0", Currency: "USD"}); wrote {
		t.Fatalf("completed must not overwrite failed")
	}

	got, err := repo.FindItemByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("loading item: %v", err)
	}
	if got.AIStatus != enums.AIStatusFailed {
		t.Fatalf("status moved backward to %s", got.AIStatus)
	}
	if got.AIError == nil || *got.AIError != "inference failed" {
		t.Fatalf("ai_error lost: %v", got.AIError)
	}
}

func TestUploadStatusForwardOnly(t *testing.T) {
	repo, _ := newTestRepo(t)
	item := seedItem(t, repo)
	ctx := context.Background()

	if wrote, _ := repo.SetUploadStatus(ctx, item.ID, enums.UploadStatusCompleted); wrote {
		t.Fatalf("PENDING -> COMPLETED must be rejected")
	}
	if wrote, err := repo.SetUploadStatus(ctx, item.ID, enums.UploadStatusUploading); err != nil || !wrote {
		t.Fatalf("PENDING -> UPLOADING: wrote=%v err=%v", wrote, err)
	}
	if wrote, err := repo.SetUploadStatus(ctx, item.ID, enums.UploadStatusCompleted); err != nil || !wrote {
		t.Fatalf("UPLOADING -> COMPLETED: wrote=%v err=%v", wrote, err)
	}
	if wrote, _ := repo.SetUploadStatus(ctx, item.ID, enums.UploadStatusFailed); wrote {
		t.Fatalf("COMPLETED -> FAILED must be rejected")
	}
	if wrote, _ := repo.SetUploadStatus(ctx, item.ID, enums.UploadStatusPending); wrote {
		t.Fatalf("no transition back to PENDING")
	}
}

func TestListByCollectionPaginates(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	collectionID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := repo.CreateItem(ctx, &models.Item{
			CollectionID:    collectionID,
			OriginalOwnerID: uuid.New(),
			Name:            "item",
			Price:           "0",
			Currency:        "USD",
		})
		if err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	page1, next, err := repo.ListByCollection(ctx, collectionID, nil, 3)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(page1) != 3 || next == "" {
		t.Fatalf("expected full first page with cursor, got %d items, cursor %q", len(page1), next)
	}
}
