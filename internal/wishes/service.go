package wishes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishlane/wishlane-backend/pkg/db/models"
	"github.com/wishlane/wishlane-backend/pkg/enums"
	pkgerrors "github.com/wishlane/wishlane-backend/pkg/errors"
	"github.com/wishlane/wishlane-backend/pkg/pagination"
)

const placeholderNameLimit = 120

type wishesRepository interface {
	CreateCollection(ctx context.Context, collection *models.WishCollection) (*models.WishCollection, error)
	FindCollection(ctx context.Context, id uuid.UUID) (*models.WishCollection, error)
	CreateItem(ctx context.Context, item *models.Item) (*models.Item, error)
	FindItemByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ListByCollection(ctx context.Context, collectionID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Item, string, error)
}

// Service exposes collection and item operations for the HTTP surface.
type Service interface {
	CreateCollection(ctx context.Context, userID uuid.UUID, title string) (*CollectionDTO, error)
	CreateWish(ctx context.Context, input CreateWishInput) (*ItemDTO, error)
	GetItem(ctx context.Context, userID, itemID uuid.UUID) (*ItemDTO, error)
	ListItems(ctx context.Context, userID, collectionID uuid.UUID, cursor string, limit int) ([]*ItemDTO, string, error)
}

type service struct {
	repo wishesRepository
}

// NewService constructs the wishes service.
func NewService(repo wishesRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishes repository required")
	}
	return &service{repo: repo}, nil
}

// CreateWishInput models a new wish. Exactly one of URL, Text, or HasImage
// must be set; image bytes are handled by the caller, the service only shapes
// the placeholder record.
type CreateWishInput struct {
	UserID       uuid.UUID
	CollectionID uuid.UUID
	URL          string
	Text         string
	HasImage     bool
}

func (s *service) CreateCollection(ctx context.Context, userID uuid.UUID, title string) (*CollectionDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection title required")
	}

	created, err := s.repo.CreateCollection(ctx, &models.WishCollection{
		OwnerUserID: userID,
		Title:       title,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating collection")
	}
	return CollectionToDTO(created), nil
}

func (s *service) CreateWish(ctx context.Context, input CreateWishInput) (*ItemDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if input.CollectionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection identity missing")
	}

	sources := 0
	for _, set := range []bool{input.URL != "", input.Text != "", input.HasImage} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of url, text, or image is required")
	}

	collection, err := s.repo.FindCollection(ctx, input.CollectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading collection")
	}
	if collection.OwnerUserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "collection belongs to another user")
	}

	item := &models.Item{
		CollectionID:    input.CollectionID,
		OriginalOwnerID: input.UserID,
		Name:            placeholderName(input),
		Price:           "0",
		Currency:        "USD",
		UploadStatus:    enums.UploadStatusPending,
		AIStatus:        enums.AIStatusPending,
	}
	if input.URL != "" {
		link := strings.TrimSpace(input.URL)
		item.Link = &link
	}

	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating item")
	}
	return ItemToDTO(created), nil
}

func (s *service) GetItem(ctx context.Context, userID, itemID uuid.UUID) (*ItemDTO, error) {
	item, err := s.loadOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	return ItemToDTO(item), nil
}

func (s *service) ListItems(ctx context.Context, userID, collectionID uuid.UUID, cursor string, limit int) ([]*ItemDTO, string, error) {
	collection, err := s.repo.FindCollection(ctx, collectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading collection")
	}
	if collection.OwnerUserID != userID {
		return nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "collection belongs to another user")
	}

	parsed, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	items, next, err := s.repo.ListByCollection(ctx, collectionID, parsed, limit)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing items")
	}

	dtos := make([]*ItemDTO, 0, len(items))
	for i := range items {
		dtos = append(dtos, ItemToDTO(&items[i]))
	}
	return dtos, next, nil
}

func (s *service) loadOwnedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Item, error) {
	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading item")
	}

	collection, err := s.repo.FindCollection(ctx, item.CollectionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading collection")
	}
	if collection.OwnerUserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "item belongs to another user")
	}
	return item, nil
}

// placeholderName produces the provisional name shown while the pipeline runs.
func placeholderName(input CreateWishInput) string {
	switch {
	case input.HasImage:
		return "Uploaded item"
	case input.Text != "":
		name := strings.Join(strings.Fields(input.Text), " ")
		if len(name) > placeholderNameLimit {
			name = strings.TrimSpace(name[:placeholderNameLimit])
		}
		return name
	default:
		return "New wish"
	}
}
