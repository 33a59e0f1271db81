package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/wishlane/wishlane-backend/internal/wishes"
)

func TestCollectionCreateSuccess(t *testing.T) {
	userID := uuid.New()
	collectionID := uuid.New()
	svc := &testWishesService{
		createCollectionFn: func(ctx context.Context, uid uuid.UUID, title string) (*wishes.CollectionDTO, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			if title != "Birthday" {
				t.Fatalf("unexpected title %q", title)
			}
			return &wishes.CollectionDTO{ID: collectionID, Title: title}, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/collections", strings.NewReader(`{"title":"Birthday"}`), userID)
	req.Header.Set("Content-Type", "application/json")

	resp := httptest.NewRecorder()
	handler := CollectionCreate(svc, testLogger())
	handler(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data wishes.CollectionDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.ID != collectionID {
		t.Fatalf("unexpected collection id %s", envelope.Data.ID)
	}
}

func TestCollectionCreateMissingTitle(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/collections", strings.NewReader(`{}`), uuid.New())
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler := CollectionCreate(&testWishesService{}, testLogger())
	handler(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCollectionCreateUnknownField(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/collections", strings.NewReader(`{"title":"x","extra":true}`), uuid.New())
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler := CollectionCreate(&testWishesService{}, testLogger())
	handler(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCollectionItemsPassesCursorAndLimit(t *testing.T) {
	userID := uuid.New()
	collectionID := uuid.New()
	svc := &testWishesService{
		listItemsFn: func(ctx context.Context, uid, cid uuid.UUID, cursor string, limit int) ([]*wishes.ItemDTO, string, error) {
			if cid != collectionID {
				t.Fatalf("unexpected collection %s", cid)
			}
			if cursor != "abc" {
				t.Fatalf("unexpected cursor %q", cursor)
			}
			if limit != 5 {
				t.Fatalf("unexpected limit %d", limit)
			}
			return []*wishes.ItemDTO{{ID: uuid.New()}}, "next-token", nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/collections/"+collectionID.String()+"/items?cursor=abc&limit=5", nil, userID)
	req = addRouteParam(req, "collectionId", collectionID.String())

	resp := httptest.NewRecorder()
	handler := CollectionItems(svc, testLogger())
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Items      []wishes.ItemDTO `json:"items"`
			NextCursor string           `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(envelope.Data.Items))
	}
	if envelope.Data.NextCursor != "next-token" {
		t.Fatalf("unexpected next cursor %q", envelope.Data.NextCursor)
	}
}

func TestCollectionItemsInvalidLimit(t *testing.T) {
	collectionID := uuid.New()
	req := authedRequest(http.MethodGet, "/api/v1/collections/"+collectionID.String()+"/items?limit=zero", nil, uuid.New())
	req = addRouteParam(req, "collectionId", collectionID.String())
	resp := httptest.NewRecorder()
	handler := CollectionItems(&testWishesService{}, testLogger())
	handler(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
