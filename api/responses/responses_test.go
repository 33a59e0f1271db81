package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/wishlane/wishlane-backend/pkg/errors"
)

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) (string, string, any) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details any    `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	return envelope.Error.Code, envelope.Error.Message, envelope.Error.Details
}

func TestWriteErrorQuotaMessagePassthrough(t *testing.T) {
	resp := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeQuota, "Daily AI limit reached. Upgrade to premium or try again tomorrow.").
		WithDetails(map[string]any{"limit": 10})
	WriteError(context.Background(), nil, resp, err)

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	code, msg, details := decodeError(t, resp)
	if code != string(pkgerrors.CodeQuota) {
		t.Fatalf("unexpected code %q", code)
	}
	if msg != "Daily AI limit reached. Upgrade to premium or try again tomorrow." {
		t.Fatalf("unexpected message %q", msg)
	}
	if details == nil {
		t.Fatal("expected details to pass through")
	}
}

func TestWriteErrorInternalHidesMessage(t *testing.T) {
	resp := httptest.NewRecorder()
	err := pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("pq: relation items does not exist"), "loading item")
	WriteError(context.Background(), nil, resp, err)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	_, msg, details := decodeError(t, resp)
	if msg != "internal server error" {
		t.Fatalf("internal detail leaked: %q", msg)
	}
	if details != nil {
		t.Fatal("internal errors must not carry details")
	}
}

func TestWriteErrorUntypedBecomesInternal(t *testing.T) {
	resp := httptest.NewRecorder()
	WriteError(context.Background(), nil, resp, errors.New("boom"))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	code, _, _ := decodeError(t, resp)
	if code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestWriteSuccessEnvelope(t *testing.T) {
	resp := httptest.NewRecorder()
	WriteSuccess(resp, map[string]string{"status": "live"})

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Data["status"] != "live" {
		t.Fatalf("unexpected payload %v", envelope.Data)
	}
}
