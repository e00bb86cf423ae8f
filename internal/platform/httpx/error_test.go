package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	rec := httptest.NewRecorder()

	WriteError(ctx, rec, NewError("not_found", "tenant missing", http.StatusNotFound))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "not_found" {
		t.Fatalf("expected error code not_found, got %v", body["error"])
	}
	if body["message"] != "tenant missing" {
		t.Fatalf("expected message, got %v", body["message"])
	}
	if body["status"] != float64(http.StatusNotFound) {
		t.Fatalf("expected status field, got %v", body["status"])
	}
	if body["request_id"] != "req-123" {
		t.Fatalf("expected request id, got %v", body["request_id"])
	}
	if _, present := body["trace_id"]; present {
		t.Fatalf("expected no trace id without a span, got %v", body["trace_id"])
	}
}

func TestWriteErrorDefaultsStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, Error{Code: "internal", Message: "boom"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 default, got %d", rec.Code)
	}
}

func TestNewErrorSanitisesInputs(t *testing.T) {
	err := NewError("bad\ncode", strings.Repeat("m", 600), http.StatusBadRequest)
	if strings.Contains(err.Code, "\n") {
		t.Fatalf("expected newline stripped, got %q", err.Code)
	}
	if len(err.Message) != 512 {
		t.Fatalf("expected message capped at 512, got %d", len(err.Message))
	}
}
