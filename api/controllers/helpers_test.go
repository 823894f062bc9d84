package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/teahaven/teahaven-backend/api/middleware"
	"github.com/teahaven/teahaven-backend/pkg/enums"
	"github.com/teahaven/teahaven-backend/pkg/logger"
	"github.com/teahaven/teahaven-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

// newAuthedRequest builds a request with identity context the way the auth
// middleware would seed it.
func newAuthedRequest(t *testing.T, method, target string, body any, userID uuid.UUID, role enums.UserRole) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	ctx = middleware.WithSessionID(ctx, uuid.NewString())
	return req.WithContext(ctx)
}

// withPathParam attaches a chi route parameter so chi.URLParam resolves it.
func withPathParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder, data any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, got %s", rec.Body.String())
	}
	if data != nil {
		if err := json.Unmarshal(envelope.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()

	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (body %s)", err, rec.Body.String())
	}
	if envelope.Success {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return envelope.Error
}
