package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aradabingo/bingomaster/internal/testutil"
)

type fakeHealthChecker struct {
	err error
}

func (f fakeHealthChecker) Health(ctx context.Context) error {
	return f.err
}

func TestHealthHandler_AllHealthy(t *testing.T) {
	h := NewHealthHandler(fakeHealthChecker{}, fakeHealthChecker{})

	req := testutil.NewTestRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	testutil.AssertStatusCode(t, rec, http.StatusOK)
	testutil.AssertJSONContains(t, rec.Body.Bytes(), "status", "ok")
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Checks["postgres"] != "ok" || resp.Checks["redis"] != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHealthHandler_Degraded(t *testing.T) {
	h := NewHealthHandler(fakeHealthChecker{}, fakeHealthChecker{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Status != "degraded" || resp.Checks["redis"] != "connection refused" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
