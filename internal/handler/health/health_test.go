package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/playperu/dicebot/internal/handler/health"
)

type mockChecker struct{ err error }

func (m mockChecker) Check(_ context.Context) error { return m.err }

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]health.Checker
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name: "all healthy",
			checks: map[string]health.Checker{
				"redis":    mockChecker{},
				"telegram": mockChecker{},
			},
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"redis": "ok", "telegram": "ok"},
		},
		{
			name: "redis down",
			checks: map[string]health.Checker{
				"redis":    mockChecker{err: errors.New("refused")},
				"telegram": mockChecker{},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"redis": "error", "telegram": "ok"},
		},
		{
			name: "telegram down",
			checks: map[string]health.Checker{
				"redis":    mockChecker{},
				"telegram": mockChecker{err: errors.New("unauthorized")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"redis": "ok", "telegram": "error"},
		},
		{
			name: "both down",
			checks: map[string]health.Checker{
				"redis":    mockChecker{err: errors.New("refused")},
				"telegram": mockChecker{err: errors.New("timeout")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"redis": "error", "telegram": "error"},
		},
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(slog.Default(), tt.checks)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]struct{ Status string }
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding response: %v", err)
			}

			if len(body) != len(tt.wantBody) {
				t.Errorf("got %d entries, want %d", len(body), len(tt.wantBody))
			}
			for name, want := range tt.wantBody {
				if got := body[name].Status; got != want {
					t.Errorf("%s status = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestCheckerFuncSharesDeadline(t *testing.T) {
	var deadline time.Time
	h := health.NewHandler(slog.Default(), map[string]health.Checker{
		"redis": health.CheckerFunc(func(ctx context.Context) error {
			d, ok := ctx.Deadline()
			if !ok {
				return errors.New("no deadline")
			}
			deadline = d
			return nil
		}),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if until := time.Until(deadline); until <= 0 || until > 3*time.Second {
		t.Errorf("deadline %v out of range", until)
	}
}
