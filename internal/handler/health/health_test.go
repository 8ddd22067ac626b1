package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playperu/qrhunt/internal/handler/health"
)

func ok(context.Context) error { return nil }

func failing(msg string) health.CheckerFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		deps       map[string]health.Dependency
		wantStatus int
		wantReport health.Report
	}{
		{
			name: "all healthy",
			deps: map[string]health.Dependency{
				"sqlite": {Checker: health.CheckerFunc(ok)},
				"redis":  {Checker: health.CheckerFunc(ok), Optional: true},
			},
			wantStatus: http.StatusOK,
			wantReport: health.Report{Status: "ok", Checks: map[string]string{"sqlite": "ok", "redis": "ok"}},
		},
		{
			name: "sqlite down",
			deps: map[string]health.Dependency{
				"sqlite": {Checker: failing("locked")},
				"redis":  {Checker: health.CheckerFunc(ok), Optional: true},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantReport: health.Report{Status: "error", Checks: map[string]string{"sqlite": "error", "redis": "ok"}},
		},
		{
			name: "redis down degrades",
			deps: map[string]health.Dependency{
				"sqlite": {Checker: health.CheckerFunc(ok)},
				"redis":  {Checker: failing("refused"), Optional: true},
			},
			wantStatus: http.StatusOK,
			wantReport: health.Report{Status: "degraded", Checks: map[string]string{"sqlite": "ok", "redis": "error"}},
		},
		{
			name: "both down",
			deps: map[string]health.Dependency{
				"sqlite": {Checker: failing("db")},
				"redis":  {Checker: failing("cache"), Optional: true},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantReport: health.Report{Status: "error", Checks: map[string]string{"sqlite": "error", "redis": "error"}},
		},
		{
			name:       "no dependencies",
			deps:       nil,
			wantStatus: http.StatusOK,
			wantReport: health.Report{Status: "ok", Checks: map[string]string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(slog.Default(), tt.deps)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var got health.Report
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if got.Status != tt.wantReport.Status {
				t.Errorf("overall status = %q, want %q", got.Status, tt.wantReport.Status)
			}
			for name, want := range tt.wantReport.Checks {
				if got.Checks[name] != want {
					t.Errorf("%s status = %q, want %q", name, got.Checks[name], want)
				}
			}
		})
	}
}
