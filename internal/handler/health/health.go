package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a ping function such as (*sql.DB).PingContext.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// Dependency is a named Checker. A failing optional dependency degrades
// the service without taking it out of rotation.
type Dependency struct {
	Checker  Checker
	Optional bool
}

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// Report is the /healthz body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type Handler struct {
	deps    map[string]Dependency
	timeout time.Duration
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, deps map[string]Dependency) *Handler {
	return &Handler{deps: deps, timeout: 3 * time.Second, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

// Run checks every dependency concurrently.
func (h *Handler) Run(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		mu  sync.Mutex
		g   errgroup.Group
		rep = Report{Status: StatusOK, Checks: make(map[string]string, len(h.deps))}
	)
	for name, dep := range h.deps {
		g.Go(func() error {
			err := dep.Checker.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				rep.Checks[name] = StatusOK
				return nil
			}
			h.logger.Error("health check failed", "name", name, "optional", dep.Optional, "error", err)
			rep.Checks[name] = StatusError
			switch {
			case !dep.Optional:
				rep.Status = StatusError
			case rep.Status == StatusOK:
				rep.Status = StatusDegraded
			}
			return nil
		})
	}
	g.Wait()
	return rep
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	rep := h.Run(r.Context())

	status := http.StatusOK
	if rep.Status == StatusError {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(rep)
}
