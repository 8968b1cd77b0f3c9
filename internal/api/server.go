package api

import (
	"context"
	"encoding/json"
	"net/http"

	"portfolio/internal/logger"
	"portfolio/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Counter is the part of the counter engine the handlers need. Neither call
// fails; degraded values come back as ordinary counts.
type Counter interface {
	Get(ctx context.Context) uint64
	Increment(ctx context.Context) uint64
}

// NewServer wires the visitor-count handlers into a router and exposes a health check.
func NewServer(counter Counter, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return HandlerWithOptions(&counterServer{counter: counter}, ChiServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Debug("rejected request", "path", r.URL.Path, "err", err)
			writeJSON(w, http.StatusBadRequest, Error{Message: err.Error()})
		},
	})
}

type counterServer struct {
	counter Counter
}

var _ ServerInterface = (*counterServer)(nil)

func (s *counterServer) GetVisitorCount(w http.ResponseWriter, r *http.Request, params GetVisitorCountParams) {
	count := s.counter.Get(r.Context())

	resp := VisitorCount{Count: count}
	if params.Format != nil && *params.Format == CountFormatCompact {
		display := model.FormatCompact(count)
		resp.Display = &display
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *counterServer) IncrementVisitorCount(w http.ResponseWriter, r *http.Request) {
	// A visit counts even if the client hangs up before the reply.
	count := s.counter.Increment(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusOK, VisitorCount{Count: count})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
