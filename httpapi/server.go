// Package httpapi exposes the shop over HTTP: CRUD resources per entity
// and the autocomplete search endpoints. Every successful response is
// wrapped in a {"data": ...} envelope; other layers depend on that exact
// shape.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config tunes the server-wide behaviour.
type Config struct {
	// SearchRatePerSecond and SearchRateBurst shape the shared limiter on
	// the autocomplete endpoints; interactive typeahead can hammer them.
	SearchRatePerSecond float64
	SearchRateBurst     int
}

// Server routes shop requests. Resources and search endpoints are
// registered explicitly by the wiring layer.
type Server struct {
	mux     *http.ServeMux
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewServer creates an empty Server; register resources before serving.
func NewServer(cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SearchRatePerSecond <= 0 {
		cfg.SearchRatePerSecond = 50
	}
	if cfg.SearchRateBurst <= 0 {
		cfg.SearchRateBurst = 100
	}
	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.SearchRatePerSecond), cfg.SearchRateBurst),
	}
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return s
}

// Handler returns the root handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return s.logged(s.mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}

// envelope is the response contract: successful payloads live under
// "data".
type envelope struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
