package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"biblioteca/internal/app"
	"biblioteca/internal/ratelimit"
	"biblioteca/internal/util"
	"biblioteca/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Limiter        *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
}

// Server exposes the library and catalog HTTP endpoints.
type Server struct {
	app     *app.App
	limiter *ratelimit.FixedWindowLimiter
	trusted *util.TrustedProxies
	mux     *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	s := &Server{
		app:     cfg.App,
		limiter: cfg.Limiter,
		trusted: cfg.TrustedProxies,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = s.withRateLimit(h)
	h = util.WithCORS(h)
	h = util.WithSecurityHeaders(h)
	h = util.WithRequestLog(h)
	h = util.WithRequestID(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleHome)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/books", s.handleBooks)
	s.mux.HandleFunc("/books/", s.handleBookByPath)

	s.mux.HandleFunc("/products", s.handleProducts)
	s.mux.HandleFunc("/products/", s.handleProductByPath)

	s.mux.HandleFunc("/categories", s.handleCategories)
	s.mux.HandleFunc("/categories/", s.handleCategoryByID)

	s.mux.HandleFunc("/users", s.handleUsers)
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(util.ClientIP(r, s.trusted)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "RATE_LIMITED")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		notFound(w)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "biblioteca: personal library and catalog API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondAppError maps core errors onto HTTP responses. Validation
// failures carry the offending field; a missing record is 404.
func (s *Server) respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErr *domain.FieldError
	switch {
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found", "RECORD_NOT_FOUND")
	case errors.As(err, &fieldErr):
		code := "VALIDATION_INVALID_FORMAT"
		if fieldErr.Kind == domain.ErrDanglingReference {
			code = "VALIDATION_DANGLING_REFERENCE"
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fieldErr.Error(),
			Code:  code,
			Field: fieldErr.Field,
		})
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error", "SYSTEM_INTERNAL_ERROR")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseLimit reads a limit query parameter, clamped to 1..50 around the
// given default.
func parseLimit(r *http.Request, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > 50 {
		return 50
	}
	return n
}

func parseSkip(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("skip"))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed", "SYSTEM_METHOD_NOT_ALLOWED")
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found", "SYSTEM_NOT_FOUND")
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg, "REQUEST_INVALID")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
