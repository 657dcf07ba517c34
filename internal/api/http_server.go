package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"libraryhub/internal/backend"
	"libraryhub/internal/borrowing"
	"libraryhub/internal/config"
	"libraryhub/internal/domain"
	"libraryhub/internal/metrics"
	"libraryhub/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Borrowings domain.BorrowingService
	Catalog    domain.CatalogService
	Deriver    *borrowing.Deriver
	// Health reports readiness of the read path; nil means always healthy.
	Health func(ctx context.Context) error
}

// HTTPServer exposes borrowing views, catalog and reports over JSON.
type HTTPServer struct {
	cfg    config.APIConfig
	deps   Deps
	server *http.Server
	auth   *HTTPAuth
	logger zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if deps.Deriver == nil {
		deps.Deriver = borrowing.NewDeriver(borrowing.DefaultPolicy(), nil)
	}
	srv := &HTTPServer{cfg: cfg, deps: deps, auth: NewHTTPAuth(cfg), logger: zerolog.Nop()}
	if logger != nil {
		srv.logger = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	handle := func(pattern, perm string, h http.HandlerFunc) {
		mux.Handle(pattern, s.auth.Require(perm, h))
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)

	handle("GET /api/v1/borrowings", PermReadBorrowings, s.handleListBorrowings)
	handle("GET /api/v1/borrowings/summary", PermReadBorrowings, s.handleSummary)
	handle("GET /api/v1/borrowings/{id}", PermReadBorrowings, s.handleGetBorrowing)
	handle("POST /api/v1/borrowings", PermWriteBorrowings, s.handleRequestBorrow)
	handle("POST /api/v1/borrowings/{id}/{action}", PermWriteBorrowings, s.handleBorrowingAction)
	handle("GET /api/v1/members/{id}/borrowings", PermReadBorrowings, s.handleMemberLoans)
	handle("GET /api/v1/members/{id}/history", PermReadBorrowings, s.handleMemberHistory)
	handle("POST /api/v1/derive", PermReadBorrowings, s.handleDerive)

	handle("GET /api/v1/books", PermReadBooks, s.handleListBooks)
	handle("GET /api/v1/books/{id}", PermReadBooks, s.handleGetBook)
	handle("POST /api/v1/books", PermWriteBooks, s.handleCreateBook)
	handle("PUT /api/v1/books/{id}", PermWriteBooks, s.handleUpdateBook)
	handle("DELETE /api/v1/books/{id}", PermWriteBooks, s.handleDeleteBook)

	handle("GET /api/v1/users", PermReadUsers, s.handleListUsers)
	handle("DELETE /api/v1/users/{id}", PermWriteUsers, s.handleDeleteUser)

	handle("GET /api/v1/reports/borrowings.xlsx", PermReadReports, s.handleBorrowingsReport)
}

// Handler returns the routed handler with middleware, for embedding and tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	cfg     config.APIConfig
	keys    keyring
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{cfg: cfg, keys: newKeyring(cfg.Auth), limiter: newRateLimiter(cfg.RateLimit)}
}

// Require wraps next with key checks for perm and the rate limit.
func (a *HTTPAuth) Require(perm string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			apiKey := strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader))
			extra := strings.TrimSpace(r.Header.Get(a.keys.extraHeader))
			if _, err := a.keys.check(apiKey, extra, perm); err != nil {
				statusCode := http.StatusUnauthorized
				var ae *authError
				if errors.As(err, &ae) && ae.forbidden {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if !a.limiter.allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

const requestIDHeader = "X-Request-ID"

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint, recorder.status)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps domain and backend errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var backendErr *backend.Error
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrActionsUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &backendErr):
		code := backendErr.StatusCode
		if code < 400 || code >= 500 {
			code = http.StatusBadGateway
		}
		writeError(w, code, backendErr.Message)
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
