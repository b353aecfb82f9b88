// Package chi exposes search sessions over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entrysearch/internal/domain"
	"github.com/kailas-cloud/entrysearch/internal/domain/entry"
	"github.com/kailas-cloud/entrysearch/internal/domain/filter"
	"github.com/kailas-cloud/entrysearch/internal/domain/query"
	logpkg "github.com/kailas-cloud/entrysearch/internal/logger"
	healthuc "github.com/kailas-cloud/entrysearch/internal/usecase/health"
	registryuc "github.com/kailas-cloud/entrysearch/internal/usecase/registry"
	sessionuc "github.com/kailas-cloud/entrysearch/internal/usecase/session"
	"github.com/kailas-cloud/entrysearch/internal/version"
)

// ErrorCode is a machine-readable error code returned in error bodies.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeSessionNotFound  ErrorCode = "session_not_found"
	ErrorCodeSessionClosed    ErrorCode = "session_closed"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the session API.
type Server struct {
	sessions      *registryuc.Service
	health        *healthuc.Service
	metrics       http.Handler
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. metricsHandler serves GET /metrics.
func NewServer(
	sessions *registryuc.Service,
	health *healthuc.Service,
	metricsHandler http.Handler,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sessions: sessions,
		health:   health,
		metrics:  metricsHandler,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, ErrorCodeSessionNotFound),
		sentinelHandler(domain.ErrClosed, http.StatusGone, ErrorCodeSessionClosed),
		sentinelHandler(domain.ErrInvalidPageSize, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidPage, http.StatusBadRequest, ErrorCodeValidationFailed),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Route("/{session}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Put("/search", s.SetSearch)
			r.Put("/filters", s.SetFilters)
			r.Put("/page", s.SetPage)
			r.Put("/page-size", s.SetPageSize)
			r.Post("/refresh", s.Refresh)
		})
	})
}

// Handler returns a router serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

// CreateSessionRequest is the body of POST /sessions.
// Filters and Blocks are concatenated in that order; when both are absent the server defaults apply.
type CreateSessionRequest struct {
	PageSize *query.PageSize    `json:"pageSize,omitempty"`
	Locale   string             `json:"locale,omitempty"`
	Filters  []filter.Block     `json:"filters,omitempty"`
	Blocks   []entry.BlockValue `json:"blocks,omitempty"`
}

// SessionResponse is the presentation view of a session.
type SessionResponse struct {
	ID          string         `json:"id"`
	Search      string         `json:"search"`
	Locale      string         `json:"locale"`
	PageSize    int            `json:"pageSize"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	TotalCount  int            `json:"totalCount"`
	IsLoading   bool           `json:"isLoading"`
	IsEmpty     bool           `json:"isEmpty"`
	Entries     []entry.Record `json:"entries"`
	Filters     filter.Map     `json:"filters"`
	Error       string         `json:"error,omitempty"`
}

// QueryResponse is returned by mutations: the derived query that was scheduled.
type QueryResponse struct {
	Query query.Query `json:"query"`
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	cfg := sessionuc.Config{Locale: req.Locale}
	if req.PageSize != nil {
		cfg.PageSize = req.PageSize.Int()
	}
	if req.Filters != nil || req.Blocks != nil {
		cfg.Blocks = append(append([]filter.Block{}, req.Filters...), filter.BlocksFromValues(req.Blocks)...)
	}

	id, st, err := s.sessions.Create(cfg)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/sessions/"+id)
	writeJSON(w, http.StatusCreated, sessionToResponse(id, st.Snapshot()))
}

// GetSession handles GET /sessions/{session}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	st, err := s.sessions.Get(id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(id, st.Snapshot()))
}

// DeleteSession handles DELETE /sessions/{session}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "session")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetSearch handles PUT /sessions/{session}/search.
func (s *Server) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Search string `json:"search"`
	}
	s.mutate(w, r, &req, func(st *sessionuc.Store) (query.Query, error) {
		return st.SetSearch(req.Search)
	})
}

// SetFilters handles PUT /sessions/{session}/filters.
func (s *Server) SetFilters(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filters filter.Map `json:"filters"`
	}
	s.mutate(w, r, &req, func(st *sessionuc.Store) (query.Query, error) {
		return st.SetAdditionalFilters(req.Filters)
	})
}

// SetPage handles PUT /sessions/{session}/page.
func (s *Server) SetPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page *int `json:"page"`
	}
	s.mutate(w, r, &req, func(st *sessionuc.Store) (query.Query, error) {
		if req.Page == nil {
			return query.Query{}, errMissingField("page")
		}
		return st.SetCurrentPage(*req.Page)
	})
}

// SetPageSize handles PUT /sessions/{session}/page-size.
func (s *Server) SetPageSize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PageSize *query.PageSize `json:"pageSize"`
	}
	s.mutate(w, r, &req, func(st *sessionuc.Store) (query.Query, error) {
		if req.PageSize == nil {
			return query.Query{}, errMissingField("pageSize")
		}
		return st.SetPageSize(req.PageSize.Int())
	})
}

// Refresh handles POST /sessions/{session}/refresh.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, nil, func(st *sessionuc.Store) (query.Query, error) {
		return st.Refresh()
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":   report.Status,
		"checks":   report.Results(),
		"sessions": report.Sessions,
		"version":  version.Get(),
	})
}

// mutate decodes the body into req (when non-nil), resolves the session and applies fn.
func (s *Server) mutate(
	w http.ResponseWriter, r *http.Request, req any,
	fn func(st *sessionuc.Store) (query.Query, error),
) {
	if req != nil {
		if err := decodeBody(r, req); err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	st, err := s.sessions.Get(chi.URLParam(r, "session"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	q, err := fn(st)
	if err != nil {
		var mf missingFieldError
		if errors.As(err, &mf) {
			writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, mf.Error())
			return
		}
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, QueryResponse{Query: q})
}

type missingFieldError string

func (e missingFieldError) Error() string { return string(e) + " is required" }

func errMissingField(name string) error { return missingFieldError(name) }

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func sessionToResponse(id string, snap sessionuc.Snapshot) SessionResponse {
	entries := snap.Entries
	if entries == nil {
		entries = []entry.Record{}
	}
	filters := snap.Filters
	if filters == nil {
		filters = filter.Map{}
	}
	resp := SessionResponse{
		ID:          id,
		Search:      snap.Search,
		Locale:      snap.Locale,
		PageSize:    snap.PageSize,
		CurrentPage: snap.CurrentPage,
		TotalPages:  snap.TotalPages,
		TotalCount:  snap.TotalCount,
		IsLoading:   snap.IsLoading,
		IsEmpty:     snap.IsEmpty(),
		Entries:     entries,
		Filters:     filters,
	}
	if snap.Err != nil {
		resp.Error = safeDomainMessage(snap.Err)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrSessionNotFound,
		domain.ErrClosed,
		domain.ErrInvalidPageSize,
		domain.ErrInvalidPage,
		domain.ErrDecode,
		domain.ErrContentSource,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
