// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/leadscore/internal/adapters/repository"
	service "github.com/okian/leadscore/internal/app"
	"github.com/okian/leadscore/internal/domain/lead"
	"github.com/okian/leadscore/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	ListLeads(ctx context.Context, q service.Query) (lead.Scored, error)
	ExportLeads(ctx context.Context, q service.Query, f repository.Format) ([]byte, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	leadsHandler  *LeadsHandler
	exportHandler *ExportHandler

	corsOrigin string
	logger     logger.Logger
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithCORSOrigin sets Access-Control-Allow-Origin for /api routes.
func WithCORSOrigin(origin string) ServerOption {
	return func(s *Server) {
		if origin != "" {
			s.corsOrigin = origin
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{corsOrigin: "*"}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.leadsHandler = NewLeadsHandler(deps, s.logger)
	s.exportHandler = NewExportHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.Handle("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/stats", RequestID(MetricsMiddleware(s.statsHandler.HandleStats, "stats")))
	mux.Handle("/api/leads", RequestID(CORS(s.corsOrigin, MetricsMiddleware(s.leadsHandler.HandleGetLeads, "leads"))))
	mux.Handle("/api/export", RequestID(CORS(s.corsOrigin, MetricsMiddleware(s.exportHandler.HandleExport, "export"))))

	s.logger.Debug(ctx, "api routes registered", logger.String("cors_origin", s.corsOrigin))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// parseQuery reads the filter and sort parameters shared by listing and
// export. min_score defaults to 0.
func parseQuery(r *http.Request) (service.Query, error) {
	v := r.URL.Query()
	q := service.Query{
		Criteria: lead.Criteria{
			Industry: strings.TrimSpace(v.Get("industry")),
			Role:     strings.TrimSpace(v.Get("role")),
			Location: strings.TrimSpace(v.Get("location")),
		},
	}
	if raw := strings.TrimSpace(v.Get("min_score")); raw != "" {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
			return service.Query{}, fmt.Errorf("min_score must be a number, got %q", raw)
		}
		q.MinScore = score
	}
	if raw := v.Get("sort"); raw != "" {
		order, err := lead.ParseSortOrder(raw)
		if err != nil {
			return service.Query{}, err
		}
		q.Sort = order
	}
	return q, nil
}

// allowGet writes 405 and reports false for anything but GET and HEAD.
func allowGet(w http.ResponseWriter, r *http.Request, op string) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
	return false
}
