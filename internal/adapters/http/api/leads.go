package api

import (
	"net/http"

	"github.com/okian/leadscore/pkg/logger"
)

// LeadsHandler serves scored lead listings.
type LeadsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewLeadsHandler creates a new leads handler.
func NewLeadsHandler(deps Dependencies, l logger.Logger) *LeadsHandler {
	return &LeadsHandler{deps: deps, logger: l}
}

// HandleGetLeads handles GET /api/leads?industry=&role=&location=&min_score=&sort=.
// The body is a JSON array, empty when nothing matches.
func (h *LeadsHandler) HandleGetLeads(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leads"
	if !allowGet(w, r, op) {
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rows, err := h.deps.ListLeads(r.Context(), q)
	if err != nil {
		h.logger.Error(r.Context(), "list leads failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
