package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/leadscore/internal/adapters/repository"
	"github.com/okian/leadscore/pkg/logger"
)

// exportBaseName is the download file name without extension.
const exportBaseName = "filtered_leads"

// ExportHandler serves filtered leads as a file download.
type ExportHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps Dependencies, l logger.Logger) *ExportHandler {
	return &ExportHandler{deps: deps, logger: l}
}

// HandleExport handles GET /api/export with the listing parameters plus
// format=csv|xlsx. An empty result is a header-only file.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	if !allowGet(w, r, op) {
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	format, err := repository.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	data, err := h.deps.ExportLeads(r.Context(), q, format)
	if err != nil {
		h.logger.Error(r.Context(), "export leads failed", logger.Error(err), logger.String("format", string(format)))
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportBaseName+"."+format.Extension()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		h.logger.Warn(r.Context(), "export write failed", logger.Error(err))
	}
}
