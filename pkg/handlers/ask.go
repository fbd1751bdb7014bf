package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

// AskHandler serves /api/ask.
type AskHandler struct {
	askService services.AskService
	logger     *zap.Logger
}

// NewAskHandler creates an AskHandler.
func NewAskHandler(askService services.AskService, logger *zap.Logger) *AskHandler {
	return &AskHandler{askService: askService, logger: logger.Named("ask_handler")}
}

// RegisterRoutes registers the ask endpoints on mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/ask", h.Ask)
	mux.HandleFunc("POST /api/ask", h.Ask)
	mux.HandleFunc("GET /api/schema", h.Schema)
}

// Ask handles GET|POST /api/ask?q=...&format=json|sql|markdown|download.
//
// A blank question is 400 and a catalog failure is 503, both with the JSON
// result body. Every other outcome, diagnostics included, is 200.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	question, format, err := ParseAskParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.askService.Ask(r.Context(), question)
	switch {
	case errors.Is(err, apperrors.ErrEmptyQuestion):
		h.writeJSON(w, http.StatusBadRequest, result)
		return
	case errors.Is(err, apperrors.ErrCatalogUnavailable):
		h.writeJSON(w, http.StatusServiceUnavailable, result)
		return
	case err != nil:
		h.logger.Error("Ask failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to answer the question")
		return
	}

	if format == FormatJSON {
		h.writeJSON(w, http.StatusOK, result)
		return
	}

	// Text formats only render SQL that ran. A run that stopped on a
	// diagnostic has either no SQL or SQL that was blocked or failed.
	displaySQL := result.SQLClean
	if displaySQL == "" {
		displaySQL = result.SQL
	}
	if displaySQL == "" || result.ErrorKind != models.ErrorKindNone {
		h.writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	var writeErr error
	switch format {
	case FormatSQL:
		writeErr = WriteText(w, "text/plain; charset=utf-8", displaySQL+"\n")
	case FormatMarkdown:
		writeErr = WriteText(w, "text/markdown; charset=utf-8", fmt.Sprintf("```sql\n%s\n```\n", displaySQL))
	case FormatDownload:
		w.Header().Set("Content-Disposition", `attachment; filename="query.sql"`)
		writeErr = WriteText(w, "application/sql", displaySQL+"\n")
	}
	if writeErr != nil {
		h.logger.Error("Failed to write ask response", zap.Error(writeErr))
	}
}

// Schema handles GET /api/schema: the base tables the pipeline may query.
func (h *AskHandler) Schema(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.askService.Schema(r.Context())
	if err != nil {
		h.logger.Error("Failed to read schema", zap.Error(err))
		h.writeError(w, http.StatusServiceUnavailable, "catalog_unavailable", "The database schema could not be read")
		return
	}
	h.writeJSON(w, http.StatusOK, catalog)
}

func (h *AskHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *AskHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
