package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pwysocki/fakturownica/internal/common"
	"github.com/pwysocki/fakturownica/internal/export"
)

// ExportHandler serves the export downloads.
type ExportHandler struct {
	svc    *export.Service
	logger *slog.Logger
}

func NewExportHandler(svc *export.Service, logger *slog.Logger) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{svc: svc, logger: logger}
}

// XML handles GET /api/faktury/xml. The store is purged only after the
// whole document has been written to the client; a failed write leaves
// every record in place for the next attempt.
func (h *ExportHandler) XML(w http.ResponseWriter, r *http.Request) {
	filename, data, err := h.svc.ExportXML(r.Context())
	if err != nil {
		if errors.Is(err, common.ErrNoRecordsToExport) {
			writeError(w, http.StatusNotFound, "no invoices to export")
			return
		}
		h.logger.Error("export.xml.failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate export")
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))

	if _, err := w.Write(data); err != nil {
		h.logger.Warn("export hand-off failed, keeping invoices", "error", err)
		return
	}

	if err := h.svc.Purge(r.Context()); err != nil {
		// the client already has the document; the next export will
		// re-send these records
		h.logger.Error("export purge failed", "error", err)
	}
}

// XLSX handles GET /api/faktury/export.xlsx. Reporting only, no purge.
func (h *ExportHandler) XLSX(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportXLSX(r.Context())
	if err != nil {
		if errors.Is(err, common.ErrNoRecordsToExport) {
			writeError(w, http.StatusNotFound, "no invoices to export")
			return
		}
		h.logger.Error("export.xlsx.failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate export")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="faktury.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
