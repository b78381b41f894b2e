package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pwysocki/fakturownica/internal/common"
	"github.com/pwysocki/fakturownica/internal/repository"
)

// invoiceSchema keeps obviously broken payloads out of the store. All
// fields stay optional; the extraction layer already defaults anything
// missing. Totals may arrive as numbers or numeric strings.
const invoiceSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"numer_faktury": {"type": "string"},
		"waluta": {"type": "string"},
		"sprzedawca": {"type": "object", "properties": {"nazwa": {"type": "string"}}},
		"nabywca": {"type": "object", "properties": {"nazwa": {"type": "string"}}},
		"daty": {
			"type": "object",
			"properties": {
				"data_wystawienia": {"type": "string"},
				"termin_platnosci": {"type": "string"}
			}
		},
		"suma_netto": {"type": ["number", "string"]},
		"suma_vat": {"type": ["number", "string"]},
		"suma_brutto": {"type": ["number", "string"]}
	}
}`

// InvoicesHandler serves the invoice listing and the record-store
// write paths fed by the OCR service.
type InvoicesHandler struct {
	repo       repository.InvoiceRepository
	schema     *jsonschema.Schema
	uploadsDir string
	logger     *slog.Logger
}

func NewInvoicesHandler(repo repository.InvoiceRepository, uploadsDir string, logger *slog.Logger) *InvoicesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoicesHandler{
		repo:       repo,
		schema:     jsonschema.MustCompileString("faktura.schema.json", invoiceSchema),
		uploadsDir: uploadsDir,
		logger:     logger,
	}
}

type invoiceListItem struct {
	ID            int64   `json:"id"`
	Seller        string  `json:"sprzedawca"`
	Buyer         string  `json:"nabywca"`
	GrossTotal    float64 `json:"wartosc_brutto"`
	InvoiceNumber string  `json:"numer_faktury"`
}

// List handles GET /api/faktury, newest first.
func (h *InvoicesHandler) List(w http.ResponseWriter, r *http.Request) {
	invs, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("invoice listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read invoices")
		return
	}

	items := make([]invoiceListItem, 0, len(invs))
	for i := len(invs) - 1; i >= 0; i-- {
		f := invs[i].ExtractFields()
		items = append(items, invoiceListItem{
			ID:            invs[i].ID,
			Seller:        f.Seller,
			Buyer:         f.Buyer,
			GrossTotal:    f.Gross,
			InvoiceNumber: f.Number,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Insert handles POST /api/faktura: one raw invoice payload from the
// OCR service, schema-checked before it hits the store.
func (h *InvoicesHandler) Insert(w http.ResponseWriter, r *http.Request) {
	var payload any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.schema.Validate(payload); err != nil {
		h.logger.Warn("invoice payload rejected", "error", err)
		writeError(w, http.StatusBadRequest, "payload does not match invoice schema")
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if _, err := h.repo.Insert(r.Context(), raw); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store invoice")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

type updateRequest struct {
	InvoiceNumber string `json:"numer_faktury"`
	Field         string `json:"field"`
	Value         any    `json:"value"`
}

// Update handles PATCH /api/faktura/update: sets one dot-path field
// inside a stored payload, re-deriving the indexed columns.
func (h *InvoicesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.InvoiceNumber) == "" || strings.TrimSpace(req.Field) == "" {
		writeError(w, http.StatusBadRequest, "numer_faktury and field are required")
		return
	}

	err := h.repo.UpdateField(r.Context(), req.InvoiceNumber, req.Field, req.Value)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	default:
		h.logger.Error("invoice update failed", "numer_faktury", req.InvoiceNumber, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update invoice")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "updated",
		"field":  req.Field,
		"value":  req.Value,
	})
}

// DebugFiles handles GET /api/debug/files: lists the uploads directory.
func (h *InvoicesHandler) DebugFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.uploadsDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"uploads_dir": h.uploadsDir,
		"files":       names,
	})
}
