package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pwysocki/fakturownica/internal/common"
	"github.com/pwysocki/fakturownica/internal/export"
	"github.com/pwysocki/fakturownica/internal/jobs"
	"github.com/pwysocki/fakturownica/internal/repository"
)

// NewRouter wires every endpoint of the service.
func NewRouter(
	cfg common.ServerConfig,
	store *jobs.Store,
	worker *jobs.Worker,
	repo repository.InvoiceRepository,
	exportSvc *export.Service,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	jobsHandler := NewJobsHandler(store, worker, cfg.UploadsDir, logger)
	invoicesHandler := NewInvoicesHandler(repo, cfg.UploadsDir, logger)
	exportHandler := NewExportHandler(exportSvc, logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", jobsHandler.Upload)
		r.Get("/job-status/{jobId}", jobsHandler.Status)

		r.Get("/faktury", invoicesHandler.List)
		r.Get("/faktury/xml", exportHandler.XML)
		r.Get("/faktury/export.xlsx", exportHandler.XLSX)
		r.Post("/faktura", invoicesHandler.Insert)
		r.Patch("/faktura/update", invoicesHandler.Update)

		r.Get("/debug/files", invoicesHandler.DebugFiles)
	})

	// inbound completion signal from the OCR service
	callback := strings.Trim(cfg.CallbackPath, "/")
	if callback == "" {
		callback = "fakturownica"
	}
	r.Post("/webhook/"+callback, jobsHandler.Webhook)

	// serve the uploaded PDFs for the frontend preview
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))

	return r
}
