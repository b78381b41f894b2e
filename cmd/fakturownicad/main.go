package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/pwysocki/fakturownica/internal/common"
	"github.com/pwysocki/fakturownica/internal/convert"
	"github.com/pwysocki/fakturownica/internal/delivery"
	"github.com/pwysocki/fakturownica/internal/export"
	"github.com/pwysocki/fakturownica/internal/jobs"
	"github.com/pwysocki/fakturownica/internal/repository"
	"github.com/pwysocki/fakturownica/internal/server"
)

func main() {
	// Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Env
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env", "error", err)
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	for _, dir := range []string{cfg.Server.UploadsDir, cfg.Server.ExportsDir, cfg.Raster.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Invoice store
	db, err := repository.Open(ctx, repository.Config{Path: cfg.Database.Path}, logger)
	if err != nil {
		logger.Error("failed to open invoice store", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	if err := repository.HealthCheck(ctx, db, cfg.Database.PingTimeout, logger); err != nil {
		logger.Error("invoice store health check failed", "error", err)
		os.Exit(1)
	}
	logger.Info("invoice store health OK")

	invoiceRepo := repository.NewInvoiceRepository(db, logger)
	exportSvc := export.NewService(invoiceRepo, cfg.Server.ExportsDir, logger)

	// Processing pipeline
	converter := convert.NewConverter(convert.Config{
		Pdftoppm:      cfg.Raster.Pdftoppm,
		DPI:           cfg.Raster.DPI,
		FirstPageOnly: cfg.Raster.FirstPageOnly,
		WorkDir:       cfg.Raster.WorkDir,
	}, logger)
	deliverer := delivery.NewClient(cfg.Delivery.WebhookURL, cfg.Delivery.Timeout, logger)

	store := jobs.NewStore(logger)
	store.StartJanitor(ctx, cfg.Jobs.TTL, cfg.Jobs.SweepInterval)
	worker := jobs.NewWorker(store, converter, deliverer, logger)

	// HTTP server
	handler := server.NewRouter(cfg.Server, store, worker, invoiceRepo, exportSvc, logger)
	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: handler,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
