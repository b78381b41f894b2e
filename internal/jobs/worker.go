package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Converter renders one PDF into page images.
type Converter interface {
	Convert(ctx context.Context, pdfPath, baseName string) ([]string, error)
}

// Deliverer ships rendered pages to the OCR webhook.
type Deliverer interface {
	Send(ctx context.Context, jobID string, imagePaths []string) error
}

// Worker drains batch jobs one file at a time, in submission order.
// It is the only component that mutates a job's queue.
type Worker struct {
	store     *Store
	converter Converter
	deliverer Deliverer
	logger    *slog.Logger
}

func NewWorker(store *Store, converter Converter, deliverer Deliverer, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:     store,
		converter: converter,
		deliverer: deliverer,
		logger:    logger,
	}
}

// Start launches the drain loop for jobID unless one is already
// running; re-triggering a processing job is a no-op. It returns
// immediately, progress is visible through the completed counter.
func (w *Worker) Start(jobID string) {
	if !w.store.beginProcessing(jobID) {
		return
	}
	go w.drain(context.Background(), jobID)
}

func (w *Worker) drain(ctx context.Context, jobID string) {
	defer w.store.endProcessing(jobID)

	for {
		file, ok := w.store.front(jobID)
		if !ok {
			return
		}
		if err := w.processFile(ctx, jobID, file); err != nil {
			// skip and continue; the file is never retried
			w.logger.Error("file skipped", "job_id", jobID, "file", file.OriginalName, "error", err)
			w.store.skipFront(jobID)
			continue
		}
		w.store.completeFront(jobID)
	}
}

func (w *Worker) processFile(ctx context.Context, jobID string, file FileRef) error {
	images, err := w.converter.Convert(ctx, file.Path, pageBaseName(file.OriginalName))
	if err != nil {
		return err
	}
	if err := w.deliverer.Send(ctx, jobID, images); err != nil {
		return err
	}

	w.removeArtifacts(jobID, file.Path, images)
	return nil
}

// removeArtifacts deletes the source PDF and the rendered pages once
// the webhook has accepted them. Best-effort; a leftover file is worth
// a log line, not a failed job.
func (w *Worker) removeArtifacts(jobID, pdfPath string, images []string) {
	for _, p := range append([]string{pdfPath}, images...) {
		if err := os.Remove(p); err != nil {
			w.logger.Warn("failed to remove artifact", "job_id", jobID, "path", p, "error", err)
		}
	}
}

// pageBaseName builds a unique rasterization prefix from the uploaded
// file's name, stripped of anything path-like.
func pageBaseName(originalName string) string {
	name := filepath.Base(originalName)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." {
		name = "page"
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), name)
}
