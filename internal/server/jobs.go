package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pwysocki/fakturownica/constants"
	"github.com/pwysocki/fakturownica/internal/jobs"
)

// maxUploadMemory bounds how much of a multipart body is held in
// memory before parts spill to temp files.
const maxUploadMemory = 32 << 20

// JobsHandler serves batch submission, status polling, and the inbound
// completion webhook.
type JobsHandler struct {
	store      *jobs.Store
	worker     *jobs.Worker
	uploadsDir string
	logger     *slog.Logger
}

func NewJobsHandler(store *jobs.Store, worker *jobs.Worker, uploadsDir string, logger *slog.Logger) *JobsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobsHandler{
		store:      store,
		worker:     worker,
		uploadsDir: uploadsDir,
		logger:     logger,
	}
}

// Upload handles POST /api/upload. Every file part, whatever its field
// name, is saved into the uploads directory and queued as one batch.
func (h *JobsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.logger.Error("upload parse failed", "error", err)
		writeError(w, http.StatusBadRequest, "no files submitted")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	var files []jobs.FileRef
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			// a part that can never rasterize would only stall the
			// batch counter, so it is rejected here
			if !constants.IsAllowedUpload(filepath.Ext(fh.Filename)) {
				h.logger.Warn("rejecting non-pdf upload", "file", fh.Filename)
				continue
			}
			ref, err := h.saveUpload(fh.Filename, fh)
			if err != nil {
				h.logger.Error("failed to store upload", "file", fh.Filename, "error", err)
				continue
			}
			files = append(files, ref)
		}
	}

	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files submitted")
		return
	}

	jobID := h.store.Create(files)
	h.worker.Start(jobID)

	writeJSON(w, http.StatusOK, map[string]any{
		"jobId": jobID,
		"total": len(files),
	})
}

func (h *JobsHandler) saveUpload(name string, fh *multipart.FileHeader) (jobs.FileRef, error) {
	src, err := fh.Open()
	if err != nil {
		return jobs.FileRef{}, err
	}
	defer src.Close()

	dstPath := filepath.Join(h.uploadsDir, uuid.NewString())
	dst, err := os.Create(dstPath)
	if err != nil {
		return jobs.FileRef{}, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dstPath)
		return jobs.FileRef{}, err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return jobs.FileRef{}, err
	}

	return jobs.FileRef{OriginalName: filepath.Base(name), Path: dstPath}, nil
}

// Status handles GET /api/job-status/{jobId}.
func (h *JobsHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	total, completed, ok := h.store.Status(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"total":     total,
		"completed": completed,
	})
}

type webhookRequest struct {
	JobID string `json:"jobId"`
}

// Webhook handles the inbound completion signal. A recognized jobId
// advances that job's counter; either way the caller gets OK, the OCR
// side has nothing useful to do with an error.
func (h *JobsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.JobID != "" {
		if h.store.Advance(req.JobID) {
			h.logger.Info("webhook advanced job", "job_id", req.JobID)
		} else {
			h.logger.Warn("webhook for unknown job", "job_id", req.JobID)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
