package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pwysocki/fakturownica/internal/common"
)

// Client posts rendered invoice pages to the OCR webhook as one
// multipart request per source PDF.
type Client struct {
	endpoint string
	hc       *http.Client
	logger   *slog.Logger
}

func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	// The webhook lives on an internal host behind a self-signed
	// certificate; verification stays off for this client only.
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return &Client{
		endpoint: endpoint,
		hc:       &http.Client{Transport: tr, Timeout: timeout},
		logger:   logger,
	}
}

// Send ships the images for one job as a single blocking POST. The body
// carries a jobId field plus one "file" part per image and is streamed,
// so there is no size ceiling. No retries; that is the caller's call.
func (c *Client) Send(ctx context.Context, jobID string, imagePaths []string) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeBody(mw, jobID, imagePaths))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: remote returned %s", common.ErrDeliveryFailed, resp.Status)
	}

	c.logger.Info("delivery.ok",
		"job_id", jobID,
		"images", len(imagePaths),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func writeBody(mw *multipart.Writer, jobID string, imagePaths []string) error {
	if err := mw.WriteField("jobId", jobID); err != nil {
		return err
	}
	for _, p := range imagePaths {
		part, err := mw.CreateFormFile("file", filepath.Base(p))
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		_, err = io.Copy(part, f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return mw.Close()
}
