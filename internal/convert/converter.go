package convert

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pwysocki/fakturownica/constants"
	"github.com/pwysocki/fakturownica/internal/common"
)

type Config struct {
	Pdftoppm      string // binary name or absolute path; if empty -> "pdftoppm"
	DPI           int    // rasterization DPI; 0 = tool default
	FirstPageOnly bool   // render only the first page
	WorkDir       string // directory receiving rendered pages
}

// Converter invokes pdftoppm to rasterize a PDF into JPEG pages.
type Converter struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewConverter(cfg Config, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "./ocrjpeg"
	}
	return &Converter{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Convert renders pdfPath into <WorkDir>/<baseName>-N.jpg and returns
// the produced paths in page order. The source PDF is left in place.
func (c *Converter) Convert(ctx context.Context, pdfPath, baseName string) ([]string, error) {
	prefix := filepath.Join(c.cfg.WorkDir, baseName)

	// pdftoppm -jpeg [-r DPI] [-f 1 -l 1] <in.pdf> <prefix>
	args := []string{"-jpeg"}
	if c.cfg.DPI > 0 {
		args = append(args, "-r", strconv.Itoa(c.cfg.DPI))
	}
	if c.cfg.FirstPageOnly {
		args = append(args, "-f", "1", "-l", "1")
	}
	args = append(args, pdfPath, prefix)

	_, errb, err := c.runner.Run(ctx, c.cfg.Pdftoppm, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v (%s)", common.ErrConversionFailed, pdfPath, err, truncate(string(errb), 512))
	}

	// collect generated jpegs (prefix-1.jpg, prefix-2.jpg, ...)
	matches, _ := filepath.Glob(prefix + "*." + constants.ImageExt)
	sort.Strings(matches)
	if len(matches) == 0 {
		// tool exited 0 but nothing matched; naming mismatch or version skew
		return nil, fmt.Errorf("%w: no %s*.%s on disk", common.ErrNoOutputProduced, prefix, constants.ImageExt)
	}

	c.logger.Debug("pdf rasterized", "pdf", pdfPath, "pages", len(matches))
	return matches, nil
}
