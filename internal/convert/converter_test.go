package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwysocki/fakturownica/internal/common"
)

// stubRunner fakes pdftoppm: it records the invocation and optionally
// drops output files into the work directory.
type stubRunner struct {
	name    string
	args    []string
	outputs []string // files created on a successful run
	err     error
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.name = name
	s.args = args
	if s.err != nil {
		return nil, []byte("Syntax Error: couldn't read xref table"), s.err
	}
	for _, p := range s.outputs {
		if err := os.WriteFile(p, []byte("jpeg"), 0o644); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

func newTestConverter(t *testing.T, cfg Config) (*Converter, *stubRunner) {
	t.Helper()
	if cfg.WorkDir == "" {
		cfg.WorkDir = t.TempDir()
	}
	c := NewConverter(cfg, nil)
	r := &stubRunner{}
	c.runner = r
	return c, r
}

func TestConvertReturnsPagesInOrder(t *testing.T) {
	c, r := newTestConverter(t, Config{})
	prefix := filepath.Join(c.cfg.WorkDir, "inv")
	r.outputs = []string{prefix + "-2.jpg", prefix + "-1.jpg", prefix + "-3.jpg"}

	got, err := c.Convert(context.Background(), "/tmp/in.pdf", "inv")
	require.NoError(t, err)
	assert.Equal(t, []string{prefix + "-1.jpg", prefix + "-2.jpg", prefix + "-3.jpg"}, got)

	assert.Equal(t, "pdftoppm", r.name)
	assert.Equal(t, []string{"-jpeg", "/tmp/in.pdf", prefix}, r.args)
}

func TestConvertToolFailure(t *testing.T) {
	c, r := newTestConverter(t, Config{})
	r.err = errors.New("exit status 1")

	_, err := c.Convert(context.Background(), "/tmp/in.pdf", "inv")
	assert.ErrorIs(t, err, common.ErrConversionFailed)
}

func TestConvertNoOutput(t *testing.T) {
	// tool exits 0 but writes nothing matching the prefix
	c, _ := newTestConverter(t, Config{})

	_, err := c.Convert(context.Background(), "/tmp/in.pdf", "inv")
	assert.ErrorIs(t, err, common.ErrNoOutputProduced)
}

func TestConvertFlags(t *testing.T) {
	c, r := newTestConverter(t, Config{DPI: 300, FirstPageOnly: true, Pdftoppm: "/opt/poppler/pdftoppm"})
	prefix := filepath.Join(c.cfg.WorkDir, "inv")
	r.outputs = []string{prefix + "-1.jpg"}

	_, err := c.Convert(context.Background(), "/tmp/in.pdf", "inv")
	require.NoError(t, err)
	assert.Equal(t, "/opt/poppler/pdftoppm", r.name)
	assert.Equal(t, []string{"-jpeg", "-r", "300", "-f", "1", "-l", "1", "/tmp/in.pdf", prefix}, r.args)
}

func TestConvertLeavesSourcePDF(t *testing.T) {
	c, r := newTestConverter(t, Config{})
	pdf := filepath.Join(t.TempDir(), "in.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o644))
	r.outputs = []string{filepath.Join(c.cfg.WorkDir, "inv-1.jpg")}

	_, err := c.Convert(context.Background(), pdf, "inv")
	require.NoError(t, err)
	_, err = os.Stat(pdf)
	assert.NoError(t, err)
}
