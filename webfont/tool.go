package webfont

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tsawler/pdfhtml/diag"
)

// DefaultToolTimeout bounds one external conversion.
const DefaultToolTimeout = 30 * time.Second

// Tool converts font programs the module cannot repackage itself (bare CFF
// and Type 1) into TrueType or OpenType.
type Tool interface {
	// Available reports diag.ErrToolUnavailable, wrapped, when the tool
	// cannot run.
	Available(ctx context.Context) error
	Convert(ctx context.Context, program []byte) ([]byte, error)
}

// FontForgeTool drives the fontforge command line.
type FontForgeTool struct {
	path    string
	timeout time.Duration

	once     sync.Once
	probeErr error
}

// NewFontForgeTool returns a tool running the fontforge binary at path, or
// the first one on PATH when path is empty.
func NewFontForgeTool(path string) *FontForgeTool {
	if path == "" {
		path = "fontforge"
	}
	return &FontForgeTool{path: path, timeout: DefaultToolTimeout}
}

// Available runs "fontforge -version" the first time it is called and
// reports the same result afterwards.
func (t *FontForgeTool) Available(ctx context.Context) error {
	t.once.Do(func() {
		bin, err := exec.LookPath(t.path)
		if err != nil {
			t.probeErr = fmt.Errorf("%s: %w", t.path, diag.ErrToolUnavailable)
			return
		}
		ctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()
		if err := exec.CommandContext(ctx, bin, "-version").Run(); err != nil {
			t.probeErr = fmt.Errorf("%s -version: %v: %w", bin, err, diag.ErrToolUnavailable)
			return
		}
		t.path = bin
	})
	return t.probeErr
}

const fontforgeScript = `Open($1)
Generate($2)
`

// Convert writes program to a scratch directory and asks fontforge to
// regenerate it as TrueType.
func (t *FontForgeTool) Convert(ctx context.Context, program []byte) ([]byte, error) {
	if err := t.Available(ctx); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "pdfhtml-font-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.font")
	out := filepath.Join(dir, "out.ttf")
	if err := os.WriteFile(in, program, 0o600); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, t.path, "-lang=ff", "-script", "-", in, out)
	cmd.Stdin = strings.NewReader(fontforgeScript)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("fontforge timed out after %s: %w", t.timeout, ctx.Err())
		}
		return nil, fmt.Errorf("fontforge: %v: %s", err, firstLine(stderr.String()))
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("fontforge produced no output: %w", err)
	}
	return data, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
