package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/scandoc/invoice-ocr/internal/common"
)

// Config holds the tesseract invocation parameters.
type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Language  string // default "eng"
	PSM       int    // page segmentation mode; default 6
	OEM       int    // engine mode; default 3
	Timeout   time.Duration
}

// Engine recognizes text in image regions by shelling out to tesseract.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewEngine(cfg Config, runner Runner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	if cfg.OEM <= 0 {
		cfg.OEM = 3
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Engine{cfg: cfg, runner: runner, logger: logger}
}

// Recognize runs OCR on a single image region and returns the stripped text.
// The region is written to a temp PNG because tesseract reads from disk.
func (e *Engine) Recognize(ctx context.Context, region image.Image) (string, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	tmpDir, err := os.MkdirTemp("", "inv-ocr-*")
	if err != nil {
		return "", fmt.Errorf("ocr temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("failed to remove ocr temp dir", "dir", tmpDir, "error", rmErr)
		}
	}()

	crop := filepath.Join(tmpDir, "region.png")
	if err := imaging.Save(region, crop); err != nil {
		return "", fmt.Errorf("save ocr region: %w", err)
	}

	// tesseract <file> stdout -l <lang> --oem 3 --psm 6
	args := []string{crop, "stdout", "-l", e.cfg.Language,
		"--oem", fmt.Sprintf("%d", e.cfg.OEM),
		"--psm", fmt.Sprintf("%d", e.cfg.PSM),
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", common.ModelCallErrorf("tesseract: %v (%s)", err, truncate(string(errb), 512))
	}
	return strings.TrimSpace(string(out)), nil
}
