package decode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"

	"github.com/scandoc/invoice-ocr/internal/common"
	"github.com/scandoc/invoice-ocr/internal/ocr"
)

// PDFConfig holds rasterization parameters.
type PDFConfig struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // default 300
}

// PDFDecoder renders the first page of a PDF into a raster image. Only the
// first page is used; payloads without any page are a client-input error.
type PDFDecoder struct {
	cfg    PDFConfig
	runner ocr.Runner
	logger *slog.Logger
}

func NewPDFDecoder(cfg PDFConfig, runner ocr.Runner, logger *slog.Logger) *PDFDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if runner == nil {
		runner = ocr.ExecRunner{}
	}
	return &PDFDecoder{cfg: cfg, runner: runner, logger: logger}
}

// FirstPage validates the document and rasterizes page 1.
func (d *PDFDecoder) FirstPage(ctx context.Context, data []byte) (image.Image, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, common.DecodeErrorf("failed to read PDF: %v", err)
	}
	if r.NumPage() < 1 {
		return nil, common.InputErrorf("PDF has no pages")
	}

	tmpDir, err := os.MkdirTemp("", "inv-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("pdf temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			d.logger.Warn("failed to remove pdf temp dir", "dir", tmpDir, "error", rmErr)
		}
	}()

	in := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png -f 1 -l 1 <doc.pdf> <tmp/page>
	_, errb, err := d.runner.Run(ctx, d.cfg.Pdftoppm,
		"-r", fmt.Sprintf("%d", d.cfg.DPI), "-png", "-f", "1", "-l", "1", in, prefix)
	if err != nil {
		return nil, common.ModelCallErrorf("pdftoppm: %v (%s)", err, string(errb))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, common.InputErrorf("PDF rendered no pages")
	}

	img, err := imaging.Open(matches[0])
	if err != nil {
		return nil, common.DecodeErrorf("failed to open rendered page: %v", err)
	}
	return img, nil
}
