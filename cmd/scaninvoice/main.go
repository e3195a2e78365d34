// Command scaninvoice runs the extraction pipeline once against a local
// image or PDF and prints the structured result. It never touches the
// database, which makes it handy for tuning detector and OCR settings.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/scandoc/invoice-ocr/constants"
	"github.com/scandoc/invoice-ocr/internal/coerce"
	"github.com/scandoc/invoice-ocr/internal/common"
	"github.com/scandoc/invoice-ocr/internal/decode"
	"github.com/scandoc/invoice-ocr/internal/detect"
	"github.com/scandoc/invoice-ocr/internal/llm/ollama"
	"github.com/scandoc/invoice-ocr/internal/ocr"
	"github.com/scandoc/invoice-ocr/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: scaninvoice [-v] <image-or-pdf>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read input", "path", path, "error", err)
		os.Exit(1)
	}

	kind := constants.IMAGE
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		kind = constants.PDF
	}

	runner := ocr.ExecRunner{}
	processor := pipeline.NewProcessor(
		logger,
		pipeline.Config{
			Threshold:      cfg.Detector.Threshold,
			SupportsPDF:    true,
			SortRegions:    cfg.Pipeline.SortRegions,
			DebugArtifacts: cfg.Pipeline.DebugArtifacts,
			ArtifactDir:    cfg.Pipeline.ArtifactDir,
		},
		decode.NewPDFDecoder(decode.PDFConfig{
			Pdftoppm: cfg.OCR.Pdftoppm,
			DPI:      cfg.OCR.DPI,
		}, runner, logger),
		detect.NewClient(detect.Config{
			BaseURL: cfg.Detector.BaseURL,
			Model:   cfg.Detector.Model,
			Timeout: cfg.Detector.Timeout,
		}, logger),
		ocr.NewEngine(ocr.Config{
			Tesseract: cfg.OCR.Tesseract,
			Language:  cfg.OCR.Language,
			PSM:       cfg.OCR.PSM,
			OEM:       cfg.OCR.OEM,
			Timeout:   cfg.OCR.Timeout,
		}, runner, logger),
		ollama.NewClient(ollama.Config{
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger),
		coerce.New(logger),
		nil, // no persistence in one-shot mode
	)

	res, err := processor.Process(context.Background(), pipeline.Request{
		Payload: base64.StdEncoding.EncodeToString(raw),
		Kind:    kind,
	})
	if err != nil {
		logger.Error("pipeline failed", "error", err)
		os.Exit(1)
	}

	if res.State == constants.StateParseFailed {
		fmt.Fprintln(os.Stderr, "model reply was not valid JSON; raw reply follows")
		fmt.Println(res.RawJSON)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(res.Fields, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
