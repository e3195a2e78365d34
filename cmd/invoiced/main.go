package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/scandoc/invoice-ocr/internal/coerce"
	"github.com/scandoc/invoice-ocr/internal/common"
	"github.com/scandoc/invoice-ocr/internal/decode"
	"github.com/scandoc/invoice-ocr/internal/detect"
	"github.com/scandoc/invoice-ocr/internal/export"
	"github.com/scandoc/invoice-ocr/internal/llm/ollama"
	"github.com/scandoc/invoice-ocr/internal/ocr"
	"github.com/scandoc/invoice-ocr/internal/pipeline"
	"github.com/scandoc/invoice-ocr/internal/repository"
	"github.com/scandoc/invoice-ocr/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(db); err != nil {
		logger.Error("migrate schema", "error", err)
		os.Exit(1)
	}

	runner := ocr.ExecRunner{}
	detector := detect.NewClient(detect.Config{
		BaseURL: cfg.Detector.BaseURL,
		Model:   cfg.Detector.Model,
		Timeout: cfg.Detector.Timeout,
	}, logger)
	engine := ocr.NewEngine(ocr.Config{
		Tesseract: cfg.OCR.Tesseract,
		Language:  cfg.OCR.Language,
		PSM:       cfg.OCR.PSM,
		OEM:       cfg.OCR.OEM,
		Timeout:   cfg.OCR.Timeout,
	}, runner, logger)
	pdfDecoder := decode.NewPDFDecoder(decode.PDFConfig{
		Pdftoppm: cfg.OCR.Pdftoppm,
		DPI:      cfg.OCR.DPI,
	}, runner, logger)
	completer := ollama.NewClient(ollama.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	if cfg.Pipeline.DebugArtifacts {
		if err := os.MkdirAll(cfg.Pipeline.ArtifactDir, 0o755); err != nil {
			logger.Warn("create artifact dir", "dir", cfg.Pipeline.ArtifactDir, "error", err)
		}
	}

	invoices := repository.NewInvoiceRepository(db, logger)
	processor := pipeline.NewProcessor(
		logger,
		pipeline.Config{
			Threshold:      cfg.Detector.Threshold,
			SupportsPDF:    cfg.Pipeline.SupportsPDF,
			SortRegions:    cfg.Pipeline.SortRegions,
			DebugArtifacts: cfg.Pipeline.DebugArtifacts,
			ArtifactDir:    cfg.Pipeline.ArtifactDir,
		},
		pdfDecoder,
		detector,
		engine,
		completer,
		coerce.New(logger),
		invoices,
	)
	exporter := export.NewService(invoices, logger)
	srv := server.New(logger, processor, invoices, exporter)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(cfg.Server.AllowOrigins),
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	logger.Info("bye")
}
