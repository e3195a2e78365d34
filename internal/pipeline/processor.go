// Package pipeline composes the detection-to-structured-record stages:
// decode, detect, extract, structure, coerce, persist. Stages are strictly
// sequential; each request runs end-to-end on its own goroutine with no
// shared mutable state.
package pipeline

import (
	"context"
	"encoding/json"
	"image"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/scandoc/invoice-ocr/constants"
	"github.com/scandoc/invoice-ocr/internal/coerce"
	"github.com/scandoc/invoice-ocr/internal/common"
	"github.com/scandoc/invoice-ocr/internal/decode"
	"github.com/scandoc/invoice-ocr/internal/detect"
	"github.com/scandoc/invoice-ocr/internal/llm"
	"github.com/scandoc/invoice-ocr/internal/overlay"
	"github.com/scandoc/invoice-ocr/internal/repository"
)

// Recognizer is the OCR capability consumed per region crop.
type Recognizer interface {
	Recognize(ctx context.Context, region image.Image) (string, error)
}

// PDFRenderer rasterizes the first page of a PDF payload.
type PDFRenderer interface {
	FirstPage(ctx context.Context, data []byte) (image.Image, error)
}

// Config holds pipeline behavior flags.
type Config struct {
	Threshold      float64 // detection confidence threshold
	SupportsPDF    bool
	SortRegions    bool // (ymin,xmin) ordering instead of raw detector order
	DebugArtifacts bool
	ArtifactDir    string
}

// Request is one inbound document.
type Request struct {
	Payload string // base64, possibly data-URI-prefixed
	Kind    string // constants.IMAGE | constants.PDF
}

// Result is the terminal outcome of one request.
type Result struct {
	State     constants.RequestState
	Fields    map[string]any // parsed structured fields; nil when parsing failed
	RawText   string         // joined per-region OCR text
	RawJSON   string         // candidate JSON substring from the model reply
	InvoiceID *uint          // nil unless persisted
}

// Processor wires the capabilities together.
type Processor struct {
	Logger   *slog.Logger
	Cfg      Config
	PDF      PDFRenderer
	Detector detect.Detector
	OCR      Recognizer
	LLM      llm.Completer
	Coercer  *coerce.Coercer
	Invoices repository.InvoiceRepository

	schema map[string]any
}

func NewProcessor(
	logger *slog.Logger,
	cfg Config,
	pdf PDFRenderer,
	detector detect.Detector,
	recognizer Recognizer,
	completer llm.Completer,
	coercer *coerce.Coercer,
	invoices repository.InvoiceRepository,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = constants.DetectionThreshold
	}
	if coercer == nil {
		coercer = coerce.New(logger)
	}
	return &Processor{
		Logger:   logger,
		Cfg:      cfg,
		PDF:      pdf,
		Detector: detector,
		OCR:      recognizer,
		LLM:      completer,
		Coercer:  coercer,
		Invoices: invoices,
		schema:   llm.BuildInvoiceJSONSchema(),
	}
}

// Process runs one request through the full pipeline. Input and decode
// failures short-circuit before any model call; parse and persistence
// failures are terminal states, not errors.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	rid := uuid.New().String()
	log := p.Logger.With("req_id", rid)
	log.Info("pipeline.start", "state", constants.StateReceived, "kind", req.Kind)

	img, err := p.decodeStage(ctx, req)
	if err != nil {
		return Result{State: constants.StateReceived}, err
	}
	log.Info("pipeline.decode.ok", "state", constants.StateDecoded,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	dets, err := p.detectStage(ctx, img)
	if err != nil {
		log.Error("pipeline.detect.failed", "error", err)
		return Result{State: constants.StateDecoded}, err
	}
	log.Info("pipeline.detect.ok", "state", constants.StateDetected, "regions", dets.Len())

	if p.Cfg.DebugArtifacts {
		p.writeOverlay(rid, img, dets, log)
	}

	joined, err := p.extractStage(ctx, img, dets)
	if err != nil {
		log.Error("pipeline.extract.failed", "error", err)
		return Result{State: constants.StateDetected}, err
	}
	log.Info("pipeline.extract.ok", "state", constants.StateExtracted, "text_len", len(joined))

	candidate, err := p.structureStage(ctx, joined)
	if err != nil {
		log.Error("pipeline.structure.failed", "error", err)
		return Result{State: constants.StateExtracted, RawText: joined}, err
	}
	log.Info("pipeline.structure.ok", "state", constants.StateStructured, "json_len", len(candidate))

	var fields map[string]any
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		// Best-effort passthrough: the caller gets the near-miss text,
		// nothing is persisted.
		log.Warn("pipeline.parse.failed", "state", constants.StateParseFailed, "error", err)
		return Result{
			State:   constants.StateParseFailed,
			RawText: joined,
			RawJSON: candidate,
		}, nil
	}

	if vErr := llm.ValidateJSONAgainstSchema(p.schema, []byte(candidate)); vErr != nil {
		// Advisory only: coercion is total and handles anything the model
		// sent, so a shape mismatch is logged, never fatal.
		log.Warn("pipeline.fields.schema_mismatch", "error", vErr)
	}

	inv, items := p.Coercer.Coerce(fields)
	inv.RawText = joined
	inv.RawJSON = candidate

	if p.Invoices == nil {
		// Dry-run mode (one-shot CLI): stop after structuring.
		return Result{
			State:   constants.StateStructured,
			Fields:  fields,
			RawText: joined,
			RawJSON: candidate,
		}, nil
	}

	id, err := p.Invoices.Save(ctx, &inv, items)
	if err != nil {
		// Rolled back; surfaced as a null identity beside the valid fields.
		log.Error("pipeline.persist.failed", "state", constants.StatePersistFailed, "error", err)
		return Result{
			State:   constants.StatePersistFailed,
			Fields:  fields,
			RawText: joined,
			RawJSON: candidate,
		}, nil
	}

	log.Info("pipeline.persist.ok", "state", constants.StatePersisted,
		"invoice_id", id, "items", len(items))
	return Result{
		State:     constants.StatePersisted,
		Fields:    fields,
		RawText:   joined,
		RawJSON:   candidate,
		InvoiceID: &id,
	}, nil
}

func (p *Processor) decodeStage(ctx context.Context, req Request) (image.Image, error) {
	switch req.Kind {
	case constants.IMAGE:
		raw, err := decode.DecodeBase64(req.Payload)
		if err != nil {
			return nil, err
		}
		return decode.DecodeImage(raw)
	case constants.PDF:
		if !p.Cfg.SupportsPDF {
			return nil, common.InputErrorf("pdf ingestion is disabled")
		}
		if p.PDF == nil {
			return nil, common.InputErrorf("pdf ingestion is not configured")
		}
		raw, err := decode.DecodeBase64(req.Payload)
		if err != nil {
			return nil, err
		}
		return p.PDF.FirstPage(ctx, raw)
	default:
		return nil, common.InputErrorf("unsupported file_type %q", req.Kind)
	}
}

func (p *Processor) detectStage(ctx context.Context, img image.Image) (detect.Detections, error) {
	dets, err := p.Detector.Detect(ctx, img)
	if err != nil {
		return detect.Detections{}, err
	}
	dets = detect.FilterByScore(dets, p.Cfg.Threshold)
	if p.Cfg.SortRegions {
		dets = detect.SortByPosition(dets)
	}
	return dets, nil
}

func (p *Processor) writeOverlay(rid string, img image.Image, dets detect.Detections, log *slog.Logger) {
	path := filepath.Join(p.Cfg.ArtifactDir, rid+"-overlay.png")
	if err := overlay.SavePNG(overlay.Render(img, dets), path); err != nil {
		log.Warn("pipeline.overlay.write_failed", "path", path, "error", err)
		return
	}
	log.Debug("pipeline.overlay.written", "path", path)
}
