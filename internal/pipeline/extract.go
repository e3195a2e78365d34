package pipeline

import (
	"context"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/scandoc/invoice-ocr/constants"
	"github.com/scandoc/invoice-ocr/internal/detect"
	"github.com/scandoc/invoice-ocr/internal/llm"
	"github.com/scandoc/invoice-ocr/internal/preprocess"
)

// extractStage crops each surviving region from the original image,
// enhances it, runs OCR, and joins the stripped per-region text with the
// fixed separator. Region order follows the detections as given. Degenerate
// crops are skipped, not errors; zero regions yields an empty string.
func (p *Processor) extractStage(ctx context.Context, img image.Image, dets detect.Detections) (string, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	texts := make([]string, 0, dets.Len())
	for i := 0; i < dets.Len(); i++ {
		box := dets.Boxes[i]
		// Normalized [ymin,xmin,ymax,xmax] to pixel bounds, truncating.
		y0 := int(box[0] * float64(h))
		x0 := int(box[1] * float64(w))
		y1 := int(box[2] * float64(h))
		x1 := int(box[3] * float64(w))

		rect := image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, w, h))
		if rect.Empty() {
			p.Logger.Warn("pipeline.extract.degenerate_region", "index", i, "box", box)
			continue
		}

		crop := imaging.Crop(img, rect.Add(b.Min))
		enhanced := preprocess.Enhance(crop)

		text, err := p.OCR.Recognize(ctx, enhanced)
		if err != nil {
			return "", err
		}
		texts = append(texts, strings.TrimSpace(text))
	}
	return strings.Join(texts, constants.RegionSeparator), nil
}

// structureStage asks the language model for the structured-fields object
// and isolates the candidate JSON substring from its reply.
func (p *Processor) structureStage(ctx context.Context, joined string) (string, error) {
	reply, err := p.LLM.Complete(ctx, llm.BuildExtractionPrompt(joined))
	if err != nil {
		return "", err
	}
	return llm.IsolateJSON(reply), nil
}
