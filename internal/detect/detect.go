package detect

import (
	"context"
	"image"
	"sort"
)

// Detections holds equal-length parallel arrays as returned by the detector:
// normalized boxes (ymin, xmin, ymax, xmax in [0,1]), class ids, and
// confidence scores.
type Detections struct {
	Boxes   [][4]float64
	Classes []int64
	Scores  []float64
}

func (d Detections) Len() int { return len(d.Boxes) }

// Detector is the external region-detection capability: one blocking call
// with a batch of one image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (Detections, error)
}

// FilterByScore applies the confidence threshold as a boolean mask across
// all three arrays in lockstep. This is the sole detection-confidence
// policy; there is no per-class threshold. Zero survivors is valid.
func FilterByScore(d Detections, threshold float64) Detections {
	out := Detections{}
	for i := 0; i < d.Len(); i++ {
		if d.Scores[i] >= threshold {
			out.Boxes = append(out.Boxes, d.Boxes[i])
			out.Classes = append(out.Classes, d.Classes[i])
			out.Scores = append(out.Scores, d.Scores[i])
		}
	}
	return out
}

// SortByPosition reorders detections by (ymin, xmin) reading order. Raw
// detector order is the default; this is gated behind a pipeline flag
// because it changes the joined-text output.
func SortByPosition(d Detections) Detections {
	idx := make([]int, d.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ba, bb := d.Boxes[idx[a]], d.Boxes[idx[b]]
		if ba[0] != bb[0] {
			return ba[0] < bb[0]
		}
		return ba[1] < bb[1]
	})
	out := Detections{
		Boxes:   make([][4]float64, d.Len()),
		Classes: make([]int64, d.Len()),
		Scores:  make([]float64, d.Len()),
	}
	for i, j := range idx {
		out.Boxes[i] = d.Boxes[j]
		out.Classes[i] = d.Classes[j]
		out.Scores[i] = d.Scores[j]
	}
	return out
}
