// Package overlay renders detection boxes onto the decoded image for debug
// artifacts.
package overlay

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"

	"github.com/scandoc/invoice-ocr/internal/detect"
)

// Render draws the surviving detections (normalized boxes plus scores) over
// the source image and returns the composited raster.
func Render(img image.Image, det detect.Detections) image.Image {
	dc := gg.NewContextForImage(img)
	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())

	for i := 0; i < det.Len(); i++ {
		box := det.Boxes[i]
		x := box[1] * w
		y := box[0] * h
		bw := (box[3] - box[1]) * w
		bh := (box[2] - box[0]) * h

		dc.SetRGBA(0.9, 0.1, 0.1, 1)
		dc.SetLineWidth(3)
		dc.DrawRectangle(x, y, bw, bh)
		dc.Stroke()

		label := fmt.Sprintf("%.2f", det.Scores[i])
		ty := y - 4
		if ty < 12 {
			ty = y + 14
		}
		dc.DrawString(label, x+2, ty)
	}
	return dc.Image()
}

// SavePNG writes the overlay to disk.
func SavePNG(img image.Image, path string) error {
	return gg.SavePNG(path, img)
}
