// Package preprocess prepares cropped invoice regions for OCR: grayscale,
// Otsu binarization, non-local-means denoising, then CLAHE contrast
// enhancement. Every step is deterministic and stateless.
package preprocess

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// Non-local-means parameters.
	denoiseStrength = 30.0
	templateWindow  = 7
	searchWindow    = 21

	// CLAHE parameters.
	claheClipLimit = 2.0
	claheTileGrid  = 8
)

// Enhance runs the full filter chain on a region crop and returns a
// single-channel image. Callers must not pass zero-area crops; degenerate
// regions are skipped upstream.
func Enhance(src image.Image) *image.Gray {
	g := ToGray(src)
	if g.Bounds().Empty() {
		return g
	}
	b := Binarize(g, OtsuThreshold(g))
	d := Denoise(b)
	return CLAHE(d, claheClipLimit, claheTileGrid)
}

// ToGray converts any image to 8-bit single channel.
func ToGray(src image.Image) *image.Gray {
	nrgba := imaging.Grayscale(src)
	b := nrgba.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			// Grayscale output has R=G=B; take one channel directly.
			g.SetGray(x, y, color.Gray{Y: nrgba.NRGBAAt(b.Min.X+x, b.Min.Y+y).R})
		}
	}
	return g
}

// OtsuThreshold picks the global binarization threshold that minimizes
// intra-class variance over the image histogram.
func OtsuThreshold(g *image.Gray) uint8 {
	var hist [256]int
	total := 0
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[g.GrayAt(x, y).Y]++
			total++
		}
	}
	if total == 0 {
		return 0
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	var best float64
	var threshold uint8
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

// Binarize maps pixels above the threshold to white and the rest to black.
func Binarize(g *image.Gray, threshold uint8) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if g.GrayAt(x, y).Y > threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

// Denoise applies non-local-means denoising with a 7px template window and a
// 21px search window. Each pixel is replaced by a patch-similarity-weighted
// average of pixels in its search neighborhood.
func Denoise(g *image.Gray) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)

	tr := templateWindow / 2
	sr := searchWindow / 2
	h2 := denoiseStrength * denoiseStrength

	at := func(x, y int) float64 {
		// clamp to border
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		return float64(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
	}

	patchDist := func(x1, y1, x2, y2 int) float64 {
		var d float64
		for dy := -tr; dy <= tr; dy++ {
			for dx := -tr; dx <= tr; dx++ {
				diff := at(x1+dx, y1+dy) - at(x2+dx, y2+dy)
				d += diff * diff
			}
		}
		return d / float64(templateWindow*templateWindow)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, weight float64
			for sy := -sr; sy <= sr; sy++ {
				for sx := -sr; sx <= sr; sx++ {
					d := patchDist(x, y, x+sx, y+sy)
					wgt := math.Exp(-d / h2)
					sum += wgt * at(x+sx, y+sy)
					weight += wgt
				}
			}
			v := sum / weight
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			out.SetGray(b.Min.X+x, b.Min.Y+y, color.Gray{Y: uint8(v + 0.5)})
		}
	}
	return out
}

// CLAHE applies contrast-limited adaptive histogram equalization over a
// tileGrid x tileGrid partition, with bilinear blending between the
// per-tile transfer functions.
func CLAHE(g *image.Gray, clipLimit float64, tileGrid int) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	if w == 0 || h == 0 {
		return out
	}
	if tileGrid < 1 {
		tileGrid = 1
	}

	tileW := (w + tileGrid - 1) / tileGrid
	tileH := (h + tileGrid - 1) / tileGrid

	// Per-tile clipped-histogram transfer functions.
	luts := make([][256]uint8, tileGrid*tileGrid)
	for ty := 0; ty < tileGrid; ty++ {
		for tx := 0; tx < tileGrid; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := x0+tileW, y0+tileH
			if x1 > w {
				x1 = w
			}
			if y1 > h {
				y1 = h
			}
			luts[ty*tileGrid+tx] = tileLUT(g, b, x0, y0, x1, y1, clipLimit)
		}
	}

	// Bilinear interpolation between the four surrounding tile LUTs.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			fy := (float64(y)+0.5)/float64(tileH) - 0.5

			tx0 := int(math.Floor(fx))
			ty0 := int(math.Floor(fy))
			ax := fx - float64(tx0)
			ay := fy - float64(ty0)

			clampTile := func(t int) int {
				if t < 0 {
					return 0
				}
				if t >= tileGrid {
					return tileGrid - 1
				}
				return t
			}
			tx1 := clampTile(tx0 + 1)
			ty1 := clampTile(ty0 + 1)
			tx0 = clampTile(tx0)
			ty0 = clampTile(ty0)

			v := g.GrayAt(b.Min.X+x, b.Min.Y+y).Y
			v00 := float64(luts[ty0*tileGrid+tx0][v])
			v10 := float64(luts[ty0*tileGrid+tx1][v])
			v01 := float64(luts[ty1*tileGrid+tx0][v])
			v11 := float64(luts[ty1*tileGrid+tx1][v])

			top := v00*(1-ax) + v10*ax
			bot := v01*(1-ax) + v11*ax
			out.SetGray(b.Min.X+x, b.Min.Y+y, color.Gray{Y: uint8(top*(1-ay) + bot*ay + 0.5)})
		}
	}
	return out
}

// tileLUT builds the clipped-and-redistributed equalization LUT for one tile.
func tileLUT(g *image.Gray, b image.Rectangle, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]float64
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[g.GrayAt(b.Min.X+x, b.Min.Y+y).Y]++
			n++
		}
	}
	var lut [256]uint8
	if n == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	// Clip bins above clipLimit * average height, redistribute the excess.
	limit := clipLimit * float64(n) / 256.0
	if limit < 1 {
		limit = 1
	}
	var excess float64
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}
	share := excess / 256.0
	for i := range hist {
		hist[i] += share
	}

	var cdf float64
	for i := range hist {
		cdf += hist[i]
		v := cdf * 255.0 / float64(n)
		if v > 255 {
			v = 255
		}
		lut[i] = uint8(v + 0.5)
	}
	return lut
}
