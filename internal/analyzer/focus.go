// Package analyzer finds the region of interest in a still image. The
// renderer anchors its slow zoom toward that region instead of the geometric
// center, which keeps faces and text drifting into view rather than out.
package analyzer

import (
	"image"
	"image/color"
)

// FocusDetector scores image cells by gradient energy and picks the densest
// one. Flat images (solid backgrounds, gradients) report no focus so the
// caller falls back to a centered zoom.
type FocusDetector struct {
	GridSize  int     // cells per axis
	MinEnergy float64 // mean per-pixel gradient below which the image counts as flat
}

func NewFocusDetector() *FocusDetector {
	return &FocusDetector{
		GridSize:  8,
		MinEnergy: 4.0,
	}
}

// FocusPoint returns the center of the most detailed cell of img, in image
// coordinates. ok is false when the image is too small or too flat to
// prefer any region.
func (d *FocusDetector) FocusPoint(img image.Image) (image.Point, bool) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	grid := d.GridSize
	if grid < 2 {
		grid = 2
	}
	if w < grid*4 || h < grid*4 {
		return image.Point{}, false
	}

	gray := toGrayscale(img)

	cellW, cellH := w/grid, h/grid
	var bestEnergy float64
	best := image.Point{}
	totalEnergy := 0.0

	for cy := 0; cy < grid; cy++ {
		for cx := 0; cx < grid; cx++ {
			x0, y0 := cx*cellW, cy*cellH
			energy := cellEnergy(gray, x0, y0, cellW, cellH)
			totalEnergy += energy
			if energy > bestEnergy {
				bestEnergy = energy
				best = image.Point{
					X: bounds.Min.X + x0 + cellW/2,
					Y: bounds.Min.Y + y0 + cellH/2,
				}
			}
		}
	}

	meanPerPixel := totalEnergy / float64(w*h)
	if meanPerPixel < d.MinEnergy {
		return image.Point{}, false
	}
	return best, true
}

// cellEnergy sums absolute horizontal+vertical gradient magnitudes over one
// grid cell.
func cellEnergy(gray *image.Gray, x0, y0, cw, ch int) float64 {
	sum := 0.0
	for y := y0 + 1; y < y0+ch; y++ {
		row := y * gray.Stride
		prevRow := (y - 1) * gray.Stride
		for x := x0 + 1; x < x0+cw; x++ {
			v := int(gray.Pix[row+x])
			dx := v - int(gray.Pix[row+x-1])
			dy := v - int(gray.Pix[prevRow+x])
			if dx < 0 {
				dx = -dx
			}
			if dy < 0 {
				dy = -dy
			}
			sum += float64(dx + dy)
		}
	}
	return sum
}

func toGrayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x-bounds.Min.X, y-bounds.Min.Y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}
