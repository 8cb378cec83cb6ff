// Package assets resolves a frozen snapshot of scenes into render-ready
// resources: decoded bitmaps for the renderer and decoded PCM for the audio
// scheduler. Per-scene failures never abort the batch; callers inspect each
// result and decide.
package assets

import (
	"image"
	"image/draw"

	"github.com/ivlev/storyreel/internal/scene"
)

// Asset is the preload result for one scene. A failed image is a fatal
// precondition for export; a failed or absent audio clip degrades the scene
// to silent playback for its resolved duration.
type Asset struct {
	Scene *scene.Scene

	Image    *image.RGBA
	Focus    image.Point // Ken Burns anchor, valid when HasFocus
	HasFocus bool

	PCM           []byte // interleaved s16le at the preloader's rate/channels
	AudioDuration float64

	ImageErr error
	AudioErr error
}

// Silent reports whether the scene contributes no audio samples.
func (a *Asset) Silent() bool {
	return len(a.PCM) == 0
}

// toRGBA normalizes any decoded image into a zero-origin RGBA bitmap with a
// packed stride, which is what both the renderer and the raw-frame muxer
// expect.
func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if ok && rgba.Stride == bounds.Dx()*4 && rgba.Rect.Min.X == 0 && rgba.Rect.Min.Y == 0 {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}
