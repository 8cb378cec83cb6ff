package source

import (
	"fmt"
	"image"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/ivlev/storyreel/internal/scene"
)

// qrSideLen is the rendered QR bitmap edge; the renderer scales it into the
// output frame like any other scene image.
const qrSideLen = 640

func qrSlideImage(url string) (image.Image, error) {
	if url == "" {
		return nil, fmt.Errorf("qr locator has no url")
	}
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr encode %q: %w", url, err)
	}
	return qr.Image(qrSideLen), nil
}

// OutroScene builds the optional closing scene pointing viewers at a URL.
func OutroScene(id, url string) *scene.Scene {
	return &scene.Scene{
		ID:                id,
		ScriptText:        url,
		ImageSource:       "qr:" + url,
		EstimatedDuration: 3,
		Status:            scene.StatusReady,
	}
}
