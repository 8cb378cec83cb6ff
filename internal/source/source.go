// Package source resolves opaque asset locators into raw resources. Image
// locators may be a local path, an http(s) URL, a pdf:<path>#page=N page
// reference or a qr:<url> generated slide; audio locators are a local path
// or an http(s) URL materialized to a local file for the decoder.
package source

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const fetchTimeout = 60 * time.Second

// FetchImage resolves an image locator into a decoded image. dpi applies to
// PDF page rendering only.
func FetchImage(ctx context.Context, locator string, dpi int) (image.Image, error) {
	switch {
	case locator == "":
		return nil, fmt.Errorf("empty image locator")
	case strings.HasPrefix(locator, "pdf:"):
		return fetchPDFPage(locator, dpi)
	case strings.HasPrefix(locator, "qr:"):
		return qrSlideImage(strings.TrimPrefix(locator, "qr:"))
	case isHTTP(locator):
		rc, err := openHTTP(ctx, locator)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		img, _, err := image.Decode(rc)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", locator, err)
		}
		return img, nil
	default:
		f, err := os.Open(locator)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", locator, err)
		}
		return img, nil
	}
}

// MaterializeAudio makes an audio locator available as a local file inside
// dir, for ffprobe/ffmpeg to consume. Local paths are returned as-is; URLs
// are downloaded.
func MaterializeAudio(ctx context.Context, locator, dir string) (string, error) {
	if locator == "" {
		return "", fmt.Errorf("empty audio locator")
	}
	if !isHTTP(locator) {
		if _, err := os.Stat(locator); err != nil {
			return "", err
		}
		return locator, nil
	}

	rc, err := openHTTP(ctx, locator)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	ext := filepath.Ext(strings.SplitN(locator, "?", 2)[0])
	if ext == "" {
		ext = ".audio"
	}
	f, err := os.CreateTemp(dir, "clip_*"+ext)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("download %s: %w", locator, err)
	}
	return f.Name(), nil
}

func isHTTP(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

func openHTTP(ctx context.Context, url string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("fetch %s: status %s", url, resp.Status)
	}
	return &cancelReadCloser{rc: resp.Body, cancel: cancel}, nil
}

type cancelReadCloser struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Read(p []byte) (int, error) { return c.rc.Read(p) }

func (c *cancelReadCloser) Close() error {
	c.cancel()
	return c.rc.Close()
}
