package assets

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/storyreel/internal/analyzer"
	"github.com/ivlev/storyreel/internal/scene"
	"github.com/ivlev/storyreel/internal/source"
)

// Preloader resolves scene assets concurrently. All per-scene operations run
// in parallel (bounded by Workers) and the batch joins on every one of them,
// so preload latency is bounded by the slowest single asset.
type Preloader struct {
	FFmpeg  string
	FFprobe string

	SampleRate int
	Channels   int
	DPI        int
	Workers    int

	Detector *analyzer.FocusDetector
	Log      zerolog.Logger
}

func NewPreloader(ffmpeg, ffprobe string, sampleRate, channels, dpi, workers int, log zerolog.Logger) *Preloader {
	if workers < 1 {
		workers = 1
	}
	return &Preloader{
		FFmpeg:     ffmpeg,
		FFprobe:    ffprobe,
		SampleRate: sampleRate,
		Channels:   channels,
		DPI:        dpi,
		Workers:    workers,
		Detector:   analyzer.NewFocusDetector(),
		Log:        log,
	}
}

// Preload resolves every scene of the snapshot. The result slice is aligned
// index-for-index with the input. Failures are recorded per asset, never
// returned: the batch is success-or-failure per item, not fail-fast.
// workDir receives downloaded audio files; the caller owns its lifetime.
func (p *Preloader) Preload(ctx context.Context, scenes []*scene.Scene, workDir string) []*Asset {
	results := make([]*Asset, len(scenes))

	g := &errgroup.Group{}
	g.SetLimit(p.Workers)

	for i, s := range scenes {
		g.Go(func() error {
			results[i] = p.loadOne(ctx, s, workDir)
			return nil
		})
	}
	g.Wait()

	return results
}

func (p *Preloader) loadOne(ctx context.Context, s *scene.Scene, workDir string) *Asset {
	a := &Asset{Scene: s}

	if s.ImageSource == "" {
		a.ImageErr = fmt.Errorf("scene %s: no image source", s.ID)
	} else if img, err := source.FetchImage(ctx, s.ImageSource, p.DPI); err != nil {
		a.ImageErr = fmt.Errorf("scene %s: image load failed: %w", s.ID, err)
	} else {
		a.Image = toRGBA(img)
		if p.Detector != nil {
			a.Focus, a.HasFocus = p.Detector.FocusPoint(a.Image)
		}
	}
	if a.ImageErr != nil {
		p.Log.Warn().Str("scene", s.ID).Err(a.ImageErr).Msg("image unavailable")
		s.MarkError(a.ImageErr.Error())
	}

	if !s.HasAudio() {
		return a
	}

	local, err := source.MaterializeAudio(ctx, s.AudioSource, workDir)
	if err != nil {
		a.AudioErr = fmt.Errorf("scene %s: audio fetch failed: %w", s.ID, err)
	} else {
		pcm, err := decodePCM(ctx, p.FFmpeg, local, p.SampleRate, p.Channels)
		switch {
		case err != nil:
			a.AudioErr = fmt.Errorf("scene %s: audio decode failed: %w", s.ID, err)
		case len(pcm) == 0:
			a.AudioErr = fmt.Errorf("scene %s: audio decoded to zero samples", s.ID)
		default:
			a.PCM = pcm
			a.AudioDuration = float64(len(pcm)) / float64(p.SampleRate*p.Channels*2)
			s.ResolvedAudioDuration = a.AudioDuration

			// Sanity check against the container's own idea of the length.
			if probed, err := ProbeDuration(ctx, p.FFprobe, local); err == nil {
				if math.Abs(probed-a.AudioDuration) > 0.25 {
					p.Log.Warn().Str("scene", s.ID).
						Float64("probed", probed).
						Float64("decoded", a.AudioDuration).
						Msg("audio duration mismatch, using decoded length")
				}
			}
		}
	}

	if a.AudioErr != nil {
		// Degraded, not fatal: the scene renders silent for its duration.
		p.Log.Warn().Str("scene", s.ID).Err(a.AudioErr).Msg("scene will render silent")
	}
	return a
}
