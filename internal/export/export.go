// Package export runs the offline capture: it preloads assets, schedules the
// audio track, drives the clocked renderer off the audio clock and muxes both
// streams into one negotiated container. It is an explicit state machine
//
//	idle -> loading_assets -> rendering -> finalizing -> complete | failed
//
// that owns every resource it acquires and releases them on every exit path.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/storyreel/internal/assets"
	"github.com/ivlev/storyreel/internal/audio"
	"github.com/ivlev/storyreel/internal/config"
	"github.com/ivlev/storyreel/internal/render"
	"github.com/ivlev/storyreel/internal/scene"
	"github.com/ivlev/storyreel/internal/system"
	"github.com/ivlev/storyreel/internal/timeline"
)

var (
	ErrNoScenes          = errors.New("no scenes to export")
	ErrExportInProgress  = errors.New("another export is already running")
	ErrNoSupportedFormat = errors.New("no supported output format")
	ErrEmptyOutput       = errors.New("capture produced empty output")
	ErrAborted           = errors.New("export aborted")
)

type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading_assets"
	StateRendering  State = "rendering"
	StateFinalizing State = "finalizing"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Output is the finished binary object plus its negotiated MIME type.
// Persistence and naming are the caller's concern.
type Output struct {
	Data []byte
	MIME string
}

// ProgressFunc receives coarse progress: an integer percent and a
// human-readable status, at stage transitions and at a bounded cadence
// during rendering.
type ProgressFunc func(percent int, status string)

// Loader is the asset preload stage; satisfied by *assets.Preloader.
type Loader interface {
	Preload(ctx context.Context, scenes []*scene.Scene, workDir string) []*assets.Asset
}

type Exporter struct {
	Config config.Config
	Width  int
	Height int

	Loader     Loader
	Prober     Prober
	NewMuxer   func() Muxer
	OnProgress ProgressFunc
	Log        zerolog.Logger

	inFlight atomic.Bool
	mu       sync.Mutex
	state    State
}

// New wires an exporter against the real ffmpeg toolchain.
func New(cfg config.Config, log zerolog.Logger) (*Exporter, error) {
	w, h, err := config.FrameDimensions(cfg.Quality, cfg.Aspect)
	if err != nil {
		return nil, err
	}

	ffmpeg := cfg.FFmpegPath
	if ffmpeg == "" {
		if ffmpeg, err = system.FindFFmpeg(); err != nil {
			return nil, err
		}
	}
	ffprobe := cfg.FFprobePath
	if ffprobe == "" {
		if ffprobe, err = system.FindFFprobe(); err != nil {
			// Probe is only a sanity check; decode still measures durations.
			log.Warn().Err(err).Msg("ffprobe unavailable, duration checks disabled")
			ffprobe = ""
		}
	}

	return &Exporter{
		Config: cfg,
		Width:  w,
		Height: h,
		Loader: assets.NewPreloader(ffmpeg, ffprobe, cfg.SampleRate, cfg.Channels,
			cfg.DPI, system.DecodeWorkers(), log),
		Prober:   &FFmpegProber{FFmpeg: ffmpeg},
		NewMuxer: func() Muxer { return NewFFmpegMuxer(ffmpeg, log) },
		Log:      log,
		state:    StateIdle,
	}, nil
}

func (e *Exporter) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == "" {
		return StateIdle
	}
	return e.state
}

func (e *Exporter) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	e.Log.Debug().Str("state", string(s)).Msg("export state")
}

// Export captures the given scene snapshot into one binary object. Only one
// export may be in flight per exporter: the canvas and audio destination are
// exclusively owned for the attempt's lifetime. All failures surface as a
// single error with a descriptive reason; partial output is never returned.
func (e *Exporter) Export(ctx context.Context, scenes []*scene.Scene) (*Output, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, ErrExportInProgress
	}
	defer e.inFlight.Store(false)

	out, err := e.run(ctx, scenes)
	if err != nil {
		e.setState(StateFailed)
		e.Log.Error().Err(err).Msg("export failed")
		return nil, err
	}
	e.setState(StateComplete)
	e.progress(100, "complete")
	return out, nil
}

func (e *Exporter) run(ctx context.Context, scenes []*scene.Scene) (*Output, error) {
	if len(scenes) == 0 {
		return nil, ErrNoScenes
	}

	// Capability probe happens once, up front: failing here is cheaper than
	// after minutes of rendering.
	format, err := Negotiate(e.Prober, e.Config.Kind)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "storyreel_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	e.setState(StateLoading)
	e.progress(2, "loading assets")
	loaded := e.Loader.Preload(ctx, scenes, workDir)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
	}

	// Every scene needs a drawable image for a video export; audio-only
	// exports have no such requirement. Missing audio is tolerated either
	// way: those scenes render silent.
	if !format.AudioOnly {
		for _, a := range loaded {
			if a.ImageErr != nil {
				return nil, a.ImageErr
			}
		}
	}

	// The timeline is built after preload so decoded audio durations are in.
	tl := timeline.Build(scenes)

	track, err := audio.Schedule(tl, loaded, audio.DefaultEpoch, e.Config.SampleRate, e.Config.Channels)
	if err != nil {
		// A partial schedule is never valid.
		return nil, fmt.Errorf("audio scheduling: %w", err)
	}

	audioPath := filepath.Join(workDir, "narration.wav")
	if err := writeTrack(track, audioPath); err != nil {
		return nil, err
	}

	e.setState(StateRendering)
	e.progress(8, "rendering")

	mux := e.NewMuxer()
	defer mux.Release()

	job := Job{
		Width:     e.Width,
		Height:    e.Height,
		FPS:       e.Config.FPS,
		AudioPath: audioPath,
		OutPath:   filepath.Join(workDir, "capture"+format.Ext),
		Format:    format,
		Quality:   defaultQuality(format.VideoCodec),
	}
	if err := mux.Begin(ctx, job); err != nil {
		return nil, err
	}

	if !format.AudioOnly {
		if err := e.renderLoop(ctx, mux, tl, loaded, track); err != nil {
			return nil, err
		}
	}

	e.setState(StateFinalizing)
	e.progress(96, "finalizing")
	out, err := mux.Finalize()
	if err != nil {
		return nil, err
	}
	// An empty blob is a failure even when no other error fired.
	if out == nil || len(out.Data) == 0 {
		return nil, ErrEmptyOutput
	}
	return out, nil
}

// renderLoop drives the painter off the audio clock: every iteration
// consumes one video frame's worth of samples from the scheduled track and
// recomputes t from the track cursor. t is never incremented by the frame
// interval itself, so the visuals cannot drift from the audio over long
// captures.
func (e *Exporter) renderLoop(ctx context.Context, mux Muxer, tl timeline.Timeline, loaded []*assets.Asset, track *audio.Track) error {
	r := render.New(e.Width, e.Height)
	frame := system.GetFrame(image.Rect(0, 0, e.Width, e.Height))
	defer system.PutFrame(frame)

	track.Rewind()
	rate, fps := float64(e.Config.SampleRate), float64(e.Config.FPS)
	rendered := 0
	consumed := 0
	lastEmit := time.Now()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
		default:
		}

		t := track.Clock()
		if t >= tl.Total {
			return nil
		}

		r.Compose(frame, tl, loaded, t)
		if err := mux.WriteFrame(frame); err != nil {
			return err
		}

		// Sample-accurate pacing even when rate/fps does not divide evenly.
		rendered++
		next := int(math.Round(float64(rendered) * rate / fps))
		track.Advance(next - consumed)
		consumed = next

		if time.Since(lastEmit) >= time.Second {
			done := (t + track.Epoch()) / (tl.Total + track.Epoch())
			pct := 8 + int(86*done)
			current := tl.Index(t) + 1
			if current < 1 {
				current = 1 // still inside the lead-in
			}
			e.progress(pct, fmt.Sprintf("rendering scene %d/%d", current, len(tl.Entries)))
			lastEmit = time.Now()
		}
	}
}

func writeTrack(track *audio.Track, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := track.WriteWAV(f); err != nil {
		f.Close()
		return fmt.Errorf("write audio track: %w", err)
	}
	return f.Close()
}

func (e *Exporter) progress(percent int, status string) {
	if e.OnProgress != nil {
		e.OnProgress(percent, status)
	}
}
