package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Job describes one capture: the visual stream geometry plus the already
// scheduled audio track on disk.
type Job struct {
	Width, Height int
	FPS           int
	AudioPath     string
	OutPath       string
	Format        Format
	Quality       int
}

// Muxer captures a rendered visual stream and a scheduled audio stream into
// one synchronized container. Release must be idempotent and safe on every
// exit path, including after Finalize.
type Muxer interface {
	Begin(ctx context.Context, job Job) error
	WriteFrame(frame *image.RGBA) error
	Finalize() (*Output, error)
	Release()
}

// FFmpegMuxer feeds raw RGBA frames to an ffmpeg process over stdin while
// ffmpeg pulls the audio track from its WAV file, encoding both into the
// negotiated container.
type FFmpegMuxer struct {
	FFmpeg string
	Log    zerolog.Logger

	job      Job
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stderr   bytes.Buffer
	started  bool
	finished bool
}

func NewFFmpegMuxer(ffmpeg string, log zerolog.Logger) *FFmpegMuxer {
	return &FFmpegMuxer{FFmpeg: ffmpeg, Log: log}
}

func (m *FFmpegMuxer) Begin(ctx context.Context, job Job) error {
	if m.started {
		return fmt.Errorf("muxer already started")
	}
	m.job = job

	var args []string
	if job.Format.AudioOnly {
		args = []string{
			"-y",
			"-i", job.AudioPath,
			"-c:a", job.Format.AudioCodec,
			"-b:a", "192k",
			job.OutPath,
		}
	} else {
		args = []string{
			"-y",
			"-f", "rawvideo",
			"-pixel_format", "rgba",
			"-video_size", fmt.Sprintf("%dx%d", job.Width, job.Height),
			"-framerate", strconv.Itoa(job.FPS),
			"-i", "-",
			"-i", job.AudioPath,
			"-c:v", job.Format.VideoCodec,
		}
		args = append(args, qualityArgs(job.Format.VideoCodec, job.Quality)...)
		args = append(args,
			"-c:a", job.Format.AudioCodec,
			"-b:a", "192k",
			"-pix_fmt", "yuv420p",
			"-r", strconv.Itoa(job.FPS),
			job.OutPath,
		)
	}

	m.cmd = exec.CommandContext(ctx, m.FFmpeg, args...)
	m.cmd.Stderr = &m.stderr

	if !job.Format.AudioOnly {
		stdin, err := m.cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("stdin pipe error: %w", err)
		}
		m.stdin = stdin
	}

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}
	m.started = true
	m.Log.Debug().Str("container", job.Format.Container).Str("video", job.Format.VideoCodec).
		Str("audio", job.Format.AudioCodec).Msg("capture started")
	return nil
}

func qualityArgs(videoCodec string, quality int) []string {
	switch videoCodec {
	case "h264_videotoolbox":
		// VideoToolbox rejects -q:v on many versions; drive it by bitrate.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", strconv.Itoa(quality)}
	case "libvpx-vp9", "libvpx":
		return []string{"-crf", strconv.Itoa(quality), "-b:v", "0"}
	default: // libx264
		return []string{"-crf", strconv.Itoa(quality), "-preset", "medium"}
	}
}

// WriteFrame streams one raw RGBA frame. The frame must match the job
// geometry; non-packed bitmaps are normalized first.
func (m *FFmpegMuxer) WriteFrame(frame *image.RGBA) error {
	if !m.started || m.stdin == nil {
		return fmt.Errorf("muxer not accepting frames")
	}
	bounds := frame.Bounds()
	if bounds.Dx() != m.job.Width || bounds.Dy() != m.job.Height {
		return fmt.Errorf("frame %dx%d does not match job %dx%d",
			bounds.Dx(), bounds.Dy(), m.job.Width, m.job.Height)
	}

	pix := frame.Pix
	if frame.Stride != bounds.Dx()*4 || bounds.Min.X != 0 || bounds.Min.Y != 0 {
		packed := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(packed, packed.Bounds(), frame, bounds.Min, draw.Src)
		pix = packed.Pix
	}
	if _, err := m.stdin.Write(pix); err != nil {
		return fmt.Errorf("frame write error: %w (ffmpeg: %s)", err, m.stderrTail())
	}
	return nil
}

// Finalize stops the capture and assembles the buffered output into one
// binary object.
func (m *FFmpegMuxer) Finalize() (*Output, error) {
	if !m.started {
		return nil, fmt.Errorf("muxer never started")
	}
	if m.stdin != nil {
		m.stdin.Close()
		m.stdin = nil
	}
	if err := m.cmd.Wait(); err != nil {
		m.finished = true
		return nil, fmt.Errorf("ffmpeg mux error: %w: %s", err, m.stderrTail())
	}
	m.finished = true

	data, err := os.ReadFile(m.job.OutPath)
	if err != nil {
		return nil, fmt.Errorf("read captured output: %w", err)
	}
	return &Output{Data: data, MIME: m.job.Format.MIME}, nil
}

// Release tears the capture down. Safe to call on every exit path; after a
// clean Finalize it is a no-op.
func (m *FFmpegMuxer) Release() {
	if !m.started || m.finished {
		return
	}
	m.finished = true
	if m.stdin != nil {
		m.stdin.Close()
		m.stdin = nil
	}
	if m.cmd != nil && m.cmd.Process != nil {
		m.cmd.Process.Kill()
		m.cmd.Wait()
	}
	m.Log.Debug().Msg("capture released")
}

func (m *FFmpegMuxer) stderrTail() string {
	s := strings.TrimSpace(m.stderr.String())
	const max = 400
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
