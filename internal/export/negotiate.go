package export

import (
	"os/exec"
	"strings"
	"sync"

	"github.com/ivlev/storyreel/internal/config"
)

// Format is one negotiated container/codec combination.
type Format struct {
	Container  string
	VideoCodec string
	AudioCodec string
	MIME       string
	Ext        string
	AudioOnly  bool
}

// Prober answers whether the runtime's encoder supports a named codec.
type Prober interface {
	Supports(encoder string) bool
}

// FFmpegProber caches the output of `ffmpeg -encoders` for the lifetime of
// an export; the capability list is evaluated once at export start.
type FFmpegProber struct {
	FFmpeg string

	once     sync.Once
	encoders string
}

func (p *FFmpegProber) Supports(encoder string) bool {
	p.once.Do(func() {
		out, err := exec.Command(p.FFmpeg, "-encoders").CombinedOutput()
		if err == nil {
			p.encoders = string(out)
		}
	})
	return strings.Contains(p.encoders, encoder)
}

// Negotiate walks an ordered preference list and returns the first format
// the runtime supports. Broadly compatible H.264+AAC comes first (hardware
// encoders preferred), then the open VP9/VP8 stacks. An exhausted list is an
// explicit failure, never a silent assumption.
func Negotiate(p Prober, kind config.OutputKind) (Format, error) {
	if kind == config.OutputAudio {
		audioPrefs := []Format{
			{Container: "m4a", AudioCodec: "aac", MIME: "audio/mp4", Ext: ".m4a", AudioOnly: true},
			{Container: "ogg", AudioCodec: "libopus", MIME: "audio/ogg", Ext: ".ogg", AudioOnly: true},
			{Container: "mp3", AudioCodec: "libmp3lame", MIME: "audio/mpeg", Ext: ".mp3", AudioOnly: true},
		}
		for _, f := range audioPrefs {
			if p.Supports(f.AudioCodec) {
				return f, nil
			}
		}
		return Format{}, ErrNoSupportedFormat
	}

	if p.Supports("aac") {
		for _, enc := range []string{"h264_videotoolbox", "h264_nvenc", "libx264"} {
			if p.Supports(enc) {
				return Format{
					Container: "mp4", VideoCodec: enc, AudioCodec: "aac",
					MIME: "video/mp4", Ext: ".mp4",
				}, nil
			}
		}
	}
	if p.Supports("libvpx-vp9") && p.Supports("libopus") {
		return Format{
			Container: "webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus",
			MIME: "video/webm", Ext: ".webm",
		}, nil
	}
	if p.Supports("libvpx") && p.Supports("libvorbis") {
		return Format{
			Container: "webm", VideoCodec: "libvpx", AudioCodec: "libvorbis",
			MIME: "video/webm", Ext: ".webm",
		}, nil
	}
	return Format{}, ErrNoSupportedFormat
}

// defaultQuality picks the encoder-specific quality knob: bitrate multiplier
// for VideoToolbox, CQ for NVENC, CRF otherwise.
func defaultQuality(videoCodec string) int {
	switch videoCodec {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	case "libvpx-vp9", "libvpx":
		return 32
	default: // libx264
		return 23
	}
}
