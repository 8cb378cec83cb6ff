package export

import (
	"errors"
	"testing"

	"github.com/ivlev/storyreel/internal/config"
)

type fakeProber struct {
	supported map[string]bool
}

func (p *fakeProber) Supports(encoder string) bool {
	return p.supported[encoder]
}

func prober(encoders ...string) *fakeProber {
	m := make(map[string]bool, len(encoders))
	for _, e := range encoders {
		m[e] = true
	}
	return &fakeProber{supported: m}
}

func TestNegotiateVideoPreferenceOrder(t *testing.T) {
	tests := []struct {
		name      string
		prober    *fakeProber
		container string
		video     string
		audio     string
	}{
		{
			"videotoolbox wins when present",
			prober("h264_videotoolbox", "h264_nvenc", "libx264", "aac", "libvpx-vp9", "libopus"),
			"mp4", "h264_videotoolbox", "aac",
		},
		{
			"nvenc before software x264",
			prober("h264_nvenc", "libx264", "aac"),
			"mp4", "h264_nvenc", "aac",
		},
		{
			"software h264 fallback",
			prober("libx264", "aac"),
			"mp4", "libx264", "aac",
		},
		{
			"vp9 webm when no aac",
			prober("libx264", "libvpx-vp9", "libopus"),
			"webm", "libvpx-vp9", "libopus",
		},
		{
			"vp8 webm as last resort",
			prober("libvpx", "libvorbis"),
			"webm", "libvpx", "libvorbis",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Negotiate(tt.prober, config.OutputVideo)
			if err != nil {
				t.Fatalf("Negotiate: %v", err)
			}
			if f.Container != tt.container || f.VideoCodec != tt.video || f.AudioCodec != tt.audio {
				t.Errorf("got %s/%s/%s, want %s/%s/%s",
					f.Container, f.VideoCodec, f.AudioCodec, tt.container, tt.video, tt.audio)
			}
			if f.AudioOnly {
				t.Error("video negotiation returned an audio-only format")
			}
		})
	}
}

func TestNegotiateAudioPreferenceOrder(t *testing.T) {
	tests := []struct {
		name   string
		prober *fakeProber
		codec  string
		mime   string
	}{
		{"aac preferred", prober("aac", "libopus", "libmp3lame"), "aac", "audio/mp4"},
		{"opus when no aac", prober("libopus", "libmp3lame"), "libopus", "audio/ogg"},
		{"mp3 last", prober("libmp3lame"), "libmp3lame", "audio/mpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Negotiate(tt.prober, config.OutputAudio)
			if err != nil {
				t.Fatalf("Negotiate: %v", err)
			}
			if f.AudioCodec != tt.codec || f.MIME != tt.mime {
				t.Errorf("got %s (%s), want %s (%s)", f.AudioCodec, f.MIME, tt.codec, tt.mime)
			}
			if !f.AudioOnly {
				t.Error("audio negotiation returned a video format")
			}
		})
	}
}

func TestNegotiateExhausted(t *testing.T) {
	// A video codec without a usable audio codec is not a valid pairing.
	for _, kind := range []config.OutputKind{config.OutputVideo, config.OutputAudio} {
		if _, err := Negotiate(prober("libx264"), kind); !errors.Is(err, ErrNoSupportedFormat) {
			t.Errorf("kind %s: got %v, want ErrNoSupportedFormat", kind, err)
		}
	}
}
