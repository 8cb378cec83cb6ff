package config

import "fmt"

// AspectRatio selects the output frame orientation. Quality presets are
// defined at the canonical wide aspect; other aspects reinterpret the same
// preset preserving the long-edge pixel count.
type AspectRatio string

const (
	AspectWide   AspectRatio = "wide"   // 16:9
	AspectTall   AspectRatio = "tall"   // 9:16 (Shorts/TikTok)
	AspectSquare AspectRatio = "square" // 1:1
)

// Quality names a fixed baseline resolution at the wide aspect.
type Quality string

const (
	Quality720p  Quality = "720p"
	Quality1080p Quality = "1080p"
	Quality1440p Quality = "1440p"
	Quality4K    Quality = "4k"
)

// OutputKind selects what the exporter produces.
type OutputKind string

const (
	OutputVideo OutputKind = "video"
	OutputAudio OutputKind = "audio"
)

type Config struct {
	ManifestPath string
	OutputPath   string

	Aspect  AspectRatio
	Quality Quality
	Kind    OutputKind

	FPS        int
	SampleRate int
	Channels   int
	DPI        int // raster density for PDF page sources

	OutroURL string // when set, a QR outro scene is appended

	FFmpegPath  string
	FFprobePath string

	ShowStats bool
}

// Default returns the baseline configuration the CLI starts from before
// manifest values and flags are applied.
func Default() Config {
	return Config{
		Aspect:     AspectWide,
		Quality:    Quality1080p,
		Kind:       OutputVideo,
		FPS:        30,
		SampleRate: 44100,
		Channels:   2,
		DPI:        150,
	}
}

var baseDimensions = map[Quality][2]int{
	Quality720p:  {1280, 720},
	Quality1080p: {1920, 1080},
	Quality1440p: {2560, 1440},
	Quality4K:    {3840, 2160},
}

// FrameDimensions derives the output frame size from a quality preset and an
// aspect ratio. The preset defines width x height at the wide aspect; tall
// swaps the axes and square uses the long edge on both sides, so the
// long-edge pixel count is preserved across aspects. Dimensions are forced
// even because yuv420p requires it.
func FrameDimensions(q Quality, a AspectRatio) (int, int, error) {
	base, ok := baseDimensions[q]
	if !ok {
		return 0, 0, fmt.Errorf("unknown quality preset %q", q)
	}
	long, short := base[0], base[1]

	var w, h int
	switch a {
	case AspectWide:
		w, h = long, short
	case AspectTall:
		w, h = short, long
	case AspectSquare:
		w, h = long, long
	default:
		return 0, 0, fmt.Errorf("unknown aspect ratio %q", a)
	}
	return evenize(w), evenize(h), nil
}

func evenize(v int) int {
	if v%2 != 0 {
		v++
	}
	return v
}

// ParseAspect validates a manifest or flag aspect value.
func ParseAspect(s string) (AspectRatio, error) {
	switch AspectRatio(s) {
	case AspectWide, AspectTall, AspectSquare:
		return AspectRatio(s), nil
	}
	return "", fmt.Errorf("unknown aspect ratio %q (want wide, tall or square)", s)
}

// ParseQuality validates a manifest or flag quality value.
func ParseQuality(s string) (Quality, error) {
	if _, ok := baseDimensions[Quality(s)]; !ok {
		return "", fmt.Errorf("unknown quality preset %q (want 720p, 1080p, 1440p or 4k)", s)
	}
	return Quality(s), nil
}

// ParseOutputKind validates a manifest or flag output kind.
func ParseOutputKind(s string) (OutputKind, error) {
	switch OutputKind(s) {
	case OutputVideo, OutputAudio:
		return OutputKind(s), nil
	}
	return "", fmt.Errorf("unknown output kind %q (want video or audio)", s)
}
