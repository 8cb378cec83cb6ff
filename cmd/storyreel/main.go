package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ivlev/storyreel/internal/config"
	"github.com/ivlev/storyreel/internal/export"
	"github.com/ivlev/storyreel/internal/scene"
	"github.com/ivlev/storyreel/internal/source"
	"github.com/ivlev/storyreel/internal/system"
)

func main() {
	// .env is optional; it carries FFMPEG_PATH style overrides for dev setups.
	godotenv.Load()
	system.InitResourceLimits()

	projectPtr := flag.String("project", "project.yaml", "Path to the project manifest (YAML)")
	outputPtr := flag.String("output", "", "Output file path (if empty, generated under output/)")
	aspectPtr := flag.String("aspect", "", "Aspect ratio: wide, tall, square (overrides manifest)")
	qualityPtr := flag.String("quality", "", "Quality preset: 720p, 1080p, 1440p, 4k (overrides manifest)")
	kindPtr := flag.String("kind", "", "Output kind: video, audio (overrides manifest)")
	fpsPtr := flag.Int("fps", 30, "Frames per second")
	dpiPtr := flag.Int("dpi", 150, "Raster density for PDF page sources")
	outroPtr := flag.String("outro", "", "URL for an appended QR outro scene")
	statsPtr := flag.Bool("stats", false, "Print a stage timing report")
	verbosePtr := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbosePtr {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	manifest, err := scene.ReadManifest(*projectPtr)
	if err != nil {
		fmt.Printf("[-] Manifest error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[*] Project: %s (%d scenes)\n", title(manifest, *projectPtr), len(manifest.Scenes))

	cfg, err := buildConfig(manifest, *aspectPtr, *qualityPtr, *kindPtr)
	if err != nil {
		fmt.Printf("[-] %v\n", err)
		os.Exit(1)
	}
	cfg.ManifestPath = *projectPtr
	cfg.OutputPath = *outputPtr
	cfg.FPS = *fpsPtr
	cfg.DPI = *dpiPtr
	cfg.OutroURL = *outroPtr
	cfg.ShowStats = *statsPtr

	scenes := manifest.Scenes
	if cfg.OutroURL != "" {
		scenes = append(scenes, source.OutroScene(uuid.NewString(), cfg.OutroURL))
		fmt.Printf("[*] Appended QR outro for %s\n", cfg.OutroURL)
	}

	exporter, err := export.New(cfg, log)
	if err != nil {
		fmt.Printf("[-] %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[*] Output frame: %dx%d (%s @ %s)\n", exporter.Width, exporter.Height, cfg.Quality, cfg.Aspect)

	stats := newStageStats()
	exporter.OnProgress = func(percent int, status string) {
		stats.observe(status)
		fmt.Printf("[*] %3d%% %s\n", percent, status)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	out, err := exporter.Export(ctx, scenes)
	if err != nil {
		fmt.Printf("[-] Export failed: %v\n", err)
		os.Exit(1)
	}

	outPath := cfg.OutputPath
	if outPath == "" {
		outPath = defaultOutputPath(manifest, *projectPtr, out.MIME)
	}
	if dir := filepath.Dir(outPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	if err := os.WriteFile(outPath, out.Data, 0644); err != nil {
		fmt.Printf("[-] Could not write output: %v\n", err)
		os.Exit(1)
	}

	if cfg.ShowStats {
		stats.report()
	}
	fmt.Printf("[+++] Done in %s: %s (%s, %d KB)\n",
		time.Since(started).Round(time.Millisecond), outPath, out.MIME, len(out.Data)/1024)
}

// buildConfig layers the manifest over the defaults, then flags over the
// manifest.
func buildConfig(m *scene.Manifest, aspect, quality, kind string) (config.Config, error) {
	cfg := config.Default()

	for _, layer := range []struct{ aspect, quality, kind string }{
		{m.Aspect, m.Quality, m.Output},
		{aspect, quality, kind},
	} {
		var err error
		if layer.aspect != "" {
			if cfg.Aspect, err = config.ParseAspect(layer.aspect); err != nil {
				return cfg, err
			}
		}
		if layer.quality != "" {
			if cfg.Quality, err = config.ParseQuality(layer.quality); err != nil {
				return cfg, err
			}
		}
		if layer.kind != "" {
			if cfg.Kind, err = config.ParseOutputKind(layer.kind); err != nil {
				return cfg, err
			}
		}
	}
	return cfg, nil
}

func title(m *scene.Manifest, manifestPath string) string {
	if m.Title != "" {
		return m.Title
	}
	return filepath.Base(manifestPath)
}

func defaultOutputPath(m *scene.Manifest, manifestPath, mime string) string {
	name := strings.TrimSuffix(filepath.Base(manifestPath), filepath.Ext(manifestPath))
	if m.Title != "" {
		name = strings.ReplaceAll(m.Title, " ", "_")
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s%s", name, timestamp, extFor(mime)))
}

func extFor(mime string) string {
	switch mime {
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "audio/mp4":
		return ".m4a"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	}
	return ".bin"
}

// stageStats times how long the export spends in each reported stage.
type stageStats struct {
	order   []string
	entered map[string]time.Time
	spent   map[string]time.Duration
	current string
	since   time.Time
}

func newStageStats() *stageStats {
	return &stageStats{
		entered: make(map[string]time.Time),
		spent:   make(map[string]time.Duration),
	}
}

func (s *stageStats) observe(status string) {
	stage := status
	if i := strings.IndexByte(status, ' '); i > 0 {
		stage = status[:i]
	}
	if stage == s.current {
		return
	}
	now := time.Now()
	if s.current != "" {
		s.spent[s.current] += now.Sub(s.since)
	}
	if _, seen := s.entered[stage]; !seen {
		s.entered[stage] = now
		s.order = append(s.order, stage)
	}
	s.current = stage
	s.since = now
}

func (s *stageStats) report() {
	s.observe("done")
	fmt.Println("[*] Stage timings:")
	for _, stage := range s.order {
		if stage == "done" {
			continue
		}
		fmt.Printf("    %-16s %s\n", stage, s.spent[stage].Round(time.Millisecond))
	}
}
