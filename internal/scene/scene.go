package scene

// Status is the lifecycle tag owned by the external generation pipeline.
// The compositor consumes it read-only, except that preload/export may mark
// a scene StatusError when its assets fail to load.
type Status string

const (
	StatusPending         Status = "pending"
	StatusGeneratingImage Status = "generating_image"
	StatusGeneratingAudio Status = "generating_audio"
	StatusReady           Status = "ready"
	StatusError           Status = "error"
)

// Scene is the atomic timeline unit: one still image plus one narration clip.
// Image and audio sources arrive asynchronously from the generation pipeline;
// whatever is populated when preload begins is what gets used.
type Scene struct {
	ID         string `yaml:"id"`
	Sequence   int    `yaml:"sequence"`
	ScriptText string `yaml:"script,omitempty"`

	// Opaque resource locators: http(s) URL, local path, pdf:<path>#page=N
	// or qr:<url>. Either may be absent.
	ImageSource string `yaml:"image,omitempty"`
	AudioSource string `yaml:"audio,omitempty"`

	EstimatedDuration float64 `yaml:"estimated_duration,omitempty"`
	ManualDuration    float64 `yaml:"manual_duration,omitempty"`

	// ResolvedAudioDuration is discovered at preload/decode time; zero when
	// the scene has no usable audio. Not persisted.
	ResolvedAudioDuration float64 `yaml:"-"`

	Status Status `yaml:"status,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

func (s *Scene) HasAudio() bool {
	return s.AudioSource != ""
}

// MarkError flags the scene as failed with a human-readable detail. This is
// the only mutation the compositor performs on scenes.
func (s *Scene) MarkError(detail string) {
	s.Status = StatusError
	s.Error = detail
}
