package scene

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Manifest is the YAML project file describing a slideshow. The scene order
// in the file is the playback order; Sequence is position-of-record only.
type Manifest struct {
	Version string   `yaml:"version"`
	Title   string   `yaml:"title,omitempty"`
	Aspect  string   `yaml:"aspect,omitempty"`
	Quality string   `yaml:"quality,omitempty"`
	Output  string   `yaml:"output,omitempty"`
	Scenes  []*Scene `yaml:"scenes"`
}

// ReadManifest loads a project file. Scenes without an id get a generated
// UUID and scenes without a sequence get their 1-based list position, so a
// hand-written manifest stays valid.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest parse error: %w", err)
	}

	for i, s := range m.Scenes {
		if s == nil {
			return nil, fmt.Errorf("manifest scene %d is empty", i+1)
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.Sequence == 0 {
			s.Sequence = i + 1
		}
		if s.Status == "" {
			s.Status = StatusPending
		}
	}

	return &m, nil
}

// WriteManifest saves a project file.
func WriteManifest(m *Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
