package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const manifestHeader = "# Model catalog snapshot manifest\n# Generated by `taskrelay models export`. Do not edit.\n\n"

// ManifestProvider lists one provider's model files.
type ManifestProvider struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name,omitempty"`
	Models      []string `yaml:"models"`
}

// ManifestStats counts the snapshot's models by modality. A model is counted
// once per modality it accepts or produces.
type ManifestStats struct {
	TotalModels int            `yaml:"total_models"`
	Inputs      map[string]int `yaml:"inputs"`
	Outputs     map[string]int `yaml:"outputs"`
	// Attachments counts models that accept image, audio or video input.
	Attachments int `yaml:"attachments"`
}

// Manifest is the manifest.yaml at the root of a snapshot.
type Manifest struct {
	Version     string             `yaml:"version"`
	GeneratedAt string             `yaml:"generated_at"`
	Providers   []ManifestProvider `yaml:"providers"`
	Stats       ManifestStats      `yaml:"stats"`
}

// BuildManifest summarizes a loaded snapshot.
func BuildManifest(cat *Catalog, now time.Time) *Manifest {
	m := &Manifest{
		Version:     cat.Version,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Providers:   []ManifestProvider{},
		Stats:       ManifestStats{Inputs: map[string]int{}, Outputs: map[string]int{}},
	}

	for _, name := range cat.ProviderNames() {
		pc := cat.Providers[name]
		mp := ManifestProvider{Name: name, DisplayName: pc.Provider.DisplayName, Models: []string{}}
		for _, modelName := range cat.ModelNames(name) {
			desc := pc.Models[modelName]
			mp.Models = append(mp.Models, filepath.Join("providers", name, "models", modelName+".yaml"))
			m.Stats.count(desc)
		}
		m.Providers = append(m.Providers, mp)
	}
	return m
}

func (s *ManifestStats) count(m *Model) {
	s.TotalModels++
	attachments := false
	for _, in := range m.Modalities.Input {
		s.Inputs[in]++
		if in == "image" || in == "audio" || in == "video" {
			attachments = true
		}
	}
	for _, out := range m.Modalities.Output {
		s.Outputs[out]++
	}
	if attachments {
		s.Attachments++
	}
}

// GenerateManifest loads the snapshot at basePath and writes its manifest.yaml.
func GenerateManifest(basePath string, now time.Time) error {
	cat, err := Load(basePath)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(BuildManifest(cat, now))
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(basePath, "manifest.yaml"), append([]byte(manifestHeader), data...), 0o644)
}
