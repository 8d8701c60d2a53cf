package catalog

import (
	"strings"
	"time"

	"github.com/everstacklabs/taskrelay/internal/model"
	"github.com/everstacklabs/taskrelay/internal/task"
)

// Model is a model descriptor as stored in a catalog snapshot.
type Model struct {
	Name          string     `yaml:"name"`
	ID            string     `yaml:"id"`
	Provider      string     `yaml:"provider"`
	Family        string     `yaml:"family"`
	Version       string     `yaml:"version,omitempty"`
	Type          string     `yaml:"type"`
	ContextLength int        `yaml:"context_length"`
	Modalities    Modalities `yaml:"modalities"`
	XUpdater      *XUpdater  `yaml:"x_updater,omitempty"`
}

// Modalities represents input/output modalities.
type Modalities struct {
	Input  []string `yaml:"input"`
	Output []string `yaml:"output"`
}

// XUpdater holds exporter metadata appended to model files.
type XUpdater struct {
	LastVerifiedAt string   `yaml:"last_verified_at"`
	Sources        []string `yaml:"sources"`
}

// Provider represents a provider.yaml file.
type Provider struct {
	Name                   string `yaml:"name"`
	DisplayName            string `yaml:"display_name"`
	SupportsModelDiscovery bool   `yaml:"supports_model_discovery"`
}

// FromModel builds a descriptor for m. The file name is the part of the ID
// after the provider prefix.
func FromModel(m model.Model, verifiedAt time.Time) *Model {
	return &Model{
		Name:          fileName(m.ID()),
		ID:            m.ID(),
		Provider:      m.Provider(),
		Family:        m.Name(),
		Version:       m.Version(),
		Type:          string(m.Type()),
		ContextLength: m.ContextLength(),
		Modalities: Modalities{
			Input:  ioNames(m.SupportedInputs()),
			Output: ioNames(m.SupportedOutputs()),
		},
		XUpdater: &XUpdater{
			LastVerifiedAt: verifiedAt.UTC().Format(time.RFC3339),
			Sources:        []string{"api"},
		},
	}
}

func ioNames(ios []task.IO) []string {
	out := make([]string, len(ios))
	for i, io := range ios {
		out[i] = string(io)
	}
	return out
}

func fileName(id string) string {
	return id[strings.LastIndex(id, "/")+1:]
}
