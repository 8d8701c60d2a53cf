package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is a snapshot loaded from disk, grouped by provider.
type Catalog struct {
	BasePath  string
	Providers map[string]*ProviderCatalog
	Version   string
}

// ProviderCatalog holds the descriptors of one provider.
type ProviderCatalog struct {
	Provider Provider
	Models   map[string]*Model // keyed by model name
}

// Load reads the snapshot written by Export. Every provider directory must
// carry a provider.yaml; a provider without a models directory has no models.
func Load(basePath string) (*Catalog, error) {
	version, err := readVersion(basePath)
	if err != nil {
		return nil, err
	}
	cat := &Catalog{
		BasePath:  basePath,
		Providers: make(map[string]*ProviderCatalog),
		Version:   version,
	}

	providerFiles, err := filepath.Glob(filepath.Join(basePath, "providers", "*", "provider.yaml"))
	if err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	if len(providerFiles) == 0 {
		return nil, fmt.Errorf("no providers under %s", filepath.Join(basePath, "providers"))
	}

	for _, file := range providerFiles {
		dir := filepath.Dir(file)
		pc, err := loadProvider(dir)
		if err != nil {
			return nil, fmt.Errorf("loading provider %s: %w", filepath.Base(dir), err)
		}
		cat.Providers[filepath.Base(dir)] = pc
	}
	return cat, nil
}

func readVersion(basePath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(basePath, "version.txt"))
	if err != nil {
		return "", fmt.Errorf("reading version.txt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func loadProvider(dir string) (*ProviderCatalog, error) {
	pc := &ProviderCatalog{Models: make(map[string]*Model)}
	if err := readYAML(filepath.Join(dir, "provider.yaml"), &pc.Provider); err != nil {
		return nil, err
	}

	modelFiles, err := filepath.Glob(filepath.Join(dir, "models", "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	for _, file := range modelFiles {
		var m Model
		if err := readYAML(file, &m); err != nil {
			return nil, err
		}
		if prev, ok := pc.Models[m.Name]; ok {
			return nil, fmt.Errorf("%s: model %q already defined with id %s", filepath.Base(file), m.Name, prev.ID)
		}
		pc.Models[m.Name] = &m
	}
	return pc, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ProviderNames returns the snapshot's provider names in lexical order.
func (c *Catalog) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModelNames returns sorted model names for a provider.
func (c *Catalog) ModelNames(provider string) []string {
	pc, ok := c.Providers[provider]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(pc.Models))
	for name := range pc.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
