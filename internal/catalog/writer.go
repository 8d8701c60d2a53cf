package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// FieldChange records a single field change for diff reporting.
type FieldChange struct {
	Field    string
	OldValue any
	NewValue any
}

// WriteResult reports what happened when a model was written.
type WriteResult struct {
	Path    string
	IsNew   bool
	Changes []FieldChange
}

// SmartMergeWriter writes model YAML files into a snapshot directory. An
// existing file keeps its key order and any hand-added keys; only the fields
// the exporter knows about are overwritten.
type SmartMergeWriter struct {
	basePath string
}

// NewWriter creates a new SmartMergeWriter.
func NewWriter(basePath string) *SmartMergeWriter {
	return &SmartMergeWriter{basePath: basePath}
}

// WriteProvider writes providers/<name>/provider.yaml.
func (w *SmartMergeWriter) WriteProvider(p *Provider) (string, error) {
	dir := filepath.Join(w.basePath, "providers", p.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating provider dir: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshaling provider: %w", err)
	}
	path := filepath.Join(dir, "provider.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing provider.yaml: %w", err)
	}
	return path, nil
}

// WriteModel merges a descriptor into providers/<provider>/models/<name>.yaml.
// The verification timestamp alone does not count as a change, so unchanged
// models are left untouched on disk.
func (w *SmartMergeWriter) WriteModel(provider string, m *Model) (*WriteResult, error) {
	modelsDir := filepath.Join(w.basePath, "providers", provider, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating models dir: %w", err)
	}

	filePath := filepath.Join(modelsDir, m.Name+".yaml")
	result := &WriteResult{Path: filePath}

	existingData, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		result.IsNew = true
		return result, writeNewModel(filePath, m)
	} else if err != nil {
		return nil, fmt.Errorf("reading existing file: %w", err)
	}

	var existingDoc yaml.Node
	if err := yaml.Unmarshal(existingData, &existingDoc); err != nil {
		return nil, fmt.Errorf("parsing existing YAML: %w", err)
	}
	var existing Model
	if err := yaml.Unmarshal(existingData, &existing); err != nil {
		return nil, fmt.Errorf("parsing existing model: %w", err)
	}

	result.Changes = computeChanges(&existing, m)
	if len(result.Changes) == 0 {
		return result, nil
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling model: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing model YAML: %w", err)
	}

	out, err := yaml.Marshal(mergeNodes(&existingDoc, &doc))
	if err != nil {
		return nil, fmt.Errorf("marshaling merged YAML: %w", err)
	}
	if err := os.WriteFile(filePath, out, 0o644); err != nil {
		return nil, fmt.Errorf("writing merged file: %w", err)
	}
	return result, nil
}

func writeNewModel(path string, m *Model) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling model: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// mergeNodes overlays src mapping keys onto dst mapping, preserving dst order
// and any keys in dst not present in src.
func mergeNodes(dst, src *yaml.Node) *yaml.Node {
	if dst.Kind == yaml.DocumentNode && len(dst.Content) > 0 {
		dst = dst.Content[0]
	}
	if src.Kind == yaml.DocumentNode && len(src.Content) > 0 {
		src = src.Content[0]
	}

	if dst.Kind != yaml.MappingNode || src.Kind != yaml.MappingNode {
		return src
	}

	srcMap := make(map[string]*yaml.Node)
	for i := 0; i+1 < len(src.Content); i += 2 {
		srcMap[src.Content[i].Value] = src.Content[i+1]
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(dst.Content); i += 2 {
		key := dst.Content[i].Value
		if srcVal, ok := srcMap[key]; ok {
			dst.Content[i+1] = srcVal
			seen[key] = true
		}
	}

	for i := 0; i+1 < len(src.Content); i += 2 {
		key := src.Content[i].Value
		if !seen[key] {
			dst.Content = append(dst.Content, src.Content[i], src.Content[i+1])
		}
	}

	return dst
}

func computeChanges(existing, next *Model) []FieldChange {
	var changes []FieldChange
	str := func(field, prev, cur string) {
		if cur != "" && prev != cur {
			changes = append(changes, FieldChange{field, prev, cur})
		}
	}

	str("id", existing.ID, next.ID)
	str("provider", existing.Provider, next.Provider)
	str("family", existing.Family, next.Family)
	str("version", existing.Version, next.Version)
	str("type", existing.Type, next.Type)

	if next.ContextLength != 0 && existing.ContextLength != next.ContextLength {
		changes = append(changes, FieldChange{"context_length", existing.ContextLength, next.ContextLength})
	}
	if !slices.Equal(existing.Modalities.Input, next.Modalities.Input) {
		changes = append(changes, FieldChange{"modalities.input", existing.Modalities.Input, next.Modalities.Input})
	}
	if !slices.Equal(existing.Modalities.Output, next.Modalities.Output) {
		changes = append(changes, FieldChange{"modalities.output", existing.Modalities.Output, next.Modalities.Output})
	}

	return changes
}
