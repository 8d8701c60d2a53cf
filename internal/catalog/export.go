package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/everstacklabs/taskrelay/internal/model"
)

// ExportResult summarizes a snapshot export.
type ExportResult struct {
	Provider string
	Written  []*WriteResult
	Created  int
	Updated  int
}

// Export writes a snapshot of models for one provider under basePath, then
// stamps version.txt and regenerates the manifest.
func Export(basePath string, provider *Provider, models []model.Model, now time.Time) (*ExportResult, error) {
	w := NewWriter(basePath)
	if _, err := w.WriteProvider(provider); err != nil {
		return nil, err
	}

	res := &ExportResult{Provider: provider.Name}
	for _, m := range models {
		wr, err := w.WriteModel(provider.Name, FromModel(m, now))
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", m.ID(), err)
		}
		res.Written = append(res.Written, wr)
		switch {
		case wr.IsNew:
			res.Created++
		case len(wr.Changes) > 0:
			res.Updated++
		}
	}

	version := now.UTC().Format("2006.01.02-150405")
	if err := os.WriteFile(filepath.Join(basePath, "version.txt"), []byte(version+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("writing version.txt: %w", err)
	}
	if err := GenerateManifest(basePath, now); err != nil {
		return nil, fmt.Errorf("generating manifest: %w", err)
	}
	return res, nil
}
