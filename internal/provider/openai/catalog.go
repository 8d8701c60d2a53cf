package openai

import (
	"context"
	"slices"
	"strings"

	sdk "github.com/sashabaranov/go-openai"

	"github.com/everstacklabs/taskrelay/internal/cache"
	"github.com/everstacklabs/taskrelay/internal/task"
)

// Catalog lists the models available to the configured account. It has two
// tiers: the raw /models listing, kept for hours to spare the API, and the
// derived model list, kept for minutes.
type Catalog struct {
	p    *Provider
	raw  *cache.Memo[[]sdk.Model]
	list *cache.Memo[[]*Model]
}

func newCatalog(p *Provider, opts ...cache.Option) *Catalog {
	return &Catalog{
		p:    p,
		raw:  cache.New[[]sdk.Model](p.rawTTL, opts...),
		list: cache.New[[]*Model](p.listTTL, opts...),
	}
}

// List returns the visible models in lexical order of name. Without an API
// key it returns an empty list and caches nothing, so a key supplied later
// is picked up by the next call.
func (c *Catalog) List(ctx context.Context) ([]*Model, error) {
	if _, err := c.p.apiKey(); err != nil {
		c.p.logger.Debug("openai catalog unavailable", "error", err)
		return []*Model{}, nil
	}

	models, err := c.list.Get(ctx, c.build)
	if err != nil {
		return nil, err
	}
	return slices.Clone(models), nil
}

// Invalidate drops both tiers.
func (c *Catalog) Invalidate() {
	c.list.Invalidate()
	c.raw.Invalidate()
}

func (c *Catalog) build(ctx context.Context) ([]*Model, error) {
	c.p.metrics.CatalogFetch("list")

	raw, err := c.raw.Get(ctx, c.fetch)
	if err != nil {
		return nil, err
	}

	models := make([]*Model, 0, len(raw))
	for _, rm := range raw {
		if isExcluded(rm.ID) {
			continue
		}
		models = append(models, c.p.Model(rm.ID))
	}
	slices.SortFunc(models, func(a, b *Model) int { return strings.Compare(a.model, b.model) })

	c.p.logger.Info("openai catalog built", "total_api_models", len(raw), "catalog_models", len(models))
	return models, nil
}

func (c *Catalog) fetch(ctx context.Context) ([]sdk.Model, error) {
	c.p.metrics.CatalogFetch("raw")

	list, err := c.p.sdk.ListModels(ctx)
	if err != nil {
		c.p.metrics.Request("models", "error")
		return nil, sdkError("models", err)
	}
	c.p.metrics.Request("models", "ok")
	c.p.logger.Debug("openai models listed", "count", len(list.Models))
	return list.Models, nil
}

// Unversioned aliases are hidden; their dated versions are listed instead.
var excluded = map[string]bool{
	"gpt-3.5-turbo":          true,
	"gpt-3.5-turbo-instruct": true,
	"gpt-4":                  true,
	"gpt-4-turbo":            true,
	"gpt-4o":                 true,
	"gpt-4o-mini":            true,
	"o1":                     true,
	"o1-mini":                true,
	"tts-1":                  true,
	"tts-1-hd":               true,
}

func isExcluded(id string) bool {
	return excluded[id]
}

func inferContextLength(id string) int {
	switch {
	case strings.HasPrefix(id, "gpt-4-1106"), strings.HasPrefix(id, "gpt-4-vision"):
		return 128000
	case strings.Contains(id, "-32k"):
		return 32768
	case strings.Contains(id, "-16k"), id == "gpt-3.5-turbo-1106":
		return 16385
	case strings.HasPrefix(id, "gpt-4"):
		return 8192
	case strings.HasPrefix(id, "dall-e-2"):
		return 1000
	default:
		return 4096
	}
}

func inferIO(id string) (inputs, outputs []task.IO) {
	text, image := task.IOText, task.IOImage
	switch {
	case strings.Contains(id, "vision"),
		strings.HasPrefix(id, "gpt-4o"),
		strings.HasPrefix(id, "o1"),
		strings.HasPrefix(id, "gpt-5"),
		strings.HasPrefix(id, "gpt-4.1"):
		return []task.IO{text, image}, []task.IO{text}
	case strings.HasPrefix(id, "gpt-4"), strings.HasPrefix(id, "gpt-3.5"):
		return []task.IO{text}, []task.IO{text}
	case strings.HasPrefix(id, "dall-e"):
		return []task.IO{text}, []task.IO{image}
	case strings.HasPrefix(id, "tts"):
		return []task.IO{text}, []task.IO{task.IOAudio}
	case strings.HasPrefix(id, "whisper"):
		return []task.IO{task.IOAudio}, []task.IO{text}
	default:
		return []task.IO{text}, []task.IO{text}
	}
}
