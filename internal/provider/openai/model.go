package openai

import (
	"context"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/everstacklabs/taskrelay/internal/model"
	"github.com/everstacklabs/taskrelay/internal/task"
)

// Model is a single OpenAI model.
type Model struct {
	provider      *Provider
	model         string
	contextLength int
	inputs        []task.IO
	outputs       []task.IO
}

var _ model.Model = (*Model)(nil)

func (m *Model) ID() string                  { return "openai/" + m.model }
func (m *Model) Type() model.Type            { return model.TypeRemote }
func (m *Model) Provider() string            { return "OpenAI" }
func (m *Model) ContextLength() int          { return m.contextLength }
func (m *Model) SupportedInputs() []task.IO  { return slices.Clone(m.inputs) }
func (m *Model) SupportedOutputs() []task.IO { return slices.Clone(m.outputs) }

// Name is the model family: GPT, TTS, DALL·E or the capitalized first
// segment of the model name.
func (m *Model) Name() string {
	switch {
	case strings.HasPrefix(m.model, "gpt"):
		return "GPT"
	case strings.HasPrefix(m.model, "tts"):
		return "TTS"
	case strings.HasPrefix(m.model, "dall-e"):
		return "DALL·E"
	}
	first, _, _ := strings.Cut(m.model, "-")
	return titleCase(first)
}

// Version is everything after the family, e.g. "4o-2024-05-13" for
// gpt-4o-2024-05-13 and "3" for dall-e-3.
func (m *Model) Version() string {
	name := m.model
	if strings.HasPrefix(name, "dall-e") {
		name = "dall_e" + strings.TrimPrefix(name, "dall-e")
	}
	_, version, _ := strings.Cut(name, "-")
	return version
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// PerformTask runs t against the model.
func (m *Model) PerformTask(ctx context.Context, t *task.Task) (*task.Output, error) {
	switch t.Kind {
	case task.KindMessageGeneration:
		return m.messageGeneration(ctx, t)
	case task.KindImageGeneration:
		return m.imageGeneration(ctx, t)
	default:
		return nil, newError(ErrValidation, "model `%s` cannot perform task kind `%s`", m.ID(), t.Kind)
	}
}

func (m *Model) messageGeneration(ctx context.Context, t *task.Task) (*task.Output, error) {
	if !t.HasAttachments() {
		return m.chat(ctx, t)
	}

	if !m.supportsAttachments() {
		return nil, newError(ErrCapability,
			"model `%s` does not yet support file attachments; select an OpenAI `gpt-5*` model or remove attachments", m.ID())
	}

	if t.DryRun {
		req := m.responsesRequest(t, nil)
		m.provider.logger.Debug("dry run: responses request not sent",
			"model", req.Model, "messages", len(req.Input), "attachments", len(t.Attachments))
		return task.EmptyOutput(m.ID()), nil
	}

	return m.responses(ctx, t)
}

func (m *Model) supportsAttachments() bool {
	return slices.ContainsFunc(m.inputs, func(in task.IO) bool {
		return in == task.IOImage || in == task.IOAudio || in == task.IOVideo
	})
}

// ignoredOptions logs one warning per set option the endpoint cannot use.
func (m *Model) ignoredOptions(opts []task.Option, purpose string) {
	for _, opt := range opts {
		if opt.Set {
			m.provider.logger.Warn("option ignored",
				"option", opt.Name, "model", m.Name(), "purpose", purpose)
		}
	}
}
