package model

import (
	"context"
	"slices"

	"github.com/everstacklabs/taskrelay/internal/task"
)

// Type says where a model runs.
type Type string

const (
	TypeLocal  Type = "local"
	TypeRemote Type = "remote"
)

// Model is a generative model that can perform tasks.
type Model interface {
	// ID returns the qualified identifier (e.g., "openai/gpt-5").
	ID() string
	Type() Type
	Provider() string
	Name() string
	Version() string
	ContextLength() int
	SupportedInputs() []task.IO
	SupportedOutputs() []task.IO
	// PerformTask runs the task and returns its output.
	PerformTask(ctx context.Context, t *task.Task) (*task.Output, error)
}

// Lister lists the models a provider makes available.
type Lister interface {
	// Name returns the provider name (e.g., "openai").
	Name() string
	// List returns the provider's models. An unconfigured provider returns an
	// empty list rather than an error.
	List(ctx context.Context) ([]Model, error)
}

// Supports reports whether m accepts the given input kind.
func Supports(m Model, io task.IO) bool {
	return slices.Contains(m.SupportedInputs(), io)
}

// Find returns the model with the given ID, or nil.
func Find(models []Model, id string) Model {
	for _, m := range models {
		if m.ID() == id {
			return m
		}
	}
	return nil
}
