package task

import (
	"fmt"
	"strings"
)

// Kind is the kind of generation a task asks for.
type Kind string

const (
	KindMessageGeneration Kind = "message-generation"
	KindImageGeneration   Kind = "image-generation"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// IO is an input or output modality of a model.
type IO string

const (
	IOText  IO = "text"
	IOImage IO = "image"
	IOAudio IO = "audio"
	IOVideo IO = "video"
)

// Message is one turn of a conversation.
type Message struct {
	// Role defaults to RoleUser when empty.
	Role  Role
	Parts []Part
}

// EffectiveRole returns the role, defaulting to RoleUser.
func (m Message) EffectiveRole() Role {
	if m.Role == "" {
		return RoleUser
	}
	return m.Role
}

// File describes the payload of an attachment.
type File struct {
	Name      string
	MediaType string
	// Content is raw text or, when TransferEncoding is "base64", encoded bytes.
	Content          *string
	TransferEncoding string
}

// Attachment is a file attached to a task under a short alias.
type Attachment struct {
	Alias string
	File  File
}

// ImageSize is a requested image width and height in pixels.
type ImageSize struct {
	Width  int
	Height int
}

// Task is a unit of work for a model. It is treated as read-only.
type Task struct {
	Kind        Kind
	Messages    []Message
	Attachments []Attachment
	Format      string
	DryRun      bool

	Temperature   *float32
	TopP          *float32
	Seed          *int
	Stop          *string
	MaxTokens     *int
	RepeatPenalty *float32

	// Options honoured only by local inference engines.
	Mirostat    *int
	MirostatEta *float32
	MirostatTau *float32
	NumCtx      *int
	NumGQA      *int
	NumGPU      *int
	NumThread   *int
	RepeatLastN *int
	TfsZ        *float32
	TopK        *int

	ImageSize    *ImageSize
	ImageQuality *string
	ImageStyle   *string
}

// Option is a named generation parameter together with whether it is set.
type Option struct {
	Name string
	Set  bool
}

// LocalOptions lists the options that only local inference engines understand.
func (t *Task) LocalOptions() []Option {
	return []Option{
		{"mirostat", t.Mirostat != nil},
		{"mirostat_eta", t.MirostatEta != nil},
		{"mirostat_tau", t.MirostatTau != nil},
		{"num_ctx", t.NumCtx != nil},
		{"num_gqa", t.NumGQA != nil},
		{"num_gpu", t.NumGPU != nil},
		{"num_thread", t.NumThread != nil},
		{"repeat_last_n", t.RepeatLastN != nil},
		{"tfs_z", t.TfsZ != nil},
		{"top_k", t.TopK != nil},
	}
}

// ChatOptions lists the text generation options, local ones included.
func (t *Task) ChatOptions() []Option {
	opts := t.LocalOptions()
	return append(opts,
		Option{"repeat_penalty", t.RepeatPenalty != nil},
		Option{"temperature", t.Temperature != nil},
		Option{"seed", t.Seed != nil},
		Option{"stop", t.Stop != nil},
		Option{"max_tokens", t.MaxTokens != nil},
		Option{"top_p", t.TopP != nil},
	)
}

// HasAttachments reports whether the task carries at least one attachment.
func (t *Task) HasAttachments() bool {
	return len(t.Attachments) > 0
}

// Validate checks structural constraints: a known kind, at least one message
// and unique attachment aliases.
func (t *Task) Validate() error {
	switch t.Kind {
	case KindMessageGeneration, KindImageGeneration:
	case "":
		return fmt.Errorf("task kind is required")
	default:
		return fmt.Errorf("unknown task kind %q", t.Kind)
	}
	if len(t.Messages) == 0 {
		return fmt.Errorf("task has no messages")
	}
	for i, m := range t.Messages {
		switch m.Role {
		case "", RoleSystem, RoleUser, RoleModel:
		default:
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	seen := make(map[string]bool, len(t.Attachments))
	for i, a := range t.Attachments {
		alias := strings.TrimSpace(a.Alias)
		if alias == "" {
			return fmt.Errorf("attachment %d: alias is required", i)
		}
		if seen[alias] {
			return fmt.Errorf("duplicate attachment alias %q", alias)
		}
		seen[alias] = true
	}
	return nil
}
