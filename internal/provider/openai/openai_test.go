package openai

import (
	"slices"
	"testing"

	"github.com/everstacklabs/taskrelay/internal/task"
)

func TestIsExcluded(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"gpt-3.5-turbo", true},
		{"gpt-3.5-turbo-instruct", true},
		{"gpt-4", true},
		{"gpt-4-turbo", true},
		{"gpt-4o", true},
		{"gpt-4o-mini", true},
		{"o1", true},
		{"o1-mini", true},
		{"tts-1", true},
		{"tts-1-hd", true},

		{"gpt-4o-2024-05-13", false},
		{"gpt-4-0613", false},
		{"gpt-5", false},
		{"gpt-4.1-mini", false},
		{"dall-e-3", false},
		{"whisper-1", false},
		{"o1-2024-12-17", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := isExcluded(tt.id); got != tt.want {
				t.Errorf("isExcluded(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestInferContextLength(t *testing.T) {
	tests := []struct {
		id   string
		want int
	}{
		{"gpt-4-1106-preview", 128000},
		{"gpt-4-vision-preview", 128000},
		{"gpt-4-32k-0613", 32768},
		{"gpt-3.5-turbo-16k", 16385},
		{"gpt-3.5-turbo-1106", 16385},
		{"gpt-4-0613", 8192},
		{"gpt-4o-2024-05-13", 8192},
		{"dall-e-2", 1000},
		{"dall-e-3", 4096},
		{"gpt-3.5-turbo-0125", 4096},
		{"whisper-1", 4096},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := inferContextLength(tt.id); got != tt.want {
				t.Errorf("inferContextLength(%q) = %d, want %d", tt.id, got, tt.want)
			}
		})
	}
}

func TestInferIO(t *testing.T) {
	text, image, audio := task.IOText, task.IOImage, task.IOAudio
	tests := []struct {
		id      string
		inputs  []task.IO
		outputs []task.IO
	}{
		{"gpt-4-vision-preview", []task.IO{text, image}, []task.IO{text}},
		{"gpt-4o-2024-05-13", []task.IO{text, image}, []task.IO{text}},
		{"o1-2024-12-17", []task.IO{text, image}, []task.IO{text}},
		{"gpt-5", []task.IO{text, image}, []task.IO{text}},
		{"gpt-4.1-mini", []task.IO{text, image}, []task.IO{text}},
		{"gpt-4-0613", []task.IO{text}, []task.IO{text}},
		{"gpt-3.5-turbo-0125", []task.IO{text}, []task.IO{text}},
		{"dall-e-3", []task.IO{text}, []task.IO{image}},
		{"tts-1-1106", []task.IO{text}, []task.IO{audio}},
		{"whisper-1", []task.IO{audio}, []task.IO{text}},
		{"text-embedding-3-small", []task.IO{text}, []task.IO{text}},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			in, out := inferIO(tt.id)
			if !slices.Equal(in, tt.inputs) || !slices.Equal(out, tt.outputs) {
				t.Errorf("inferIO(%q) = %v -> %v, want %v -> %v", tt.id, in, out, tt.inputs, tt.outputs)
			}
		})
	}
}

func TestModelIdentity(t *testing.T) {
	p := New()
	tests := []struct {
		model   string
		name    string
		version string
	}{
		{"gpt-4o-2024-05-13", "GPT", "4o-2024-05-13"},
		{"gpt-5", "GPT", "5"},
		{"tts-1-hd-1106", "TTS", "1-hd-1106"},
		{"dall-e-3", "DALL·E", "3"},
		{"dall-e-2", "DALL·E", "2"},
		{"whisper-1", "Whisper", "1"},
		{"o1-2024-12-17", "O1", "2024-12-17"},
		{"babbage-002", "Babbage", "002"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			m := p.Model(tt.model)
			if got := m.ID(); got != "openai/"+tt.model {
				t.Errorf("ID() = %q", got)
			}
			if got := m.Provider(); got != "OpenAI" {
				t.Errorf("Provider() = %q", got)
			}
			if got := m.Name(); got != tt.name {
				t.Errorf("Name() = %q, want %q", got, tt.name)
			}
			if got := m.Version(); got != tt.version {
				t.Errorf("Version() = %q, want %q", got, tt.version)
			}
		})
	}
}

func TestShouldRetryWithVision(t *testing.T) {
	tests := []struct {
		name  string
		model string
		body  string
		want  bool
	}{
		{"gpt-5 image rejection", "gpt-5", `{"error":{"message":"Model does not support image inputs"}}`, true},
		{"gpt-4.1 context stuffing", "gpt-4.1-nano", "Invalid input: context stuffing detected", true},
		{"stuffing needs both phrases", "gpt-5-mini", "Invalid input", false},
		{"other model", "gpt-4o-2024-05-13", "does not support image inputs", false},
		{"unrelated error", "gpt-5", "rate limit exceeded", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetryWithVision(tt.model, tt.body); got != tt.want {
				t.Errorf("shouldRetryWithVision(%q, %q) = %v, want %v", tt.model, tt.body, got, tt.want)
			}
		})
	}
}

func TestVisionSubstitute(t *testing.T) {
	tests := []struct {
		model string
		want  string
		ok    bool
	}{
		{"gpt-5", "gpt-4.1-mini", true},
		{"gpt-5.1-codex", "gpt-4.1-mini", true},
		{"gpt-4.1", "gpt-4o-mini", true},
		{"gpt-4.1-mini", "gpt-4o-mini", true},
		{"gpt-4o", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, ok := visionSubstitute(tt.model)
			if got != tt.want || ok != tt.ok {
				t.Errorf("visionSubstitute(%q) = %q, %v, want %q, %v", tt.model, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestShouldUpload(t *testing.T) {
	tests := []struct {
		mediaType string
		want      bool
	}{
		{"application/pdf", true},
		{"APPLICATION/PDF", true},
		{"image/png", true},
		{"audio/mpeg", true},
		{"video/mp4", true},
		{"text/plain", false},
		{"application/json", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			att := task.Attachment{Alias: "a", File: task.File{MediaType: tt.mediaType}}
			if got := shouldUpload(att); got != tt.want {
				t.Errorf("shouldUpload(%q) = %v, want %v", tt.mediaType, got, tt.want)
			}
		})
	}
}
