package openai

import (
	"context"
	"math"
	"strings"

	sdk "github.com/sashabaranov/go-openai"

	"github.com/everstacklabs/taskrelay/internal/task"
)

// chatRequest translates a task without attachments into a chat completion
// request. Parts a role cannot carry are dropped with a warning.
func (m *Model) chatRequest(t *task.Task) sdk.ChatCompletionRequest {
	messages := make([]sdk.ChatCompletionMessage, 0, len(t.Messages))
	for _, msg := range t.Messages {
		switch msg.EffectiveRole() {
		case task.RoleSystem:
			messages = append(messages, sdk.ChatCompletionMessage{
				Role:    sdk.ChatMessageRoleSystem,
				Content: strings.Join(m.textParts(msg, "system"), "\n\n"),
			})
		case task.RoleModel:
			messages = append(messages, sdk.ChatCompletionMessage{
				Role:    sdk.ChatMessageRoleAssistant,
				Content: strings.Join(m.textParts(msg, "assistant"), ""),
			})
		default:
			var parts []sdk.ChatMessagePart
			for _, part := range msg.Parts {
				switch p := part.(type) {
				case task.TextPart:
					parts = append(parts, sdk.ChatMessagePart{Type: sdk.ChatMessagePartTypeText, Text: p.Text})
				case task.ImagePart:
					parts = append(parts, sdk.ChatMessagePart{
						Type:     sdk.ChatMessagePartTypeImageURL,
						ImageURL: &sdk.ChatMessageImageURL{URL: p.URL, Detail: sdk.ImageURLDetailAuto},
					})
				default:
					m.droppedPart("chat", "user", part)
				}
			}
			messages = append(messages, sdk.ChatCompletionMessage{
				Role:         sdk.ChatMessageRoleUser,
				MultiContent: parts,
			})
		}
	}

	req := sdk.ChatCompletionRequest{
		Model:    m.model,
		Messages: messages,
		Seed:     t.Seed,
	}
	if t.Temperature != nil {
		req.Temperature = *t.Temperature
		// The request omits a zero temperature.
		if req.Temperature == 0 {
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if t.TopP != nil {
		req.TopP = *t.TopP
	}
	if t.Stop != nil {
		req.Stop = []string{*t.Stop}
	}
	if t.MaxTokens != nil {
		req.MaxCompletionTokens = *t.MaxTokens
	}
	if t.RepeatPenalty != nil {
		req.PresencePenalty = *t.RepeatPenalty
	}
	return req
}

// textParts returns the text of msg, dropping other parts with a warning.
func (m *Model) textParts(msg task.Message, role string) []string {
	var texts []string
	for _, part := range msg.Parts {
		if p, ok := part.(task.TextPart); ok {
			texts = append(texts, p.Text)
			continue
		}
		m.droppedPart("chat", role, part)
	}
	return texts
}

func (m *Model) droppedPart(shape, role string, part task.Part) {
	m.provider.logger.Warn("message part ignored", "shape", shape, "role", role, "part", part.String(), "model", m.ID())
	m.provider.metrics.DroppedPart(shape)
}

// chat performs a task through the chat completions endpoint.
func (m *Model) chat(ctx context.Context, t *task.Task) (*task.Output, error) {
	m.provider.logger.Debug("sending chat completion request", "model", m.model)

	req := m.chatRequest(t)
	m.ignoredOptions(t.LocalOptions(), "chat completion")

	if t.DryRun {
		return task.EmptyOutput(m.ID()), nil
	}
	if _, err := m.provider.apiKey(); err != nil {
		return nil, err
	}

	resp, err := m.provider.sdk.CreateChatCompletion(ctx, req)
	if err != nil {
		m.provider.metrics.Request("chat", "error")
		return nil, sdkError("chat completions", err)
	}
	m.provider.metrics.Request("chat", "ok")

	var text string
	if n := len(resp.Choices); n > 0 {
		text = resp.Choices[n-1].Message.Content
	}
	return task.TextOutput(m.ID(), t.Format, text), nil
}
