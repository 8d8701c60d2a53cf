package openai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/everstacklabs/taskrelay/internal/httpclient"
	"github.com/everstacklabs/taskrelay/internal/task"
)

type responsesRequest struct {
	Model           string            `json:"model"`
	Input           []responseMessage `json:"input"`
	Temperature     *float32          `json:"temperature,omitempty"`
	TopP            *float32          `json:"top_p,omitempty"`
	Stop            []string          `json:"stop,omitempty"`
	Seed            *int              `json:"seed,omitempty"`
	MaxOutputTokens *int              `json:"max_output_tokens,omitempty"`
}

type responseMessage struct {
	Role    string            `json:"role"`
	Content []responseContent `json:"content"`
}

// responseContent is one typed content block: input_text, output_text,
// input_image or input_file.
type responseContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	FileID   string `json:"file_id,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type responsesResponse struct {
	Output []responseOutput `json:"output"`
}

// responseOutput is an output item. Messages carry content blocks and
// reasoning items carry summary blocks.
type responseOutput struct {
	Type    string                  `json:"type"`
	Role    string                  `json:"role,omitempty"`
	Content []responseOutputContent `json:"content"`
	Summary []responseOutputContent `json:"summary"`
}

type responseOutputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// text joins every output_text and summary_text block.
func (r *responsesResponse) text() string {
	var segments []string
	for _, item := range r.Output {
		for _, blocks := range [][]responseOutputContent{item.Content, item.Summary} {
			for _, c := range blocks {
				if c.Type == "output_text" || c.Type == "summary_text" {
					segments = append(segments, c.Text)
				}
			}
		}
	}
	return strings.TrimSpace(strings.Join(segments, "\n"))
}

// responsesRequest translates a task into a responses request and splices the
// uploaded attachments into the last user message, or into a new trailing user
// message when there is none.
func (m *Model) responsesRequest(t *task.Task, uploaded []uploadedAttachment) *responsesRequest {
	input := make([]responseMessage, 0, len(t.Messages)+1)
	for _, msg := range t.Messages {
		role := "user"
		switch msg.EffectiveRole() {
		case task.RoleSystem:
			role = "system"
		case task.RoleModel:
			role = "assistant"
		}

		content := []responseContent{}
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case task.TextPart:
				typ := "input_text"
				if role == "assistant" {
					typ = "output_text"
				}
				content = append(content, responseContent{Type: typ, Text: p.Text})
			case task.ImagePart:
				content = append(content, responseContent{Type: "input_image", ImageURL: p.URL})
			default:
				m.droppedPart("responses", role, part)
			}
		}
		input = append(input, responseMessage{Role: role, Content: content})
	}

	if len(uploaded) > 0 {
		var extra []responseContent
		for _, u := range uploaded {
			extra = append(extra, u.contents()...)
		}
		last := -1
		for i := len(input) - 1; i >= 0; i-- {
			if input[i].Role == "user" {
				last = i
				break
			}
		}
		if last >= 0 {
			input[last].Content = append(input[last].Content, extra...)
		} else {
			input = append(input, responseMessage{Role: "user", Content: extra})
		}
	}

	req := &responsesRequest{
		Model:           m.model,
		Input:           input,
		Temperature:     t.Temperature,
		TopP:            t.TopP,
		Seed:            t.Seed,
		MaxOutputTokens: t.MaxTokens,
	}
	if t.Stop != nil {
		req.Stop = []string{*t.Stop}
	}
	return req
}

// responses uploads the task's attachments and sends the rich request. A
// rejection of the attachments by a gpt-5 or gpt-4.1 model is retried once on
// a substitute model.
func (m *Model) responses(ctx context.Context, t *task.Task) (*task.Output, error) {
	p := m.provider
	p.logger.Debug("sending responses request with attachments", "model", m.model)

	if _, err := p.apiKey(); err != nil {
		return nil, err
	}

	uploaded, err := p.uploadAll(ctx, t.Attachments)
	if err != nil {
		return nil, err
	}
	req := m.responsesRequest(t, uploaded)

	resp, err := p.postResponses(ctx, req)
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		body := string(resp.Body)
		p.logger.Warn("OpenAI responses API request failed",
			"model", req.Model, "status", resp.Status, "message", providerMessage(resp.Body))

		substitute, ok := visionSubstitute(m.model)
		if !ok || !shouldRetryWithVision(m.model, body) {
			return nil, responsesError(resp, "")
		}

		p.logger.Info("retrying attachment request with vision-capable model", "from", m.model, "to", substitute)
		req.Model = substitute
		resp, err = p.postResponses(ctx, req)
		if err != nil {
			p.metrics.Fallback(m.model, substitute, "error")
			return nil, err
		}
		if !resp.OK() {
			p.metrics.Fallback(m.model, substitute, "error")
			return nil, responsesError(resp, " after vision retry")
		}
		p.metrics.Fallback(m.model, substitute, "ok")
	}

	var out responsesResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, wrapError(ErrProvider, err, "parsing responses API response")
	}
	text := out.text()
	if text == "" {
		return nil, newError(ErrEmptyOutput, "OpenAI response did not contain output text")
	}
	return task.TextOutput(m.ID(), t.Format, text), nil
}

func (p *Provider) postResponses(ctx context.Context, req *responsesRequest) (*httpclient.Response, error) {
	resp, err := p.http.PostJSON(ctx, p.endpoint("/responses"), req, betaHeaders)
	if err != nil {
		p.metrics.Request("responses", "error")
		return nil, transportError("responses", err)
	}
	outcome := "ok"
	if !resp.OK() {
		outcome = "error"
	}
	p.metrics.Request("responses", outcome)
	return resp, nil
}

func responsesError(resp *httpclient.Response, suffix string) *Error {
	body := string(resp.Body)
	return &Error{
		Kind:    ErrProvider,
		Message: "OpenAI responses API returned " + resp.Status + suffix + ": " + body,
		Status:  resp.StatusCode,
		Body:    body,
	}
}
