package openai

import (
	"context"
	"strings"

	sdk "github.com/sashabaranov/go-openai"

	"github.com/everstacklabs/taskrelay/internal/task"
)

var imageSizes = map[task.ImageSize]string{
	{Width: 256, Height: 256}:   sdk.CreateImageSize256x256,
	{Width: 512, Height: 512}:   sdk.CreateImageSize512x512,
	{Width: 1024, Height: 1024}: sdk.CreateImageSize1024x1024,
	{Width: 1024, Height: 1792}: sdk.CreateImageSize1024x1792,
	{Width: 1792, Height: 1024}: sdk.CreateImageSize1792x1024,
}

func imageSize(s task.ImageSize) (string, error) {
	if tag, ok := imageSizes[s]; ok {
		return tag, nil
	}
	return "", newError(ErrValidation, "unsupported image size `%dx%d`", s.Width, s.Height)
}

func imageQuality(q string) (string, error) {
	switch strings.ToLower(q) {
	case "std", "standard":
		return sdk.CreateImageQualityStandard, nil
	case "hd", "high-definition":
		return sdk.CreateImageQualityHD, nil
	default:
		return "", newError(ErrValidation, "unsupported image quality `%s`", q)
	}
}

func imageStyle(s string) (string, error) {
	switch strings.ToLower(s) {
	case "nat", "natural":
		return sdk.CreateImageStyleNatural, nil
	case "viv", "vivid":
		return sdk.CreateImageStyleVivid, nil
	default:
		return "", newError(ErrValidation, "unsupported image style `%s`", s)
	}
}

// imageRequest builds an image generation request. The prompt is the text of
// the last message.
func (m *Model) imageRequest(t *task.Task) (sdk.ImageRequest, error) {
	var prompt strings.Builder
	if n := len(t.Messages); n > 0 {
		last := t.Messages[n-1]
		for _, part := range last.Parts {
			if p, ok := part.(task.TextPart); ok {
				prompt.WriteString(p.Text)
				continue
			}
			m.droppedPart("image", string(last.EffectiveRole()), part)
		}
	}

	req := sdk.ImageRequest{
		Prompt:         prompt.String(),
		Model:          m.model,
		N:              1,
		ResponseFormat: sdk.CreateImageResponseFormatURL,
	}

	var err error
	if t.ImageSize != nil {
		if req.Size, err = imageSize(*t.ImageSize); err != nil {
			return req, err
		}
	}
	if t.ImageQuality != nil {
		if req.Quality, err = imageQuality(*t.ImageQuality); err != nil {
			return req, err
		}
	}
	if t.ImageStyle != nil {
		if req.Style, err = imageStyle(*t.ImageStyle); err != nil {
			return req, err
		}
	}
	return req, nil
}

func (m *Model) imageGeneration(ctx context.Context, t *task.Task) (*task.Output, error) {
	m.provider.logger.Debug("sending image generation request", "model", m.model)

	req, err := m.imageRequest(t)
	if err != nil {
		return nil, err
	}
	m.ignoredOptions(t.ChatOptions(), "text-to-image generation")

	if t.DryRun {
		return task.EmptyOutput(m.ID()), nil
	}
	if _, err := m.provider.apiKey(); err != nil {
		return nil, err
	}

	resp, err := m.provider.sdk.CreateImage(ctx, req)
	if err != nil {
		m.provider.metrics.Request("images", "error")
		return nil, sdkError("images", err)
	}
	m.provider.metrics.Request("images", "ok")

	if len(resp.Data) == 0 {
		return nil, newError(ErrEmptyOutput, "image response data is unexpectedly empty")
	}
	url := resp.Data[0].URL
	if url == "" {
		return nil, newError(ErrProvider, "unexpected image type")
	}
	return task.URLOutput(m.ID(), "image/png", url), nil
}
