package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/everstacklabs/taskrelay/internal/httpclient"
	"github.com/everstacklabs/taskrelay/internal/task"
)

// shouldUpload reports whether the file API accepts the attachment's media
// type: PDF, images, audio and video.
func shouldUpload(att task.Attachment) bool {
	mt := normalizeMediaType(att.File.MediaType)
	if mt == "" {
		return false
	}
	return mt == "application/pdf" ||
		strings.HasPrefix(mt, "image/") ||
		strings.HasPrefix(mt, "audio/") ||
		strings.HasPrefix(mt, "video/")
}

func normalizeMediaType(mt string) string {
	return strings.ToLower(strings.TrimSpace(mt))
}

// attachmentBytes returns the raw bytes of an inline attachment.
func attachmentBytes(att task.Attachment) ([]byte, error) {
	if att.File.Content == nil {
		return nil, newError(ErrUpload, "attachment `%s` does not have any inline content to upload", att.Alias)
	}
	content := *att.File.Content
	if !strings.EqualFold(att.File.TransferEncoding, "base64") {
		return []byte(content), nil
	}
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, wrapError(ErrEncoding, err, "attachment `%s` content is invalid base64", att.Alias)
	}
	return data, nil
}

type uploadedAttachment struct {
	alias     string
	fileID    string
	mediaType string
}

// contents is the label and file reference spliced into a user message.
func (u uploadedAttachment) contents() []responseContent {
	label := responseContent{Type: "input_text", Text: "Attachment `" + u.alias + "`"}
	if strings.HasPrefix(u.mediaType, "image/") {
		return []responseContent{label, {Type: "input_image", FileID: u.fileID}}
	}
	return []responseContent{label, {Type: "input_file", FileID: u.fileID}}
}

type uploadFileResponse struct {
	ID string `json:"id"`
}

// upload sends one attachment to the file API.
func (p *Provider) upload(ctx context.Context, att task.Attachment) (*uploadedAttachment, error) {
	data, err := attachmentBytes(att)
	if err != nil {
		return nil, err
	}

	filename := att.File.Name
	if strings.TrimSpace(filename) == "" {
		filename = att.Alias + ".bin"
	}
	mediaType := normalizeMediaType(att.File.MediaType)
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	p.logger.Debug("uploading attachment", "alias", att.Alias, "bytes", len(data), "media_type", mediaType)

	resp, err := p.http.PostMultipart(ctx, p.endpoint("/files"),
		map[string]string{"purpose": uploadPurpose},
		httpclient.FilePart{Field: "file", Filename: filename, MediaType: mediaType, Data: data},
		betaHeaders)
	if err != nil {
		p.metrics.Request("files", "error")
		return nil, transportError("files", err)
	}
	if !resp.OK() {
		p.metrics.Request("files", "error")
		return nil, &Error{
			Kind:    ErrUpload,
			Message: "OpenAI file upload returned " + resp.Status + ": " + string(resp.Body),
			Status:  resp.StatusCode,
			Body:    string(resp.Body),
		}
	}
	p.metrics.Request("files", "ok")

	var out uploadFileResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, wrapError(ErrUpload, err, "parsing file upload response")
	}
	if out.ID == "" {
		return nil, newError(ErrUpload, "file upload response for `%s` has no id", att.Alias)
	}
	return &uploadedAttachment{alias: att.Alias, fileID: out.ID, mediaType: mediaType}, nil
}

// uploadAll uploads attachments one at a time in task order. Individual
// failures are logged; it fails only when every attempted upload failed.
func (p *Provider) uploadAll(ctx context.Context, atts []task.Attachment) ([]uploadedAttachment, error) {
	var uploaded []uploadedAttachment
	attempted := false
	for _, att := range atts {
		if !shouldUpload(att) {
			p.logger.Debug("skipping attachment upload", "alias", att.Alias, "media_type", att.File.MediaType)
			p.metrics.Upload("skipped")
			continue
		}

		attempted = true
		u, err := p.upload(ctx, att)
		if err != nil {
			p.logger.Warn("failed to upload attachment", "alias", att.Alias, "error", err)
			p.metrics.Upload("failed")
			continue
		}
		p.metrics.Upload("uploaded")
		uploaded = append(uploaded, *u)
	}

	if attempted && len(uploaded) == 0 {
		return nil, newError(ErrUpload, "no attachments were uploaded successfully")
	}
	return uploaded, nil
}
