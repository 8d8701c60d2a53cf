package task

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileDoc is the YAML schema of a task file.
type fileDoc struct {
	Kind          string          `yaml:"kind"`
	Format        string          `yaml:"format"`
	DryRun        bool            `yaml:"dry_run"`
	Temperature   *float32        `yaml:"temperature"`
	TopP          *float32        `yaml:"top_p"`
	Seed          *int            `yaml:"seed"`
	Stop          *string         `yaml:"stop"`
	MaxTokens     *int            `yaml:"max_tokens"`
	RepeatPenalty *float32        `yaml:"repeat_penalty"`
	TopK          *int            `yaml:"top_k"`
	NumCtx        *int            `yaml:"num_ctx"`
	ImageSize     string          `yaml:"image_size"`
	ImageQuality  *string         `yaml:"image_quality"`
	ImageStyle    *string         `yaml:"image_style"`
	Messages      []messageDoc    `yaml:"messages"`
	Attachments   []attachmentDoc `yaml:"attachments"`
}

type messageDoc struct {
	Role  string    `yaml:"role"`
	Parts []partDoc `yaml:"parts"`
}

// partDoc holds exactly one of its fields.
type partDoc struct {
	Text  *string `yaml:"text"`
	Image string  `yaml:"image"`
	Audio string  `yaml:"audio"`
	Video string  `yaml:"video"`
}

type attachmentDoc struct {
	Alias            string  `yaml:"alias"`
	Path             string  `yaml:"path"`
	Name             string  `yaml:"name"`
	MediaType        string  `yaml:"media_type"`
	Content          *string `yaml:"content"`
	TransferEncoding string  `yaml:"transfer_encoding"`
}

// LoadFile reads a task from a YAML file. Attachment paths are resolved
// relative to the file and embedded as base64.
func LoadFile(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes a YAML task document. baseDir resolves relative attachment paths.
func Parse(data []byte, baseDir string) (*Task, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing task YAML: %w", err)
	}

	t := &Task{
		Kind:          Kind(doc.Kind),
		Format:        doc.Format,
		DryRun:        doc.DryRun,
		Temperature:   doc.Temperature,
		TopP:          doc.TopP,
		Seed:          doc.Seed,
		Stop:          doc.Stop,
		MaxTokens:     doc.MaxTokens,
		RepeatPenalty: doc.RepeatPenalty,
		TopK:          doc.TopK,
		NumCtx:        doc.NumCtx,
		ImageQuality:  doc.ImageQuality,
		ImageStyle:    doc.ImageStyle,
	}
	if t.Kind == "" {
		t.Kind = KindMessageGeneration
	}

	if doc.ImageSize != "" {
		var size ImageSize
		if _, err := fmt.Sscanf(doc.ImageSize, "%dx%d", &size.Width, &size.Height); err != nil {
			return nil, fmt.Errorf("parsing image_size %q: expected WIDTHxHEIGHT", doc.ImageSize)
		}
		t.ImageSize = &size
	}

	for i, md := range doc.Messages {
		msg := Message{Role: Role(md.Role)}
		for j, pd := range md.Parts {
			part, err := pd.toPart()
			if err != nil {
				return nil, fmt.Errorf("message %d part %d: %w", i, j, err)
			}
			msg.Parts = append(msg.Parts, part)
		}
		t.Messages = append(t.Messages, msg)
	}

	for _, ad := range doc.Attachments {
		att, err := ad.toAttachment(baseDir)
		if err != nil {
			return nil, fmt.Errorf("attachment %q: %w", ad.Alias, err)
		}
		t.Attachments = append(t.Attachments, att)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (pd partDoc) toPart() (Part, error) {
	switch {
	case pd.Text != nil:
		return TextPart{Text: *pd.Text}, nil
	case pd.Image != "":
		return ImagePart{URL: pd.Image}, nil
	case pd.Audio != "":
		return AudioPart{URL: pd.Audio}, nil
	case pd.Video != "":
		return VideoPart{URL: pd.Video}, nil
	}
	return nil, fmt.Errorf("part must set one of text, image, audio or video")
}

func (ad attachmentDoc) toAttachment(baseDir string) (Attachment, error) {
	att := Attachment{
		Alias: ad.Alias,
		File: File{
			Name:             ad.Name,
			MediaType:        ad.MediaType,
			Content:          ad.Content,
			TransferEncoding: ad.TransferEncoding,
		},
	}
	if ad.Path == "" {
		return att, nil
	}

	path := ad.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return att, fmt.Errorf("reading attachment: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	att.File.Content = &encoded
	att.File.TransferEncoding = "base64"
	if att.File.Name == "" {
		att.File.Name = filepath.Base(path)
	}
	if att.File.MediaType == "" {
		att.File.MediaType = mime.TypeByExtension(filepath.Ext(path))
	}
	return att, nil
}
