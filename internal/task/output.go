package task

// OutputKind says how Output.Content should be interpreted.
type OutputKind string

const (
	OutputText OutputKind = "text"
	OutputURL  OutputKind = "url"
)

// Output is the normalized result of performing a task.
type Output struct {
	Model     string
	Kind      OutputKind
	Format    string
	MediaType string
	Content   string
}

// EmptyOutput is the placeholder returned by dry runs.
func EmptyOutput(modelID string) *Output {
	return &Output{Model: modelID, Kind: OutputText}
}

// TextOutput wraps generated text in the requested format.
func TextOutput(modelID, format, text string) *Output {
	return &Output{Model: modelID, Kind: OutputText, Format: format, Content: text}
}

// URLOutput wraps a URL to generated media.
func URLOutput(modelID, mediaType, url string) *Output {
	return &Output{Model: modelID, Kind: OutputURL, MediaType: mediaType, Content: url}
}

// IsEmpty reports whether the output carries no content.
func (o *Output) IsEmpty() bool {
	return o == nil || o.Content == ""
}
