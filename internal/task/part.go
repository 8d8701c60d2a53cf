package task

import "fmt"

// Part is a segment of message content. The set of implementations is closed.
type Part interface {
	fmt.Stringer
	isPart()
}

// TextPart is plain text.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

func (p TextPart) String() string { return p.Text }

// ImagePart references an image by URL (http(s) or data URI).
type ImagePart struct {
	URL       string
	MediaType string
}

func (ImagePart) isPart() {}

func (p ImagePart) String() string { return fmt.Sprintf("image(%s)", abbreviate(p.URL)) }

// AudioPart references an audio clip by URL.
type AudioPart struct {
	URL       string
	MediaType string
}

func (AudioPart) isPart() {}

func (p AudioPart) String() string { return fmt.Sprintf("audio(%s)", abbreviate(p.URL)) }

// VideoPart references a video by URL.
type VideoPart struct {
	URL       string
	MediaType string
}

func (VideoPart) isPart() {}

func (p VideoPart) String() string { return fmt.Sprintf("video(%s)", abbreviate(p.URL)) }

// Text returns a text part.
func Text(s string) Part { return TextPart{Text: s} }

// Image returns an image part for the given URL.
func Image(url string) Part { return ImagePart{URL: url} }

// abbreviate keeps data URIs out of log lines.
func abbreviate(s string) string {
	const limit = 48
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
