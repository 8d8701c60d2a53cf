package openai

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match them with errors.Is.
var (
	ErrConfig      = errors.New("configuration error")
	ErrCapability  = errors.New("capability error")
	ErrEncoding    = errors.New("encoding error")
	ErrUpload      = errors.New("upload error")
	ErrProvider    = errors.New("provider error")
	ErrEmptyOutput = errors.New("empty output")
	ErrValidation  = errors.New("validation error")
	ErrTransport   = errors.New("transport error")
)

// Error is the single error type returned by this package.
type Error struct {
	Kind    error
	Message string
	// Status and Body are set for provider errors.
	Status int
	Body   string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches the error's kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind error, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// transportError classifies a failed round trip. A missing credential
// surfaces from the bearer transport and keeps its own kind.
func transportError(endpoint string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return wrapError(ErrTransport, err, "OpenAI %s request failed", endpoint)
}

func statusText(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
