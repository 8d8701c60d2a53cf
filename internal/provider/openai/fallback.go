package openai

import "strings"

// shouldRetryWithVision reports whether a rejected responses request is worth
// retrying on another model: the request came from a gpt-5 or gpt-4.1 model and
// the API complained about the attached inputs.
func shouldRetryWithVision(model, body string) bool {
	if !strings.HasPrefix(model, "gpt-5") && !strings.HasPrefix(model, "gpt-4.1") {
		return false
	}
	stuffing := strings.Contains(body, "Invalid input") && strings.Contains(body, "context stuffing")
	return stuffing || strings.Contains(body, "does not support image inputs")
}

// visionSubstitute returns the model to retry with.
func visionSubstitute(model string) (string, bool) {
	switch {
	case strings.HasPrefix(model, "gpt-5"):
		return "gpt-4.1-mini", true
	case strings.HasPrefix(model, "gpt-4.1"):
		return "gpt-4o-mini", true
	default:
		return "", false
	}
}
