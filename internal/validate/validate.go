package validate

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/everstacklabs/taskrelay/internal/catalog"
)

// Severity classifies validation issues.
type Severity int

const (
	SeverityError   Severity = iota // Fails the validate command
	SeverityWarning                 // Reported but does not fail
)

// Issue represents a single validation problem.
type Issue struct {
	Severity Severity
	Model    string
	Field    string
	Message  string
}

func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s - %s", sev, i.Model, i.Field, i.Message)
}

// Result holds all validation issues.
type Result struct {
	Issues []Issue
}

// HasErrors returns true if there are any blocking errors.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (r *Result) Errors() []Issue {
	var errs []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			errs = append(errs, i)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (r *Result) Warnings() []Issue {
	var warns []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			warns = append(warns, i)
		}
	}
	return warns
}

// Known modality values, matching task.IO.
var knownModalities = map[string]bool{
	"text":  true,
	"image": true,
	"audio": true,
	"video": true,
}

var knownTypes = map[string]bool{"local": true, "remote": true}

// ValidateModel checks a single descriptor for schema compliance.
func ValidateModel(m *catalog.Model, filename string) *Result {
	r := &Result{}
	add := func(sev Severity, field, format string, args ...any) {
		r.Issues = append(r.Issues, Issue{sev, filename, field, fmt.Sprintf(format, args...)})
	}

	// Required fields
	if m.Name == "" {
		add(SeverityError, "name", "required field is empty")
	}
	if m.ID == "" {
		add(SeverityError, "id", "required field is empty")
	}
	if m.Provider == "" {
		add(SeverityError, "provider", "required field is empty")
	}
	if m.Family == "" {
		add(SeverityError, "family", "required field is empty")
	}
	if m.ContextLength == 0 {
		add(SeverityError, "context_length", "required field is zero")
	}
	if len(m.Modalities.Input) == 0 {
		add(SeverityError, "modalities.input", "at least one input modality required")
	}
	if len(m.Modalities.Output) == 0 {
		add(SeverityError, "modalities.output", "at least one output modality required")
	}

	// Naming consistency: the file is named after the model, and the ID is
	// "<provider>/<name>".
	if m.Name != "" && filename != "" {
		actual := filepath.Base(filename)
		if actual != m.Name+".yaml" {
			add(SeverityError, "name", "filename %q does not match name field %q", actual, m.Name)
		}
	}
	if m.ID != "" && m.Name != "" {
		prefix, name, ok := strings.Cut(m.ID, "/")
		if !ok || prefix == "" || name != m.Name {
			add(SeverityError, "id", "id %q is not of the form <provider>/%s", m.ID, m.Name)
		}
	}

	if m.Type != "" && !knownTypes[m.Type] {
		add(SeverityError, "type", "unknown type %q, expected local or remote", m.Type)
	}
	if m.Type == "" {
		add(SeverityWarning, "type", "type is not set")
	}

	if m.ContextLength != 0 && (m.ContextLength < 512 || m.ContextLength > 2_000_000) {
		add(SeverityError, "context_length", "value %d outside expected range [512, 2000000]", m.ContextLength)
	}

	for _, mod := range m.Modalities.Input {
		if !knownModalities[mod] {
			add(SeverityWarning, "modalities.input", "unknown modality %q", mod)
		}
	}
	for _, mod := range m.Modalities.Output {
		if !knownModalities[mod] {
			add(SeverityWarning, "modalities.output", "unknown modality %q", mod)
		}
	}

	if m.XUpdater == nil {
		add(SeverityWarning, "x_updater", "model has never been verified against the API")
	} else if _, err := time.Parse(time.RFC3339, m.XUpdater.LastVerifiedAt); err != nil {
		add(SeverityError, "x_updater.last_verified_at", "invalid timestamp %q", m.XUpdater.LastVerifiedAt)
	}

	return r
}

// ValidateCatalog validates all models in a snapshot, in a stable order.
func ValidateCatalog(cat *catalog.Catalog) *Result {
	r := &Result{}
	for _, providerName := range cat.ProviderNames() {
		pc := cat.Providers[providerName]
		if len(pc.Models) == 0 {
			r.Issues = append(r.Issues, Issue{SeverityWarning, providerName, "models", "provider has no models"})
		}
		for _, modelName := range cat.ModelNames(providerName) {
			filename := filepath.Join("providers", providerName, "models", modelName+".yaml")
			r.Issues = append(r.Issues, ValidateModel(pc.Models[modelName], filename).Issues...)
		}
	}
	return r
}

// FormatResult formats validation results for display.
func FormatResult(r *Result) string {
	if len(r.Issues) == 0 {
		return "Validation passed: no issues found."
	}

	var b strings.Builder
	errors := r.Errors()
	warnings := r.Warnings()

	if len(errors) > 0 {
		b.WriteString(fmt.Sprintf("Errors (%d):\n", len(errors)))
		for _, e := range errors {
			b.WriteString(fmt.Sprintf("  %s\n", e))
		}
	}

	if len(warnings) > 0 {
		b.WriteString(fmt.Sprintf("Warnings (%d):\n", len(warnings)))
		for _, w := range warnings {
			b.WriteString(fmt.Sprintf("  %s\n", w))
		}
	}

	return b.String()
}
