package tui

import "os"

// OutputFormat controls how the resulting entity is serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits application/json payloads.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded payloads.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits a human-friendly text summary.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Theme captures optional prefixes applied to informational lines.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// FileReader loads the bytes behind a path typed at a file prompt.
type FileReader func(path string) ([]byte, error)

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the prompt driver used by the renderer.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutputFormat selects the output serialization format.
func WithOutputFormat(format OutputFormat) Option {
	return func(r *Renderer) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}

// WithFileReader overrides how file prompts load their payload.
func WithFileReader(reader FileReader) Option {
	return func(r *Renderer) {
		if reader != nil {
			r.readFile = reader
		}
	}
}

// WithConfirmSave asks for confirmation before invoking the save callback.
// Enabled by default.
func WithConfirmSave(confirm bool) Option {
	return func(r *Renderer) {
		r.confirmSave = confirm
	}
}

var defaultFileReader FileReader = os.ReadFile
