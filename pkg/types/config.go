// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the configuration structures shared by the pdfmask
// pipeline stages.
package types

// FilterConfig selects the image transforms applied to every embedded image.
// Filters are applied in a fixed order: blur, emboss, gray, black.
type FilterConfig struct {
	// Blur is the Gaussian blur radius. 0 disables blurring; valid values
	// are 0 through 50 inclusive.
	Blur int `json:"blur" yaml:"blur"`

	// Emboss applies a 3x3 emboss convolution.
	Emboss bool `json:"emboss" yaml:"emboss"`

	// Gray converts the image to grayscale.
	Gray bool `json:"gray" yaml:"gray"`

	// Black forces every pixel to pure black or pure white using a 50%
	// luminance threshold.
	Black bool `json:"black" yaml:"black"`
}

// Enabled reports whether any filter is selected.
func (c FilterConfig) Enabled() bool {
	return c.Blur > 0 || c.Emboss || c.Gray || c.Black
}

// DescribeConfig holds settings for the captioning stage.
type DescribeConfig struct {
	// Enabled turns captioning on. Requires APIKey.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// APIKey authenticates against the OpenAI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the vision model identifier (default "gpt-4-vision-preview").
	Model string `json:"model" yaml:"model"`

	// Prompt is the instruction sent alongside each image.
	Prompt string `json:"prompt" yaml:"prompt"`

	// MaxTokens caps the caption length per request (default 300).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// OverlayConfig holds settings for drawing captions onto images.
type OverlayConfig struct {
	// FontSize is the caption text size in points (default 18).
	FontSize int `json:"font_size" yaml:"font_size"`
}

// Options groups the full configuration for one pdfmask run.
type Options struct {
	// InputPath is the PDF to process.
	InputPath string `json:"input_path" yaml:"input_path"`

	// OutputPath is where the rewritten PDF is saved. Empty means
	// "<input stem>.masked.pdf" next to the input.
	OutputPath string `json:"output_path" yaml:"output_path"`

	// KeepGoing continues past caption failures instead of aborting the
	// run; affected images are replaced without a caption overlay.
	KeepGoing bool `json:"keep_going" yaml:"keep_going"`

	Filter   FilterConfig   `json:"filter" yaml:"filter"`
	Describe DescribeConfig `json:"describe" yaml:"describe"`
	Overlay  OverlayConfig  `json:"overlay" yaml:"overlay"`
}

// Default values mirroring the CLI flag defaults.
const (
	// DefaultModel is the vision model used when none is configured.
	DefaultModel = "gpt-4-vision-preview"

	// DefaultPrompt is the caption instruction used when none is configured.
	DefaultPrompt = "Describe the image in less than 20 words. Include the number of people and objects."

	// DefaultMaxTokens caps caption length when none is configured.
	DefaultMaxTokens = 300

	// DefaultFontSize is the overlay text size when none is configured.
	DefaultFontSize = 18
)
