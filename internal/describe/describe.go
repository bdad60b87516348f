// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package describe obtains short natural-language captions for images from
// the OpenAI chat-completions API. One request is made per image; failures
// are not retried.
package describe

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/pdfmask/pkg/types"
)

// ErrDescription reports a captioning failure: transport error, auth or
// quota rejection, or an empty model response.
var ErrDescription = errors.New("image description failed")

// Captioner produces a caption for one decoded image. Implementations must
// be safe to call sequentially; the pipeline never calls them concurrently.
type Captioner interface {
	Caption(ctx context.Context, img image.Image) (string, error)
}

// OpenAICaptioner asks an OpenAI vision model to describe images.
type OpenAICaptioner struct {
	client    *openai.Client
	model     string
	prompt    string
	maxTokens int
}

// NewOpenAICaptioner builds a captioner from cfg. Zero-valued model, prompt,
// and token cap fall back to the package defaults.
func NewOpenAICaptioner(cfg types.DescribeConfig) *OpenAICaptioner {
	return newCaptioner(openai.DefaultConfig(cfg.APIKey), cfg)
}

// NewOpenAICaptionerWithBaseURL is like NewOpenAICaptioner but points the
// client at baseURL. Tests use it to talk to a local HTTP double.
func NewOpenAICaptionerWithBaseURL(cfg types.DescribeConfig, baseURL string) *OpenAICaptioner {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL
	return newCaptioner(clientCfg, cfg)
}

func newCaptioner(clientCfg openai.ClientConfig, cfg types.DescribeConfig) *OpenAICaptioner {
	model := cfg.Model
	if model == "" {
		model = types.DefaultModel
	}
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = types.DefaultPrompt
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = types.DefaultMaxTokens
	}
	return &OpenAICaptioner{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		prompt:    prompt,
		maxTokens: maxTokens,
	}
}

// Caption sends img to the vision model and returns its description. The
// image travels as a base64 JPEG data URL alongside the configured prompt.
func (c *OpenAICaptioner) Caption(ctx context.Context, img image.Image) (string, error) {
	dataURL, err := encodeDataURL(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDescription, err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: c.prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: dataURL,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDescription, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response from model %s", ErrDescription, c.model)
	}

	return resp.Choices[0].Message.Content, nil
}

// encodeDataURL re-encodes img as JPEG and wraps it in a data URL.
func encodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return "", fmt.Errorf("encoding image for upload: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
