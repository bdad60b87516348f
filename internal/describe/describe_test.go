// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package describe

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/pdfmask/pkg/types"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetRGBA(3, 3, color.RGBA{255, 0, 0, 255})
	return img
}

// Minimal chat-completions response shape the client reads.
type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionChoice struct {
	Message completionMessage `json:"message"`
}

type completionResponse struct {
	Choices []completionChoice `json:"choices"`
}

func captionServer(t *testing.T, caption string, gotBody *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotBody != nil {
			if err := json.NewDecoder(r.Body).Decode(gotBody); err != nil {
				t.Errorf("decoding request body: %v", err)
			}
		}
		resp := completionResponse{
			Choices: []completionChoice{
				{Message: completionMessage{Role: "assistant", Content: caption}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestCaptionReturnsModelText(t *testing.T) {
	var body map[string]any
	srv := captionServer(t, "a red dot on a gray field", &body)
	defer srv.Close()

	c := NewOpenAICaptionerWithBaseURL(types.DescribeConfig{
		APIKey:    "sk-test",
		Model:     "gpt-4-vision-preview",
		Prompt:    "Describe the image.",
		MaxTokens: 42,
	}, srv.URL+"/v1")

	got, err := c.Caption(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Caption() error = %v", err)
	}
	if got != "a red dot on a gray field" {
		t.Errorf("Caption() = %q, want fixed caption", got)
	}

	if body["model"] != "gpt-4-vision-preview" {
		t.Errorf("request model = %v", body["model"])
	}
	if body["max_tokens"] != float64(42) {
		t.Errorf("request max_tokens = %v, want 42", body["max_tokens"])
	}

	// The message must carry the prompt and a JPEG data URL.
	raw, _ := json.Marshal(body["messages"])
	msg := string(raw)
	if !strings.Contains(msg, "Describe the image.") {
		t.Error("request missing prompt text")
	}
	if !strings.Contains(msg, "data:image/jpeg;base64,") {
		t.Error("request missing image data URL")
	}
}

func TestCaptionDefaults(t *testing.T) {
	var body map[string]any
	srv := captionServer(t, "ok", &body)
	defer srv.Close()

	c := NewOpenAICaptionerWithBaseURL(types.DescribeConfig{APIKey: "sk-test"}, srv.URL+"/v1")
	if _, err := c.Caption(context.Background(), testImage()); err != nil {
		t.Fatalf("Caption() error = %v", err)
	}

	if body["model"] != types.DefaultModel {
		t.Errorf("default model = %v, want %q", body["model"], types.DefaultModel)
	}
	if body["max_tokens"] != float64(types.DefaultMaxTokens) {
		t.Errorf("default max_tokens = %v, want %d", body["max_tokens"], types.DefaultMaxTokens)
	}
}

func TestCaptionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAICaptionerWithBaseURL(types.DescribeConfig{APIKey: "sk-bad"}, srv.URL+"/v1")
	_, err := c.Caption(context.Background(), testImage())
	if !errors.Is(err, ErrDescription) {
		t.Errorf("Caption() error = %v, want ErrDescription", err)
	}
}

func TestCaptionEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewOpenAICaptionerWithBaseURL(types.DescribeConfig{APIKey: "sk-test"}, srv.URL+"/v1")
	_, err := c.Caption(context.Background(), testImage())
	if !errors.Is(err, ErrDescription) {
		t.Errorf("Caption() error = %v, want ErrDescription", err)
	}
}

func TestCaptionNoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAICaptionerWithBaseURL(types.DescribeConfig{APIKey: "sk-test"}, srv.URL+"/v1")
	if _, err := c.Caption(context.Background(), testImage()); err == nil {
		t.Fatal("Caption() error = nil, want failure")
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want exactly 1 (no retry)", calls)
	}
}
