package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pixcelsafe/pixcelsafe/internal/models"
	"github.com/pixcelsafe/pixcelsafe/internal/providers"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultBaseURL = "https://api.openai.com/v1"
)

// OpenAI is a metadata generator backed by the chat completions API
type OpenAI struct {
	BaseURL     string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

// New returns a new OpenAI generator
func New(model string) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{
		BaseURL:     DefaultBaseURL,
		Model:       model,
		Temperature: 0.2,
		HTTPClient:  &http.Client{},
	}
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// Generate sends the prompt, and the image when present, as one user message
func (o *OpenAI) Generate(ctx context.Context, req providers.Request) (*models.Metadata, error) {
	if req.APIKey == "" {
		return nil, fmt.Errorf("openai api key not set")
	}

	model := o.Model
	if req.Model != "" {
		model = req.Model
	}

	content := []contentPart{{Type: "text", Text: providers.Prompt(req.ImageID)}}
	if req.Image != "" {
		content = append(content, contentPart{Type: "image_url", ImageURL: &imageURL{URL: req.Image}})
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model": model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": content,
			},
		},
		"temperature":     o.Temperature,
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := strings.TrimRight(o.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	client := o.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from OpenAI")
	}

	return providers.ParseMetadata(response.Choices[0].Message.Content, time.Now().UTC())
}
