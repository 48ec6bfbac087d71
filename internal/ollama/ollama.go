package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
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
	DefaultModel = "llava"
	DefaultURL   = "http://localhost:11434"
)

// Ollama is a metadata generator backed by a local Ollama server. The API key
// of the request is ignored.
type Ollama struct {
	URL         string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

// New returns a new Ollama generator; an empty url means DefaultURL
func New(url, model string) *Ollama {
	if url == "" {
		url = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Ollama{
		URL:         url,
		Model:       model,
		Temperature: 0.2,
		HTTPClient:  &http.Client{},
	}
}

func (o *Ollama) Generate(ctx context.Context, req providers.Request) (*models.Metadata, error) {
	model := o.Model
	if req.Model != "" {
		model = req.Model
	}

	body := map[string]interface{}{
		"model":  model,
		"prompt": providers.Prompt(req.ImageID),
		"stream": false,
		"format": "json",
		"options": map[string]interface{}{
			"temperature": o.Temperature,
		},
	}
	if req.Image != "" {
		_, data, err := providers.DecodeDataURI(req.Image)
		if err != nil {
			return nil, err
		}
		// raw base64, no data URI header
		body["images"] = []string{base64.StdEncoding.EncodeToString(data)}
	}

	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := strings.TrimRight(o.URL, "/") + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	return providers.ParseMetadata(response.Response, time.Now().UTC())
}
