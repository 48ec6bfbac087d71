package enrichment

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
)

// Transport delivers one enrichment call. *Service satisfies it directly.
type Transport interface {
	Generate(ctx context.Context, imageID, apiKey string) (*models.Metadata, error)
}

// GenerateRequest is the body of POST /generate-metadata
type GenerateRequest struct {
	ImageID string `json:"imageId"`
	APIKey  string `json:"apiKey"`
}

// HTTPTransport calls a remote enrichment service
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPTransport(baseURL string, httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (t *HTTPTransport) Generate(ctx context.Context, imageID, apiKey string) (*models.Metadata, error) {
	requestBody, err := json.Marshal(GenerateRequest{ImageID: imageID, APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/generate-metadata", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrRejected, readError(resp.Body))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, readError(resp.Body))
	}

	var md models.Metadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := validateMetadata(&md); err != nil {
		return nil, err
	}
	return &md, nil
}

// readError extracts the "error" field of a JSON error body, falling back to raw text
func readError(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
