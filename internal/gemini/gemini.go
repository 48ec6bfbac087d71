package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/pixcelsafe/pixcelsafe/internal/models"
	"github.com/pixcelsafe/pixcelsafe/internal/providers"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-1.5-flash"

// Gemini is a metadata generator backed by Google Gemini
type Gemini struct {
	Model       string
	Temperature float32
}

// New returns a new Gemini generator
func New(model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{Model: model, Temperature: 0.2}
}

// Generate asks Gemini for a stock-photo analysis of the image
func (g *Gemini) Generate(ctx context.Context, req providers.Request) (*models.Metadata, error) {
	if req.APIKey == "" {
		return nil, fmt.Errorf("gemini api key not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(req.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	modelName := g.Model
	if req.Model != "" {
		modelName = req.Model
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(g.Temperature)
	model.ResponseMIMEType = "application/json"

	parts := []genai.Part{genai.Text(providers.Prompt(req.ImageID))}
	if req.Image != "" {
		mediaType, data, err := providers.DecodeDataURI(req.Image)
		if err != nil {
			return nil, err
		}
		parts = append(parts, genai.ImageData(strings.TrimPrefix(mediaType, "image/"), data))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}

	return providers.ParseMetadata(string(txt), time.Now().UTC())
}
