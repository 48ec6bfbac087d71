package providers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pixcelsafe/pixcelsafe/internal/models"
)

// Prompt asks a vision model for a stock-photo analysis as a bare JSON object
func Prompt(imageID string) string {
	return fmt.Sprintf(`You are a stock photography reviewer. Analyze the attached image (catalog id %s) and answer with ONLY a JSON object of this shape:
{
  "title": "<short marketable title>",
  "description": "<one or two sentences>",
  "keywords": ["<keyword>", "..."],
  "tags": ["<tag>", "..."],
  "suggestions": ["<actionable improvement>", "..."],
  "technicalAnalysis": {"composition": "", "lighting": "", "quality": "", "colorProfile": ""},
  "commercialViability": {"score": <number 0-10>, "marketDemand": "<Low|Medium|High>", "suggestedPrice": "<price range>", "targetAudience": ""}
}`, imageID)
}

// ParseMetadata decodes model output, tolerating prose or code fences around
// the JSON object. Any generatedAt the model invents is replaced.
func ParseMetadata(text string, generatedAt time.Time) (*models.Metadata, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in model response")
	}

	var out struct {
		models.Metadata
		GeneratedAt string `json:"generatedAt"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}

	md := out.Metadata
	md.GeneratedAt = generatedAt
	return &md, nil
}

// DecodeDataURI splits "data:image/png;base64,..." into ("image/png", bytes)
func DecodeDataURI(uri string) (string, []byte, error) {
	header, encoded, found := strings.Cut(uri, ",")
	if !found || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return "", nil, fmt.Errorf("image is not a base64 data URI")
	}
	mediaType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode image data: %w", err)
	}
	return mediaType, data, nil
}
