package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pixcelsafe/pixcelsafe/internal/models"
	"github.com/pixcelsafe/pixcelsafe/internal/providers"
	"github.com/pixcelsafe/pixcelsafe/internal/storage"
)

// Service is the enrichment boundary: given an image id and a credential it
// returns a complete metadata record or fails.
type Service struct {
	generator providers.Generator
	model     string
	images    ImageLookup
	records   *storage.Catalog
}

// ImageLookup finds the stored item for an id so its pixels can be sent along
type ImageLookup interface {
	Get(id string) (models.Item, bool)
}

type ServiceOption func(*Service)

// WithModel overrides the generator's default model
func WithModel(model string) ServiceOption {
	return func(s *Service) { s.model = model }
}

// WithImageLookup lets the service attach image data to generator requests
func WithImageLookup(images ImageLookup) ServiceOption {
	return func(s *Service) { s.images = images }
}

// WithRecordStore makes the service write each result into store when it
// holds the id. It also serves as the image lookup unless one is set.
func WithRecordStore(store *storage.Catalog) ServiceOption {
	return func(s *Service) {
		s.records = store
		if s.images == nil {
			s.images = store
		}
	}
}

func NewService(generator providers.Generator, opts ...ServiceOption) *Service {
	s := &Service{generator: generator}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Generate(ctx context.Context, imageID, apiKey string) (*models.Metadata, error) {
	if strings.TrimSpace(imageID) == "" || strings.TrimSpace(apiKey) == "" {
		return nil, ErrInvalidRequest
	}

	slog.Info("Generating metadata", "image_id", imageID, "api_key", maskKey(apiKey))

	req := providers.Request{
		ImageID: imageID,
		APIKey:  apiKey,
		Model:   s.model,
	}
	if s.images != nil {
		if item, ok := s.images.Get(imageID); ok {
			req.Image = item.Payload.DataURI
		}
	}

	md, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata: %w", err)
	}
	if err := validateMetadata(md); err != nil {
		return nil, err
	}

	if s.records != nil {
		s.records.Update(imageID, func(item *models.Item) {
			item.Status = models.StatusEnriched
			item.Metadata = md
			item.LastError = ""
		})
	}

	return md, nil
}

func maskKey(key string) string {
	if len(key) <= 10 {
		return "..."
	}
	return key[:10] + "..."
}
