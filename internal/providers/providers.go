package providers

import (
	"context"

	"github.com/pixcelsafe/pixcelsafe/internal/models"
)

// Request carries what a generator needs to describe one image
type Request struct {
	ImageID string
	APIKey  string
	// Image is the data URI of the image when the caller has it; generators
	// that cannot see pixels ignore it.
	Image string
	Model string
}

// Generator produces metadata for a single image
type Generator interface {
	Generate(ctx context.Context, req Request) (*models.Metadata, error)
}
