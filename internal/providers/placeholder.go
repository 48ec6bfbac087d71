package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/pixcelsafe/pixcelsafe/internal/models"
)

const DefaultDelay = 2 * time.Second

// Placeholder fabricates a fixed analysis after a delay. It stands in for a
// vision model and never looks at the image.
type Placeholder struct {
	Delay time.Duration
	Now   func() time.Time
}

func NewPlaceholder(delay time.Duration) *Placeholder {
	return &Placeholder{Delay: delay, Now: time.Now}
}

func (p *Placeholder) Generate(ctx context.Context, req Request) (*models.Metadata, error) {
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	return &models.Metadata{
		Title:       fmt.Sprintf("AI Generated Title for Image %s", req.ImageID),
		Description: "A beautiful image analyzed by AI with detailed metadata including keywords, composition analysis, and commercial viability assessment.",
		Keywords:    []string{"photography", "professional", "high-quality", "stock-photo", "commercial"},
		Tags:        []string{"nature", "landscape", "outdoor", "scenic"},
		Suggestions: []string{
			"Consider adjusting brightness for better commercial appeal",
			"Add more descriptive keywords for better searchability",
			"This image has strong commercial potential for marketing materials",
		},
		TechnicalAnalysis: models.TechnicalAnalysis{
			Composition:  "Rule of thirds applied effectively",
			Lighting:     "Natural lighting with good exposure",
			Quality:      "High resolution suitable for print",
			ColorProfile: "sRGB color space detected",
		},
		CommercialViability: models.CommercialViability{
			Score:          8.5,
			MarketDemand:   "High",
			SuggestedPrice: "$25-50",
			TargetAudience: "Marketing agencies, web designers, content creators",
		},
		GeneratedAt: now().UTC(),
	}, nil
}
