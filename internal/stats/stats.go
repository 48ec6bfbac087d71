// Package stats derives aggregate counts from a catalog snapshot.
package stats

import "github.com/pixcelsafe/pixcelsafe/internal/models"

type Statistics struct {
	TotalImages   int `json:"totalImages"`
	WithMetadata  int `json:"withMetadata"`
	AISuggestions int `json:"aiSuggestions"`
	Processing    int `json:"processing"`
}

// Compute is a pure function of items
func Compute(items []models.Item) Statistics {
	s := Statistics{TotalImages: len(items)}
	for _, item := range items {
		switch item.Status {
		case models.StatusEnriched:
			s.WithMetadata++
		case models.StatusProcessing:
			s.Processing++
		}
		if item.Metadata != nil && len(item.Metadata.Suggestions) > 0 {
			s.AISuggestions++
		}
	}
	return s
}
