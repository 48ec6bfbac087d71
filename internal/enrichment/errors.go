package enrichment

import (
	"errors"
	"fmt"
	"math"

	"github.com/pixcelsafe/pixcelsafe/internal/models"
)

var (
	// ErrMissingCredential is a configuration error: nothing was sent and no state changed.
	ErrMissingCredential = errors.New("API key not configured")
	// ErrRejected means the service refused the request as malformed; fix the request before retrying.
	ErrRejected = errors.New("enrichment request rejected")
	// ErrUnavailable covers transport failures, timeouts and 5xx responses; retrying may help.
	ErrUnavailable = errors.New("enrichment service unavailable")
	// ErrMalformed means the service answered with something that is not a complete metadata record.
	ErrMalformed = errors.New("malformed enrichment response")

	ErrInvalidRequest = fmt.Errorf("%w: missing imageId or apiKey", ErrRejected)
)

// validateMetadata checks that a result is complete enough to attach to an item
func validateMetadata(md *models.Metadata) error {
	if md == nil {
		return fmt.Errorf("%w: empty body", ErrMalformed)
	}
	if md.Title == "" {
		return fmt.Errorf("%w: missing title", ErrMalformed)
	}
	score := md.CommercialViability.Score
	if math.IsNaN(score) || score < 0 || score > 10 {
		return fmt.Errorf("%w: commercial viability score %v out of range", ErrMalformed, score)
	}
	return nil
}
