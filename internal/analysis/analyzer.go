package analysis

import (
	"context"
	"errors"

	"github.com/scholarscout-hq/scholarscout/internal/domain"
)

// Package analysis wraps the external LLM-backed eligibility/fit service.
// Discovery treats it as opaque: rate-limited, may fail per item.

// ErrQuotaExceeded signals that the analysis backend ran out of quota; the
// caller should stop the current batch since further calls will also fail.
var ErrQuotaExceeded = errors.New("analysis quota exceeded")

// Analyzer produces an eligibility/fit record for a scholarship URL against
// an applicant profile.
type Analyzer interface {
	Analyze(ctx context.Context, url string, profile domain.Profile) (domain.Scholarship, error)
}
