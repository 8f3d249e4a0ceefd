package storage

import (
	"fmt"
	"strings"

	"github.com/scholarscout-hq/scholarscout/internal/domain"
)

// Package storage provides the local duplicate store and record persistence.

// Store tracks every scholarship URL ever discovered and persists analyzed
// records keyed by URL with upsert semantics.
type Store interface {
	Close() error
	// KnownURLs returns the full set of previously seen URLs. Loaded once at
	// the start of a discovery run and treated as read-only for its duration.
	KnownURLs() (map[string]struct{}, error)
	// MarkURL records a URL as seen.
	MarkURL(url string) error
	// SaveScholarship upserts an analyzed record; a conflict on URL replaces
	// the existing row.
	SaveScholarship(rec domain.Scholarship) error
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (Store, error) {
	switch strings.TrimSpace(strings.ToLower(typ)) {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Close() error                            { return nil }
func (noopStore) KnownURLs() (map[string]struct{}, error) { return map[string]struct{}{}, nil }
func (noopStore) MarkURL(string) error                    { return nil }
func (noopStore) SaveScholarship(domain.Scholarship) error {
	return nil
}
