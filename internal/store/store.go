// Package store persists opportunity collections to a local key-value
// layout: one JSON sequence per storage key plus a last-updated timestamp.
package store

import (
	"context"
	"time"

	"github.com/pitchradar/radar-cli/internal/model"
)

// AggregateKey holds the cross-source collection.
const AggregateKey = "opportunities:all"

// SourceKey returns the storage key for a single source's collection.
func SourceKey(source string) string {
	return "opportunities:" + source
}

// Store defines the persistence interface for opportunity collections.
// The backend has no transactional guarantee across Get/Set, so callers
// must serialize merges per key; the pipeline owns that lock.
type Store interface {
	// Collections
	GetCollection(ctx context.Context, key string) ([]model.Opportunity, error)
	SetCollection(ctx context.Context, key string, items []model.Opportunity) error
	LastUpdated(ctx context.Context, key string) (time.Time, error)
	ListKeys(ctx context.Context) ([]string, error)

	// Ingest runs
	SaveOutcome(ctx context.Context, outcome model.BatchOutcome) error
	ListOutcomes(ctx context.Context, limit int) ([]model.BatchOutcome, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
