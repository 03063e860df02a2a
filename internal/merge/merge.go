// Package merge reconciles freshly normalized opportunities against a
// previously persisted collection without duplicating identities or losing
// prior enrichment.
package merge

import (
	"time"

	"go.uber.org/zap"

	"github.com/pitchradar/radar-cli/internal/model"
)

// Collection size caps observed per storage key.
const (
	PerSourceCap = 100
	AggregateCap = 200
)

// Result is the outcome of a merge, with counts so the caller can report
// "N new, M total" without recomputing.
type Result struct {
	Merged     []model.Opportunity
	AddedCount int
	TotalCount int
}

// Merger merges batches under a size cap.
//
// Ordering convention: existing records keep their relative order (replaced
// in place), genuinely new records are appended after, and when the cap is
// exceeded the oldest entries at the front are discarded. The prepend-new
// variant seen elsewhere is deliberately not supported; one convention,
// applied everywhere.
type Merger struct {
	maxSize int
	now     func() time.Time
}

// Option configures a Merger.
type Option func(*Merger)

// WithMaxSize sets the post-merge collection cap. Zero means uncapped.
func WithMaxSize(n int) Option {
	return func(m *Merger) {
		m.maxSize = n
	}
}

// WithClock overrides the wall clock used to refresh timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Merger) {
		m.now = now
	}
}

// New creates a Merger. The default cap is AggregateCap.
func New(opts ...Option) *Merger {
	m := &Merger{
		maxSize: AggregateCap,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// dedupeKey scopes an identity key to its source so that two platforms
// reusing the same numeric ID never collapse into one record.
func dedupeKey(o *model.Opportunity) string {
	id := o.IdentityKey()
	if id == "" {
		return ""
	}
	return o.Source + "\x00" + id
}

// Merge overlays newItems onto existing. Records sharing a source-scoped
// identity are replaced in place with their timestamp refreshed; records
// without an identity key are appended unconditionally.
func (m *Merger) Merge(newItems, existing []model.Opportunity) Result {
	merged := make([]model.Opportunity, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i := range merged {
		if key := dedupeKey(&merged[i]); key != "" {
			index[key] = i
		}
	}

	now := m.now().UTC()
	added := 0

	for i := range newItems {
		item := newItems[i]
		key := dedupeKey(&item)
		if key == "" {
			// No identity to dedupe on.
			item.ScrapedAt = now
			merged = append(merged, item)
			added++
			continue
		}

		if pos, ok := index[key]; ok {
			merged[pos] = overlay(merged[pos], item, now)
			continue
		}

		item.ScrapedAt = now
		merged = append(merged, item)
		index[key] = len(merged) - 1
		added++
	}

	if m.maxSize > 0 && len(merged) > m.maxSize {
		dropped := len(merged) - m.maxSize
		merged = merged[dropped:]
		zap.L().Debug("merge: collection capped",
			zap.Int("dropped", dropped),
			zap.Int("cap", m.maxSize),
		)
	}

	return Result{
		Merged:     merged,
		AddedCount: added,
		TotalCount: len(merged),
	}
}

// overlay applies the new record over the old. New values win, but fields
// the fresh scrape left empty keep their prior values so enrichment and
// best-effort metadata survive a re-merge.
func overlay(old, fresh model.Opportunity, now time.Time) model.Opportunity {
	out := fresh
	if out.Title == "" {
		out.Title = old.Title
	}
	if out.Description == "" {
		out.Description = old.Description
	}
	if out.URL == "" {
		out.URL = old.URL
	}
	if out.Category == "" {
		out.Category = old.Category
	}
	if len(out.Tags) == 0 && len(old.Tags) > 0 {
		out.Tags = old.Tags
	}
	if out.Deadline == "" {
		out.Deadline = old.Deadline
	}
	if out.PostedTime == "" {
		out.PostedTime = old.PostedTime
	}
	if out.MediaOutlet == "" {
		out.MediaOutlet = old.MediaOutlet
	}
	if out.Analysis == nil {
		out.Analysis = old.Analysis
	}
	out.ScrapedAt = now
	return out
}
