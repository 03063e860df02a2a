// Package normalize maps raw, source-specific scrape records into the
// canonical Opportunity shape. Field fallback chains are table-driven so
// that onboarding a source is a data change, not a code change.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pitchradar/radar-cli/internal/model"
)

// DefaultCategory is assigned when no source field yields a category.
const DefaultCategory = "General"

// Normalizer converts raw records into Opportunities using per-source
// fallback tables.
type Normalizer struct {
	defaultCategory string
	mappings        map[string]FieldMapping
	now             func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDefaultCategory overrides the category assigned to unmapped records.
func WithDefaultCategory(category string) Option {
	return func(n *Normalizer) {
		n.defaultCategory = category
	}
}

// WithMappings merges extra per-source field mappings over the built-in
// tables. An entry for an existing source replaces that source's table.
func WithMappings(extra map[string]FieldMapping) Option {
	return func(n *Normalizer) {
		for source, mapping := range extra {
			n.mappings[strings.ToLower(source)] = mapping
		}
	}
}

// WithClock overrides the wall clock used for ScrapedAt.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// New creates a Normalizer with the built-in source tables.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		defaultCategory: DefaultCategory,
		mappings:        builtinMappings(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize maps a raw record from the named source into an Opportunity.
// Returns nil for a nil record. Unknown sources fall back to a minimal
// verbatim mapping. Text fields are trimmed, tags are always a slice, and
// ScrapedAt is set to now.
func (n *Normalizer) Normalize(raw model.RawRecord, source string) *model.Opportunity {
	if raw == nil {
		return nil
	}

	sourceName := strings.ToLower(strings.TrimSpace(source))
	mapping, ok := n.mappings[sourceName]
	if !ok {
		mapping = minimalMapping
	}
	if sourceName == "" {
		sourceName = "unknown"
	}

	o := &model.Opportunity{
		Title:       lookupString(raw, mapping["title"]),
		Description: lookupString(raw, mapping["description"]),
		URL:         lookupString(raw, mapping["url"]),
		ExternalID:  lookupString(raw, mapping["externalId"]),
		Source:      sourceName,
		Category:    lookupString(raw, mapping["category"]),
		Tags:        lookupTags(raw, mapping["tags"]),
		Deadline:    lookupString(raw, mapping["deadline"]),
		PostedTime:  lookupString(raw, mapping["postedTime"]),
		MediaOutlet: lookupString(raw, mapping["mediaOutlet"]),
		ScrapedAt:   n.now().UTC(),
	}
	if o.Category == "" {
		o.Category = n.defaultCategory
	}
	return o
}

// lookupString walks the fallback chain and returns the first non-empty
// string value, trimmed. Numeric values coerce to their decimal form so
// numeric external IDs survive.
func lookupString(raw model.RawRecord, keys []string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if s := coerceString(v); s != "" {
			return s
		}
	}
	return ""
}

// lookupTags walks the fallback chain and coerces the first present value
// into a string slice. A bare scalar becomes a one-element slice; the
// result is never nil.
func lookupTags(raw model.RawRecord, keys []string) []string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch tags := v.(type) {
		case []string:
			out := make([]string, 0, len(tags))
			for _, tag := range tags {
				if t := strings.TrimSpace(tag); t != "" {
					out = append(out, t)
				}
			}
			return out
		case []any:
			out := make([]string, 0, len(tags))
			for _, tag := range tags {
				if t := strings.TrimSpace(coerceString(tag)); t != "" {
					out = append(out, t)
				}
			}
			return out
		default:
			if s := coerceString(v); s != "" {
				return []string{s}
			}
		}
	}
	return []string{}
}

func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		// JSON numbers decode as float64; integral IDs should not grow
		// an exponent or decimal point.
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	case fmt.Stringer:
		return strings.TrimSpace(s.String())
	default:
		return ""
	}
}
