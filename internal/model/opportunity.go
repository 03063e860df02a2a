package model

import (
	"encoding/json"
	"time"
)

// Display limits enforced by the validator.
const (
	MaxTitleLen       = 500
	MaxDescriptionLen = 5000
)

// Priority buckets assigned by the AI analyzer.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Opportunity is the canonical media-opportunity record. Every source feed is
// normalized into this shape before validation, caching, and merge.
type Opportunity struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	ExternalID  string    `json:"externalId,omitempty"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	Deadline    string    `json:"deadline,omitempty"`
	PostedTime  string    `json:"postedTime,omitempty"`
	MediaOutlet string    `json:"mediaOutlet,omitempty"`
	ScrapedAt   time.Time `json:"scrapedAt"`

	// Analysis is the canonical in-memory enrichment field. Persisted JSON
	// historically carried it under both "aiAnalysis" and "ai_analysis";
	// the marshal adapter below emits both and the unmarshal adapter reads
	// either, so older stored collections stay readable.
	Analysis *AIAnalysis `json:"-"`
}

// AIAnalysis is the opaque enrichment result attached to an opportunity.
// The pipeline caches and merges it but never interprets it beyond
// existence checks.
type AIAnalysis struct {
	RelevanceScore float64  `json:"relevance_score"`
	Priority       Priority `json:"priority"`
	KeyThemes      []string `json:"key_themes"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`

	// Reuse metadata set when the result came from the similarity cache.
	ReusedFrom      string  `json:"reused_from,omitempty"`
	SimilarityScore float64 `json:"similarity_score,omitempty"`
	CachedAt        string  `json:"cached_at,omitempty"`
}

// IdentityKey returns the duplicate-detection key: the source platform's
// external ID when present, otherwise a composite of title and URL. Empty
// when neither is available.
func (o *Opportunity) IdentityKey() string {
	if o == nil {
		return ""
	}
	if o.ExternalID != "" {
		return o.ExternalID
	}
	if o.Title == "" && o.URL == "" {
		return ""
	}
	return o.Title + "|" + o.URL
}

// opportunityJSON mirrors Opportunity for serialization, adding the legacy
// dual-named enrichment keys.
type opportunityJSON struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	URL         string      `json:"url"`
	ExternalID  string      `json:"externalId,omitempty"`
	Source      string      `json:"source"`
	Category    string      `json:"category"`
	Tags        []string    `json:"tags"`
	Deadline    string      `json:"deadline,omitempty"`
	PostedTime  string      `json:"postedTime,omitempty"`
	MediaOutlet string      `json:"mediaOutlet,omitempty"`
	ScrapedAt   time.Time   `json:"scrapedAt"`
	AIAnalysis  *AIAnalysis `json:"aiAnalysis,omitempty"`
	AIAnalysis2 *AIAnalysis `json:"ai_analysis,omitempty"`
}

// MarshalJSON emits the enrichment under both "aiAnalysis" and "ai_analysis"
// so consumers keyed to either convention keep working.
func (o Opportunity) MarshalJSON() ([]byte, error) {
	out := opportunityJSON{
		Title:       o.Title,
		Description: o.Description,
		URL:         o.URL,
		ExternalID:  o.ExternalID,
		Source:      o.Source,
		Category:    o.Category,
		Tags:        o.Tags,
		Deadline:    o.Deadline,
		PostedTime:  o.PostedTime,
		MediaOutlet: o.MediaOutlet,
		ScrapedAt:   o.ScrapedAt,
		AIAnalysis:  o.Analysis,
		AIAnalysis2: o.Analysis,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the enrichment under either name, preferring
// "aiAnalysis" when both are present.
func (o *Opportunity) UnmarshalJSON(data []byte) error {
	var in opportunityJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	o.Title = in.Title
	o.Description = in.Description
	o.URL = in.URL
	o.ExternalID = in.ExternalID
	o.Source = in.Source
	o.Category = in.Category
	o.Tags = in.Tags
	o.Deadline = in.Deadline
	o.PostedTime = in.PostedTime
	o.MediaOutlet = in.MediaOutlet
	o.ScrapedAt = in.ScrapedAt
	o.Analysis = in.AIAnalysis
	if o.Analysis == nil {
		o.Analysis = in.AIAnalysis2
	}
	if o.Tags == nil {
		o.Tags = []string{}
	}
	return nil
}
