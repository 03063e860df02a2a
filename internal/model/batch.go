package model

import "time"

// RawRecord is an untyped record as produced by a source scraper or dump
// feed. Any field may be missing and field names are source-specific.
type RawRecord = map[string]any

// BatchOutcome summarizes one pipeline run over a batch of raw records.
// A batch always completes with counts; partial success is the normal case.
type BatchOutcome struct {
	RunID      string    `json:"run_id"`
	Source     string    `json:"source"`
	StorageKey string    `json:"storage_key"`
	Added      int       `json:"added"`
	Total      int       `json:"total"`
	Dropped    int       `json:"dropped"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	Duration   int64     `json:"duration_ms"`
}
