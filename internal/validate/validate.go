// Package validate decides whether an opportunity is complete enough to be
// shown, reporting human-readable defect reasons.
package validate

import (
	"fmt"
	"strings"

	"github.com/pitchradar/radar-cli/internal/model"
)

// Valid is the sentinel returned as the only element of a defect list when
// no defects were found. Callers must check for this exact value; an empty
// defect list does NOT mean valid.
const Valid = "Looks valid"

// requiredFields must be present and non-empty on every visible opportunity.
var requiredFields = []string{"title", "description", "url", "source"}

// arrayFields must be sequence-typed.
var arrayFields = []string{"tags"}

// ExplainRecordDefects returns every defect found on the record, or the
// single Valid sentinel when there are none. A nil record yields one reason
// rather than panicking. Missing (absent or nil) and present-but-empty
// fields are distinct defects.
func ExplainRecordDefects(rec model.RawRecord) []string {
	if rec == nil {
		return []string{"Missing opportunity"}
	}

	var reasons []string

	for _, field := range requiredFields {
		value, present := rec[field]
		switch {
		case !present || value == nil:
			reasons = append(reasons, fmt.Sprintf("Missing %s", field))
		case isEmptyString(value):
			reasons = append(reasons, fmt.Sprintf("Empty %s", field))
		}
	}

	for _, field := range arrayFields {
		value, present := rec[field]
		if !present || !isSequence(value) {
			reasons = append(reasons, fmt.Sprintf("%s is not an array", field))
		}
	}

	if s, ok := rec["description"].(string); ok && len(s) > model.MaxDescriptionLen {
		reasons = append(reasons, fmt.Sprintf("Description too long (>%d chars)", model.MaxDescriptionLen))
	}
	if s, ok := rec["title"].(string); ok && len(s) > model.MaxTitleLen {
		reasons = append(reasons, fmt.Sprintf("Title too long (>%d chars)", model.MaxTitleLen))
	}

	if len(reasons) == 0 {
		return []string{Valid}
	}
	return reasons
}

// ExplainDefects validates a normalized opportunity. Normalization never
// leaves a text field absent, so struct fields that came through empty are
// reported as empty rather than missing.
func ExplainDefects(o *model.Opportunity) []string {
	if o == nil {
		return []string{"Missing opportunity"}
	}
	return ExplainRecordDefects(toRecord(o))
}

// IsValid reports whether the defect list is exactly the Valid sentinel.
func IsValid(o *model.Opportunity) bool {
	reasons := ExplainDefects(o)
	return len(reasons) == 1 && reasons[0] == Valid
}

// IsValidRecord is IsValid over the untyped record form.
func IsValidRecord(rec model.RawRecord) bool {
	reasons := ExplainRecordDefects(rec)
	return len(reasons) == 1 && reasons[0] == Valid
}

func toRecord(o *model.Opportunity) model.RawRecord {
	rec := model.RawRecord{
		"title":       o.Title,
		"description": o.Description,
		"url":         o.URL,
		"source":      o.Source,
	}
	if o.Tags != nil {
		rec["tags"] = o.Tags
	}
	return rec
}

func isEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func isSequence(v any) bool {
	switch v.(type) {
	case []string, []any:
		return true
	default:
		return false
	}
}
