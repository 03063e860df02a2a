package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pitchradar/radar-cli/internal/model"
)

func validOpportunity() *model.Opportunity {
	return &model.Opportunity{
		Title:       "AI in Finance",
		Description: "Looking for quotes",
		URL:         "https://q/1",
		Source:      "qwoted",
		Tags:        []string{},
	}
}

func TestExplainDefects_ValidSentinel(t *testing.T) {
	reasons := ExplainDefects(validOpportunity())
	assert.Equal(t, []string{Valid}, reasons)
}

func TestIsValid_SentinelIdentity(t *testing.T) {
	assert.True(t, IsValid(validOpportunity()))
}

func TestExplainDefects_NilItem(t *testing.T) {
	reasons := ExplainDefects(nil)
	assert.Equal(t, []string{"Missing opportunity"}, reasons)
	assert.False(t, IsValid(nil))
}

func TestExplainRecordDefects_MissingVsEmpty(t *testing.T) {
	rec := model.RawRecord{
		"title":       "",
		"description": "something",
		"url":         "https://x/1",
		"source":      "qwoted",
		"tags":        []string{},
	}
	reasons := ExplainRecordDefects(rec)
	assert.Contains(t, reasons, "Empty title")

	delete(rec, "title")
	reasons = ExplainRecordDefects(rec)
	assert.Contains(t, reasons, "Missing title")
	assert.NotContains(t, reasons, "Empty title")
}

func TestExplainRecordDefects_NilValueIsMissing(t *testing.T) {
	rec := model.RawRecord{
		"title":       nil,
		"description": "d",
		"url":         "u",
		"source":      "s",
		"tags":        []string{},
	}
	assert.Contains(t, ExplainRecordDefects(rec), "Missing title")
}

func TestExplainRecordDefects_TagsNotArray(t *testing.T) {
	rec := model.RawRecord{
		"title":       "t",
		"description": "d",
		"url":         "u",
		"source":      "s",
		"tags":        "breaking",
	}
	assert.Contains(t, ExplainRecordDefects(rec), "tags is not an array")
}

func TestExplainDefects_NilTagsNotArray(t *testing.T) {
	o := validOpportunity()
	o.Tags = nil
	assert.Contains(t, ExplainDefects(o), "tags is not an array")
}

func TestExplainDefects_TitleTooLong(t *testing.T) {
	o := validOpportunity()
	o.Title = strings.Repeat("x", model.MaxTitleLen+1)
	assert.Contains(t, ExplainDefects(o), "Title too long (>500 chars)")
}

func TestExplainDefects_DescriptionTooLong(t *testing.T) {
	o := validOpportunity()
	o.Description = strings.Repeat("x", model.MaxDescriptionLen+1)
	assert.Contains(t, ExplainDefects(o), "Description too long (>5000 chars)")
}

func TestExplainDefects_DefectsCoOccur(t *testing.T) {
	o := validOpportunity()
	o.Title = strings.Repeat("x", model.MaxTitleLen+1)
	o.Description = strings.Repeat("y", model.MaxDescriptionLen+1)
	o.URL = ""
	reasons := ExplainDefects(o)
	assert.Contains(t, reasons, "Title too long (>500 chars)")
	assert.Contains(t, reasons, "Description too long (>5000 chars)")
	assert.Contains(t, reasons, "Empty url")
	assert.False(t, IsValid(o))
}

func TestIsValidRecord_EmptyReasonListNeverValid(t *testing.T) {
	// The sentinel convention: only the exact single-element list counts.
	assert.True(t, IsValidRecord(model.RawRecord{
		"title": "t", "description": "d", "url": "u", "source": "s",
		"tags": []any{"a"},
	}))
	assert.False(t, IsValidRecord(nil))
}
