package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pitchradar/radar-cli/internal/model"
)

func TestNew_CaseAndWhitespaceInsensitive(t *testing.T) {
	a := New(&model.Opportunity{Title: "Foo ", Description: "Bar"})
	b := New(&model.Opportunity{Title: "foo", Description: " bar"})
	assert.Equal(t, a, b)
}

func TestNew_DescriptionDoubled(t *testing.T) {
	fp := New(&model.Opportunity{Title: "title", Description: "body"})
	assert.Equal(t, "title body body", fp)
}

func TestNew_NilOpportunity(t *testing.T) {
	assert.Equal(t, "", New(nil))
}

func TestSimilarity_Identical(t *testing.T) {
	fp := New(&model.Opportunity{Title: "Looking for fintech experts", Description: "Quotes on open banking"})
	assert.Equal(t, 1.0, Similarity(fp, fp))
}

func TestSimilarity_Disjoint(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("apple banana cherry", "delta echo foxtrot"))
}

func TestSimilarity_PartialOverlap(t *testing.T) {
	// sets: {apple, banana, cherry} vs {banana, cherry, date}
	// intersection 2, union 4
	assert.InDelta(t, 0.5, Similarity("apple banana cherry", "banana cherry date"), 0.001)
}

func TestSimilarity_ShortTokensDiscarded(t *testing.T) {
	// All tokens <= 2 chars collapse to empty sets, even when the strings
	// are byte-identical.
	assert.Equal(t, 0.0, Similarity("a an to of", "a an to of"))
}

func TestSimilarity_PunctuationStripped(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("fin-tech, experts!", "fintech experts"))
}

func TestSimilarity_EmptyInputs(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("something here", ""))
}

func TestSimilarity_DuplicateTokensCollapse(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("pitch pitch pitch", "pitch"))
}
