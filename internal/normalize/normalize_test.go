package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchradar/radar-cli/internal/model"
	"github.com/pitchradar/radar-cli/internal/validate"
)

var fixedNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func newTestNormalizer(opts ...Option) *Normalizer {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(opts...)
}

func TestNormalize_NilRecord(t *testing.T) {
	n := newTestNormalizer()
	assert.Nil(t, n.Normalize(nil, "qwoted"))
}

func TestNormalize_QwotedFallbacks(t *testing.T) {
	n := newTestNormalizer()
	o := n.Normalize(model.RawRecord{
		"pitchTitle":  "AI in Finance",
		"description": "Looking for quotes",
		"url":         "https://q/1",
		"externalId":  "Q1",
	}, "Qwoted")

	require.NotNil(t, o)
	assert.Equal(t, "AI in Finance", o.Title)
	assert.Equal(t, "Looking for quotes", o.Description)
	assert.Equal(t, "https://q/1", o.URL)
	assert.Equal(t, "Q1", o.ExternalID)
	assert.Equal(t, "qwoted", o.Source)
	assert.Equal(t, []string{}, o.Tags)
	assert.True(t, validate.IsValid(o))
}

func TestNormalize_FallbackOrder(t *testing.T) {
	n := newTestNormalizer()
	// "title" outranks "pitchTitle" in the qwoted chain.
	o := n.Normalize(model.RawRecord{
		"title":      "Direct",
		"pitchTitle": "Fallback",
		"brandName":  "Last resort",
	}, "qwoted")
	assert.Equal(t, "Direct", o.Title)

	o = n.Normalize(model.RawRecord{"brandName": "Last resort"}, "qwoted")
	assert.Equal(t, "Last resort", o.Title)
}

func TestNormalize_SourceBottlePostedTime(t *testing.T) {
	n := newTestNormalizer()
	o := n.Normalize(model.RawRecord{
		"title":         "Call for experts",
		"publishedDate": "2026-08-01",
	}, "sourcebottle")
	assert.Equal(t, "2026-08-01", o.PostedTime)
}

func TestNormalize_TrimsWhitespace(t *testing.T) {
	n := newTestNormalizer()
	o := n.Normalize(model.RawRecord{
		"title":       "  padded  ",
		"description": "\tindented\n",
	}, "featured")
	assert.Equal(t, "padded", o.Title)
	assert.Equal(t, "indented", o.Description)
}

func TestNormalize_ScalarTagCoerced(t *testing.T) {
	n := newTestNormalizer()
	o := n.Normalize(model.RawRecord{"tags": "finance"}, "qwoted")
	assert.Equal(t, []string{"finance"}, o.Tags)
}

func TestNormalize_TagsNeverNil(t *testing.T) {
	n := newTestNormalizer()
	o := n.Normalize(model.RawRecord{}, "qwoted")
	require.NotNil(t, o.Tags)
	assert.Empty(t, o.Tags)
}

func TestNormalize_MixedTagSlice(t *testing.T) {
	n := newTestNormalizer()
	o := n.Normalize(model.RawRecord{
		"tags": []any{"tech", " media ", 42, nil},
	}, "qwoted")
	assert.Equal(t, []string{"tech", "media", "42"}, o.Tags)
}

func TestNormalize_UnknownSourceMinimalMapping(t *testing.T) {
	n := newTestNormalizer()
	o := n.Normalize(model.RawRecord{
		"title":      "Verbatim",
		"url":        "https://x/1",
		"pitchTitle": "ignored by minimal mapping",
		"closesAt":   "ignored too",
	}, "somewhere-new")

	assert.Equal(t, "Verbatim", o.Title)
	assert.Equal(t, "https://x/1", o.URL)
	assert.Equal(t, "somewhere-new", o.Source)
	assert.Equal(t, "", o.Deadline)
	assert.Equal(t, DefaultCategory, o.Category)
}

func TestNormalize_EmptySourceDefaultsUnknown(t *testing.T) {
	n := newTestNormalizer()
	o := n.Normalize(model.RawRecord{"title": "t"}, "")
	assert.Equal(t, "unknown", o.Source)
}

func TestNormalize_NumericExternalID(t *testing.T) {
	n := newTestNormalizer()
	o := n.Normalize(model.RawRecord{"id": float64(98765)}, "qwoted")
	assert.Equal(t, "98765", o.ExternalID)
}

func TestNormalize_ScrapedAtSetToNow(t *testing.T) {
	n := newTestNormalizer()
	o := n.Normalize(model.RawRecord{"title": "t"}, "qwoted")
	assert.Equal(t, fixedNow, o.ScrapedAt)
}

func TestNormalize_DefaultCategoryOverride(t *testing.T) {
	n := newTestNormalizer(WithDefaultCategory("Media Requests"))
	o := n.Normalize(model.RawRecord{"title": "t"}, "qwoted")
	assert.Equal(t, "Media Requests", o.Category)
}

func TestWithMappings_NewSource(t *testing.T) {
	n := newTestNormalizer(WithMappings(map[string]FieldMapping{
		"helpareporter": {
			"title": {"queryTitle"},
			"url":   {"permalink"},
		},
	}))
	o := n.Normalize(model.RawRecord{
		"queryTitle": "Need a cardiologist",
		"permalink":  "https://h/9",
	}, "HelpAReporter")
	assert.Equal(t, "Need a cardiologist", o.Title)
	assert.Equal(t, "https://h/9", o.URL)
}

func TestMappingsFromYAML(t *testing.T) {
	data := []byte(`
qwoted:
  title: [headline, pitchTitle]
newswire:
  url: [permalink]
`)
	m, err := MappingsFromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"headline", "pitchTitle"}, m["qwoted"]["title"])
	assert.Equal(t, []string{"permalink"}, m["newswire"]["url"])
}

func TestMappingsFromYAML_Invalid(t *testing.T) {
	_, err := MappingsFromYAML([]byte("qwoted: [not-a-map"))
	assert.Error(t, err)
}
