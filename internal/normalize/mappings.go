package normalize

import (
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FieldMapping maps a canonical field name to the ordered list of raw
// field names tried before falling back to the field's default.
type FieldMapping map[string][]string

// minimalMapping is applied to unknown sources: title, description, and
// url are taken verbatim when present, everything else defaults.
var minimalMapping = FieldMapping{
	"title":       {"title"},
	"description": {"description"},
	"url":         {"url"},
	"externalId":  {"externalId"},
	"tags":        {"tags"},
}

// builtinMappings returns the per-source fallback tables for the supported
// platforms. Keys are lowercased source names.
func builtinMappings() map[string]FieldMapping {
	return map[string]FieldMapping{
		"sourcebottle": {
			"title":       {"title", "headline"},
			"description": {"description", "summary", "details"},
			"url":         {"url", "link"},
			"externalId":  {"externalId", "id", "queryId"},
			"category":    {"category", "topic"},
			"tags":        {"tags", "keywords"},
			"deadline":    {"deadline", "closingDate", "deadlineDate"},
			"postedTime":  {"postedTime", "publishedDate", "datePosted"},
			"mediaOutlet": {"mediaOutlet", "publication", "outlet"},
		},
		"qwoted": {
			"title":       {"title", "pitchTitle", "brandName"},
			"description": {"description", "pitchText", "summary"},
			"url":         {"url", "opportunityUrl", "link"},
			"externalId":  {"externalId", "id", "opportunityId"},
			"category":    {"category", "beat"},
			"tags":        {"tags", "topics", "hashtags"},
			"deadline":    {"deadline", "respondBy", "expiresAt"},
			"postedTime":  {"postedTime", "createdAt", "postedAt"},
			"mediaOutlet": {"mediaOutlet", "brandName", "outletName"},
		},
		"featured": {
			"title":       {"title", "question", "prompt"},
			"description": {"description", "questionText", "details"},
			"url":         {"url", "questionUrl", "link"},
			"externalId":  {"externalId", "id", "questionId"},
			"category":    {"category", "vertical"},
			"tags":        {"tags", "topics"},
			"deadline":    {"deadline", "closesAt"},
			"postedTime":  {"postedTime", "publishedAt", "openedAt"},
			"mediaOutlet": {"mediaOutlet", "publisher"},
		},
	}
}

// MappingsFromYAML parses per-source mapping overrides, e.g.:
//
//	qwoted:
//	  title: [title, pitchTitle]
//	mynewsource:
//	  title: [headline]
//	  url: [permalink]
func MappingsFromYAML(data []byte) (map[string]FieldMapping, error) {
	var out map[string]FieldMapping
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "normalize: parse mapping overrides")
	}
	return out, nil
}
