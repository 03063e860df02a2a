// Package export writes opportunity collections to CSV, XLSX, and Notion.
package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/pitchradar/radar-cli/internal/model"
)

// columns is the shared column layout for tabular exports.
var columns = []string{
	"Title",
	"Source",
	"Category",
	"URL",
	"External ID",
	"Media Outlet",
	"Deadline",
	"Posted",
	"Tags",
	"Scraped At",
	"Priority",
	"Relevance",
}

// rowFor flattens one opportunity into the shared column layout.
func rowFor(o model.Opportunity) []string {
	priority := ""
	relevance := ""
	if o.Analysis != nil {
		priority = string(o.Analysis.Priority)
		relevance = strconv.FormatFloat(o.Analysis.RelevanceScore, 'f', -1, 64)
	}
	scrapedAt := ""
	if !o.ScrapedAt.IsZero() {
		scrapedAt = o.ScrapedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		o.Title,
		o.Source,
		o.Category,
		o.URL,
		o.ExternalID,
		o.MediaOutlet,
		o.Deadline,
		o.PostedTime,
		strings.Join(o.Tags, "; "),
		scrapedAt,
		priority,
		relevance,
	}
}
