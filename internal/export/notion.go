package export

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pitchradar/radar-cli/internal/model"
	"github.com/pitchradar/radar-cli/pkg/notion"
)

// ExportNotion creates one page per opportunity in the target database.
// Per-item failures are logged and skipped. Returns the number of pages
// created.
func ExportNotion(ctx context.Context, c notion.Client, dbID string, items []model.Opportunity) (int, error) {
	if dbID == "" {
		return 0, eris.New("export: notion database id required")
	}

	created := 0
	for _, item := range items {
		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(dbID),
			},
			Properties: pageProperties(item),
		}
		if _, err := c.CreatePage(ctx, req); err != nil {
			if ctx.Err() != nil {
				return created, eris.Wrap(ctx.Err(), "export: notion cancelled")
			}
			zap.L().Warn("export: notion page failed",
				zap.String("title", item.Title),
				zap.String("source", item.Source),
				zap.Error(err),
			)
			continue
		}
		created++
	}
	return created, nil
}

// pageProperties maps an opportunity onto a Notion properties set. Title is
// the page title, URL is a url property, everything else is select or
// rich_text.
func pageProperties(o model.Opportunity) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(o.Title),
		},
		"Source": notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: o.Source},
		},
		"Category": notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: o.Category},
		},
	}

	if o.URL != "" {
		props["URL"] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  o.URL,
		}
	}
	if o.Deadline != "" {
		props["Deadline"] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(o.Deadline),
		}
	}
	if o.MediaOutlet != "" {
		props["Outlet"] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(o.MediaOutlet),
		}
	}
	if len(o.Tags) > 0 {
		props["Tags"] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(strings.Join(o.Tags, ", ")),
		}
	}
	if o.Analysis != nil {
		props["Priority"] = notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: string(o.Analysis.Priority)},
		}
		props["Relevance"] = notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(o.Analysis.RelevanceScore),
		}
	}

	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}
