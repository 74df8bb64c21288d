package sheet

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/pkg/notion"
)

// Notion property layout for a pipeline table: the natural key lives in a
// rich-text column so it can be filtered with exact match, the display
// title mirrors the key, and the phase is a select column. Every other
// column is rich text for strings, number for numbers, checkbox for bools.
const (
	notionTitleProp = "Name"
	notionKeyProp   = "Key"
	notionPhaseProp = "Phase"
)

// NotionStore implements Store against a Notion database.
type NotionStore struct {
	client notion.Client
	dbID   string
}

// NewNotionStore builds a store over the given Notion database.
func NewNotionStore(client notion.Client, dbID string) *NotionStore {
	return &NotionStore{client: client, dbID: dbID}
}

// FindByKey looks up the row whose Key column equals key. Returns nil when
// absent. The row carries the page's last-edited marker as its Version for
// optimistic conflict detection.
func (s *NotionStore) FindByKey(ctx context.Context, key string) (*Row, error) {
	pages, err := notion.QueryByText(ctx, s.client, s.dbID, notionKeyProp, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return pageRow(&pages[0]), nil
}

// Upsert merges the supplied fields into the row found by key, or appends a
// new row. The merge is field-level: columns not named in fields keep their
// stored values. A row whose last-edited marker moved between find and
// update yields ErrConflict.
func (s *NotionStore) Upsert(ctx context.Context, key string, fields map[string]any) (*Row, error) {
	existing, err := s.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		props := fieldProps(fields)
		props[notionTitleProp] = notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: key}}},
		}
		props[notionKeyProp] = richText(key)
		page, err := s.client.CreatePage(ctx, &notionapi.PageCreateRequest{
			Parent:     notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(s.dbID)},
			Properties: props,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return pageRow(page), nil
	}

	// Optimistic check: re-read the page and compare the revision marker
	// captured at find time. The store offers no compare-and-swap.
	current, err := s.client.GetPage(ctx, existing.PageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if pageVersion(current) != existing.Version {
		return nil, eris.Wrapf(ErrConflict, "key %s", key)
	}

	page, err := s.client.UpdatePage(ctx, existing.PageID, &notionapi.PageUpdateRequest{
		Properties: fieldProps(fields),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return pageRow(page), nil
}

// ListByPhase returns up to limit rows whose Phase column equals phase. The
// store is re-read on every call.
func (s *NotionStore) ListByPhase(ctx context.Context, phase string, limit int) ([]Row, error) {
	pages, err := notion.QueryBySelect(ctx, s.client, s.dbID, notionPhaseProp, phase, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	rows := make([]Row, 0, len(pages))
	for i := range pages {
		rows = append(rows, *pageRow(&pages[i]))
	}
	return rows, nil
}

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: s}}},
	}
}

func fieldProps(fields map[string]any) notionapi.Properties {
	props := make(notionapi.Properties, len(fields))
	for col, val := range fields {
		if col == ColKey {
			continue // key is written once at create, immutable after
		}
		name := propName(col)
		switch v := val.(type) {
		case string:
			if name == notionPhaseProp {
				props[name] = notionapi.SelectProperty{Select: notionapi.Option{Name: v}}
			} else {
				props[name] = richText(v)
			}
		case float64:
			props[name] = notionapi.NumberProperty{Number: v}
		case int:
			props[name] = notionapi.NumberProperty{Number: float64(v)}
		case bool:
			props[name] = notionapi.CheckboxProperty{Checkbox: v}
		default:
			props[name] = richText(fmt.Sprintf("%v", v))
		}
	}
	return props
}

// propName maps a column name to its Notion property. Phase is special-
// cased; everything else uses the column name verbatim.
func propName(col string) string {
	if col == ColPhase {
		return notionPhaseProp
	}
	return col
}

func pageRow(page *notionapi.Page) *Row {
	row := &Row{
		PageID:    string(page.ID),
		Fields:    make(map[string]any, len(page.Properties)),
		Version:   pageVersion(page),
		UpdatedAt: page.LastEditedTime,
	}
	for name, prop := range page.Properties {
		col := name
		if name == notionPhaseProp {
			col = ColPhase
		}
		switch p := prop.(type) {
		case *notionapi.TitleProperty:
			// Display only; the key is read from the Key column.
		case *notionapi.RichTextProperty:
			var text string
			for _, rt := range p.RichText {
				text += rt.PlainText
			}
			if name == notionKeyProp {
				row.Key = text
				row.Fields[ColKey] = text
			} else {
				row.Fields[col] = text
			}
		case *notionapi.SelectProperty:
			row.Fields[col] = p.Select.Name
		case *notionapi.NumberProperty:
			row.Fields[col] = p.Number
		case *notionapi.CheckboxProperty:
			row.Fields[col] = p.Checkbox
		}
	}
	return row
}

func pageVersion(page *notionapi.Page) string {
	return page.LastEditedTime.UTC().Format(time.RFC3339Nano)
}
