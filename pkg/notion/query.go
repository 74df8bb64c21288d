package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches pages from a Notion database, handling pagination, up to
// limit pages total (0 = no limit). Rate limiting is enforced by the Client.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest, limit int) ([]notionapi.Page, error) {
	var all []notionapi.Page

	req := &notionapi.DatabaseQueryRequest{}
	if filter != nil {
		req.Filter = filter.Filter
		req.Sorts = filter.Sorts
		req.PageSize = filter.PageSize
	}

	for {
		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}

		all = append(all, resp.Results...)
		if limit > 0 && len(all) >= limit {
			return all[:limit], nil
		}

		if !resp.HasMore {
			return all, nil
		}
		req = &notionapi.DatabaseQueryRequest{
			StartCursor: resp.NextCursor,
		}
		if filter != nil {
			req.Filter = filter.Filter
			req.Sorts = filter.Sorts
			req.PageSize = filter.PageSize
		}
	}
}

// QueryBySelect fetches pages whose select property equals the given value.
func QueryBySelect(ctx context.Context, c Client, dbID, property, value string, limit int) ([]notionapi.Page, error) {
	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: property,
			Select: &notionapi.SelectFilterCondition{
				Equals: value,
			},
		},
	}
	pages, err := QueryAll(ctx, c, dbID, filter, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query %s=%s", property, value)
	}
	return pages, nil
}

// QueryByText fetches pages whose rich-text property equals the given value.
func QueryByText(ctx context.Context, c Client, dbID, property, value string) ([]notionapi.Page, error) {
	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: property,
			RichText: &notionapi.TextFilterCondition{
				Equals: value,
			},
		},
	}
	pages, err := QueryAll(ctx, c, dbID, filter, 0)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query text %s=%s", property, value)
	}
	return pages, nil
}
