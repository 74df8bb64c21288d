package compliance

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/notion"
)

// notionKeyProp is the rich-text column holding the blocked contact key in
// the do-not-contact database.
const notionKeyProp = "Key"

// NotionSource looks contacts up in a Notion-hosted do-not-contact
// database. Every check hits the store so policy changes between runs are
// always observed.
type NotionSource struct {
	client notion.Client
	dbID   string
}

// NewNotionSource builds a BlockSource over the given DNC database.
func NewNotionSource(client notion.Client, dbID string) *NotionSource {
	return &NotionSource{client: client, dbID: dbID}
}

// IsBlocked implements BlockSource: a contact is blocked when any row
// carries its normalized key.
func (s *NotionSource) IsBlocked(ctx context.Context, contactKey string) (bool, error) {
	pages, err := notion.QueryByText(ctx, s.client, s.dbID, notionKeyProp, model.NaturalKey(contactKey))
	if err != nil {
		return false, eris.Wrap(err, "compliance: dnc lookup")
	}
	return len(pages) > 0, nil
}
