// Package sheet is the upsert persistence adapter for the externally-hosted
// tabular store. It is the single point of contact with the store: no other
// component reads or writes rows directly.
package sheet

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrUnavailable marks a store that cannot be reached. Retryable, bounded.
var ErrUnavailable = eris.New("sheet: store unavailable")

// ErrConflict marks a row that changed between find and update. The caller
// re-reads and retries the merge once, then surfaces failure.
var ErrConflict = eris.New("sheet: concurrent row modification")

// Row is one record in the tabular store. Fields hold scalar column values;
// Version is the store's revision marker captured at read time and used for
// optimistic conflict detection on update.
type Row struct {
	Key       string
	PageID    string
	Fields    map[string]any
	Version   string
	UpdatedAt time.Time
}

// Store is the persistence contract against the tabular store. FindByKey
// returns nil (no error) when the key is absent. Upsert merges the supplied
// fields into the existing row found by natural key, or appends a new row;
// reapplying the same key and fields produces no observable change beyond
// the modification timestamp. ListByPhase re-reads from the store on every
// call and retains no cursor.
type Store interface {
	FindByKey(ctx context.Context, key string) (*Row, error)
	Upsert(ctx context.Context, key string, fields map[string]any) (*Row, error)
	ListByPhase(ctx context.Context, phase string, limit int) ([]Row, error)
}

// CodeFor maps a store error to its boundary error code.
func CodeFor(err error) model.ErrorCode {
	if errors.Is(err, ErrConflict) {
		return model.CodeConflict
	}
	return model.CodeStoreUnavailable
}
