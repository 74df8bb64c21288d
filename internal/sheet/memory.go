package sheet

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Memory is an in-process Store used in tests and dry runs. It mirrors the
// adapter contract exactly, including version bumping and injectable
// failures, so orchestrator behavior against conflicts and outages can be
// exercised without a live store.
type Memory struct {
	mu      sync.Mutex
	rows    map[string]*Row
	version int

	// Fault injection. Err fields fail every call while set;
	// ConflictNext fails that many upserts with ErrConflict, and the
	// UnavailableNext counters fail that many calls with ErrUnavailable
	// before the store recovers.
	FindErr             error
	UpsertErr           error
	ListErr             error
	ConflictNext        int
	UnavailableNext     int
	ListUnavailableNext int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rows: make(map[string]*Row)}
}

// FindByKey implements Store.
func (m *Memory) FindByKey(_ context.Context, key string) (*Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	row, ok := m.rows[key]
	if !ok {
		return nil, nil
	}
	return copyRow(row), nil
}

// Upsert implements Store with field-level merge semantics.
func (m *Memory) Upsert(_ context.Context, key string, fields map[string]any) (*Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return nil, m.UpsertErr
	}
	if m.UnavailableNext > 0 {
		m.UnavailableNext--
		return nil, ErrUnavailable
	}
	if m.ConflictNext > 0 {
		m.ConflictNext--
		return nil, ErrConflict
	}

	row, ok := m.rows[key]
	if !ok {
		row = &Row{Key: key, PageID: "mem-" + key, Fields: map[string]any{ColKey: key}}
		m.rows[key] = row
	}
	for col, val := range fields {
		if col == ColKey {
			continue
		}
		row.Fields[col] = val
	}
	m.version++
	row.Version = strconv.Itoa(m.version)
	row.UpdatedAt = time.Now().UTC()
	return copyRow(row), nil
}

// ListByPhase implements Store; rows come back in key order for
// deterministic tests.
func (m *Memory) ListByPhase(_ context.Context, phase string, limit int) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if m.ListUnavailableNext > 0 {
		m.ListUnavailableNext--
		return nil, ErrUnavailable
	}

	keys := make([]string, 0, len(m.rows))
	for key, row := range m.rows {
		if str(row.Fields[ColPhase]) == phase {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var out []Row
	for _, key := range keys {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, *copyRow(m.rows[key]))
	}
	return out, nil
}

// Len returns the number of stored rows.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func copyRow(row *Row) *Row {
	fields := make(map[string]any, len(row.Fields))
	for k, v := range row.Fields {
		fields[k] = v
	}
	return &Row{
		Key:       row.Key,
		PageID:    row.PageID,
		Fields:    fields,
		Version:   row.Version,
		UpdatedAt: row.UpdatedAt,
	}
}
