package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests. Guard evaluation mirrors
// the SQLite implementation's NULL-safe equality. UpdateHook, when set,
// runs before each UpdateOne and lets tests interleave a concurrent
// writer between a read and its conditional update.
type Memory struct {
	mu         sync.RWMutex
	tables     map[string][]Record
	UpdateHook func(table, id string)
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]Record)}
}

// FindOne returns a copy of the record with the given id, or nil
func (m *Memory) FindOne(ctx context.Context, table, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.tables[table] {
		if rec.String("id") == id {
			return copyRecord(rec), nil
		}
	}
	return nil, nil
}

// FindMany returns copies of the records matching q, in insertion order
// unless q.OrderBy says otherwise
func (m *Memory) FindMany(ctx context.Context, table string, q Query) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range m.tables[table] {
		if matches(rec, q) {
			out = append(out, copyRecord(rec))
		}
	}

	if q.OrderBy != "" {
		col, desc := q.OrderBy, q.Desc
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return lessValue(out[j][col], out[i][col])
			}
			return lessValue(out[i][col], out[j][col])
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Count returns the number of records matching q's filters
func (m *Memory) Count(ctx context.Context, table string, q Query) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.tables[table] {
		if matches(rec, q) {
			count++
		}
	}
	return count, nil
}

// InsertOne stores a copy of rec
func (m *Memory) InsertOne(ctx context.Context, table string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tables[table] = append(m.tables[table], copyRecord(rec))
	return nil
}

// UpdateOne applies updates while every guard column still matches
func (m *Memory) UpdateOne(ctx context.Context, table, id string, updates Record, guard Guard) error {
	if m.UpdateHook != nil {
		m.UpdateHook(table, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.tables[table] {
		if rec.String("id") != id {
			continue
		}
		for col, want := range guard {
			if !equalValue(rec[col], want) {
				return ErrNoMatch
			}
		}
		for col, val := range updates {
			rec[col] = val
		}
		return nil
	}
	return ErrNoMatch
}

// DeleteOne removes the record with the given id
func (m *Memory) DeleteOne(ctx context.Context, table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.tables[table]
	for i, rec := range recs {
		if rec.String("id") == id {
			m.tables[table] = append(recs[:i], recs[i+1:]...)
			return nil
		}
	}
	return ErrNoMatch
}

// Seed inserts records bypassing the hook, for test setup
func (m *Memory) Seed(table string, recs ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range recs {
		m.tables[table] = append(m.tables[table], copyRecord(rec))
	}
}

func matches(rec Record, q Query) bool {
	for col, want := range q.Filter {
		if !equalValue(rec[col], want) {
			return false
		}
	}
	for col, sub := range q.Search {
		if !strings.Contains(strings.ToLower(rec.String(col)), strings.ToLower(sub)) {
			return false
		}
	}
	return true
}

func equalValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
		return false
	}
	return a == b
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return av < bv
	case int64:
		bv, _ := b.(int64)
		return av < bv
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Before(bv)
	}
	return false
}

func copyRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
