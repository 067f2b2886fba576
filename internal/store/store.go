// Package store provides a generic record store over the entity tables.
// Records travel as column->value maps so one implementation serves
// every registered entity type; the registry supplies the semantic
// column whitelists above this layer.
package store

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// ErrNoMatch is returned by UpdateOne when no row satisfied the id and
// guard condition. Callers decide whether that means a missing row or a
// lost conditional-update race.
var ErrNoMatch = errors.New("no row matched the update condition")

// Record is a row as a column->value map. Values are what the database
// returned: string, int64, float64, bool, time.Time or nil.
type Record map[string]any

// Guard is a set of column->expected-value pairs a conditional update
// must still observe. A nil expected value matches NULL.
type Guard map[string]any

// Query narrows and orders FindMany results
type Query struct {
	Filter  map[string]any    // equality, ANDed; nil matches NULL
	Search  map[string]string // substring match, ANDed
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// Store is the persistence interface shared by the workflow engine and
// the CRUD services.
type Store interface {
	// FindOne returns the record with the given id, or nil when absent.
	FindOne(ctx context.Context, table, id string) (Record, error)

	// FindMany returns the records matching q.
	FindMany(ctx context.Context, table string, q Query) ([]Record, error)

	// Count returns the number of records matching q's filters.
	Count(ctx context.Context, table string, q Query) (int, error)

	// InsertOne inserts rec. rec must carry an "id".
	InsertOne(ctx context.Context, table string, rec Record) error

	// UpdateOne applies updates to the record with the given id, but
	// only while every guard column still holds its expected value.
	// Returns ErrNoMatch when no row qualified.
	UpdateOne(ctx context.Context, table, id string, updates Record, guard Guard) error

	// DeleteOne removes the record with the given id. Returns ErrNoMatch
	// when the row does not exist.
	DeleteOne(ctx context.Context, table, id string) error
}

var identRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// validIdent reports whether s is safe to splice into SQL as an
// identifier. Table and column names all flow through here.
func validIdent(s string) bool {
	return identRe.MatchString(s)
}

// String returns the column as a string, "" when NULL or absent
func (r Record) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// Float returns the column as a float64, 0 when NULL or absent
func (r Record) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Int returns the column as an int64, 0 when NULL or absent
func (r Record) Int(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Bool returns the column as a bool. SQLite stores booleans as 0/1.
func (r Record) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// Time returns the column as a *time.Time, nil when NULL or absent
func (r Record) Time(col string) *time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return &v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	}
	return nil
}
