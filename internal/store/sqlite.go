package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/procurehq/procure-server/pkg/database"
	"go.uber.org/zap"
)

// SQLite implements Store over the shared SQLite connection. The
// conditional update is a single guarded UPDATE; SQLite's IS operator
// gives NULL-safe equality, which the guard relies on for columns that
// start out NULL.
type SQLite struct {
	db     *database.DB
	logger *zap.Logger
}

// NewSQLite creates a SQLite-backed record store
func NewSQLite(db *database.DB, logger *zap.Logger) *SQLite {
	return &SQLite{
		db:     db,
		logger: logger,
	}
}

// FindOne returns the record with the given id, or nil when absent
func (s *SQLite) FindOne(ctx context.Context, table, id string) (Record, error) {
	if !validIdent(table) {
		return nil, fmt.Errorf("invalid table name: %s", table)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE id = ?", table), id)
	if err != nil {
		s.logger.Error("Failed to query record",
			zap.String("table", table),
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	rec, err := scanRecord(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s record: %w", table, err)
	}
	return rec, nil
}

// FindMany returns the records matching q
func (s *SQLite) FindMany(ctx context.Context, table string, q Query) ([]Record, error) {
	if !validIdent(table) {
		return nil, fmt.Errorf("invalid table name: %s", table)
	}

	where, args, err := buildWhere(q)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s%s", table, where)

	if q.OrderBy != "" {
		if !validIdent(q.OrderBy) {
			return nil, fmt.Errorf("invalid order column: %s", q.OrderBy)
		}
		query += " ORDER BY " + q.OrderBy
		if q.Desc {
			query += " DESC"
		}
	}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, q.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Failed to query records",
			zap.String("table", table),
			zap.Error(err))
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", table, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of records matching q's filters
func (s *SQLite) Count(ctx context.Context, table string, q Query) (int, error) {
	if !validIdent(table) {
		return 0, fmt.Errorf("invalid table name: %s", table)
	}

	where, args, err := buildWhere(q)
	if err != nil {
		return 0, err
	}

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// InsertOne inserts rec into table
func (s *SQLite) InsertOne(ctx context.Context, table string, rec Record) error {
	if !validIdent(table) {
		return fmt.Errorf("invalid table name: %s", table)
	}
	if len(rec) == 0 {
		return fmt.Errorf("empty record for %s", table)
	}

	cols := sortedColumns(rec)
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		if !validIdent(col) {
			return fmt.Errorf("invalid column name: %s", col)
		}
		placeholders[i] = "?"
		args[i] = rec[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Error("Failed to insert record",
			zap.String("table", table),
			zap.Error(err))
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// UpdateOne applies updates to the row with the given id while every
// guard column still holds its expected value. Zero matched rows map to
// ErrNoMatch whether the row is gone or the guard went stale.
func (s *SQLite) UpdateOne(ctx context.Context, table, id string, updates Record, guard Guard) error {
	if !validIdent(table) {
		return fmt.Errorf("invalid table name: %s", table)
	}
	if len(updates) == 0 {
		return fmt.Errorf("no columns to update in %s", table)
	}

	setCols := sortedColumns(Record(updates))
	sets := make([]string, len(setCols))
	args := make([]any, 0, len(setCols)+len(guard)+1)
	for i, col := range setCols {
		if !validIdent(col) {
			return fmt.Errorf("invalid column name: %s", col)
		}
		sets[i] = col + " = ?"
		args = append(args, updates[col])
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
	args = append(args, id)

	for _, col := range sortedGuardColumns(guard) {
		if !validIdent(col) {
			return fmt.Errorf("invalid guard column name: %s", col)
		}
		query += " AND " + col + " IS ?"
		args = append(args, guard[col])
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Failed to update record",
			zap.String("table", table),
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to update %s: %w", table, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoMatch
	}
	return nil
}

// DeleteOne removes the row with the given id
func (s *SQLite) DeleteOne(ctx context.Context, table, id string) error {
	if !validIdent(table) {
		return fmt.Errorf("invalid table name: %s", table)
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		s.logger.Error("Failed to delete record",
			zap.String("table", table),
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoMatch
	}
	return nil
}

// buildWhere renders the filter and search clauses. Filters use IS for
// NULL-safe equality; searches use case-insensitive LIKE.
func buildWhere(q Query) (string, []any, error) {
	var clauses []string
	var args []any

	for _, col := range sortedFilterColumns(q.Filter) {
		if !validIdent(col) {
			return "", nil, fmt.Errorf("invalid filter column: %s", col)
		}
		clauses = append(clauses, col+" IS ?")
		args = append(args, q.Filter[col])
	}
	for _, col := range sortedSearchColumns(q.Search) {
		if !validIdent(col) {
			return "", nil, fmt.Errorf("invalid search column: %s", col)
		}
		clauses = append(clauses, col+" LIKE ?")
		args = append(args, "%"+q.Search[col]+"%")
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	rec := make(Record, len(cols))
	for i, col := range cols {
		if b, ok := vals[i].([]byte); ok {
			rec[col] = string(b)
			continue
		}
		rec[col] = vals[i]
	}
	return rec, nil
}

func sortedColumns(rec Record) []string {
	cols := make([]string, 0, len(rec))
	for col := range rec {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func sortedGuardColumns(g Guard) []string {
	cols := make([]string, 0, len(g))
	for col := range g {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func sortedFilterColumns(f map[string]any) []string {
	cols := make([]string, 0, len(f))
	for col := range f {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func sortedSearchColumns(s map[string]string) []string {
	cols := make([]string, 0, len(s))
	for col := range s {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}
