// Package repository handles all interactions with the database.
//
// It contains the SQL (built with squirrel) and the row mappers that turn
// result rows into model values, abstracting SQL away from the service layer.
//
// Conventions shared by every repository:
//   - single row fetches return (nil, nil) when nothing matches
//   - multi row fetches return an empty, non-nil slice when nothing matches
//   - updates return rows affected; removes return true iff exactly one row went
//   - driver errors are wrapped and returned unchanged in kind; there are no retries
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ro-rah/waltz/internal/database"
)

// psql builds statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// clock returns the current time. Repositories stamp audit columns in UTC.
type clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

type scanFunc[T any] func(row pgx.Row) (T, error)

func queryAll[T any](ctx context.Context, db database.DBTX, q sq.Sqlizer, scan scanFunc[T]) ([]T, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// queryOne returns the first row of q, or nil when there is none.
func queryOne[T any](ctx context.Context, db database.DBTX, q sq.Sqlizer, scan scanFunc[T]) (*T, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	item, err := scan(db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func queryBool(ctx context.Context, db database.DBTX, q sq.Sqlizer) (bool, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("building query: %w", err)
	}

	var result bool
	if err := db.QueryRow(ctx, query, args...).Scan(&result); err != nil {
		return false, err
	}
	return result, nil
}

func execute(ctx context.Context, db database.DBTX, q sq.Sqlizer) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building statement: %w", err)
	}

	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func insertReturningID(ctx context.Context, db database.DBTX, q sq.InsertBuilder) (int64, error) {
	query, args, err := q.Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, fmt.Errorf("building insert: %w", err)
	}

	var id int64
	if err := db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// unionQuery joins SELECTs built with '?' placeholders and renumbers the
// placeholders once over the combined statement.
type unionQuery struct {
	all   bool
	parts []sq.SelectBuilder
}

func union(parts ...sq.SelectBuilder) unionQuery {
	return unionQuery{parts: parts}
}

func unionAll(parts ...sq.SelectBuilder) unionQuery {
	return unionQuery{all: true, parts: parts}
}

func (u unionQuery) ToSql() (string, []any, error) {
	if len(u.parts) == 0 {
		return "", nil, errors.New("union needs at least one query")
	}

	keyword := " UNION "
	if u.all {
		keyword = " UNION ALL "
	}

	sqls := make([]string, 0, len(u.parts))
	var args []any
	for _, p := range u.parts {
		s, a, err := p.PlaceholderFormat(sq.Question).ToSql()
		if err != nil {
			return "", nil, err
		}
		sqls = append(sqls, "("+s+")")
		args = append(args, a...)
	}

	query, err := sq.Dollar.ReplacePlaceholders(strings.Join(sqls, keyword))
	if err != nil {
		return "", nil, err
	}
	return query, args, nil
}

// qualify prefixes each column with table.
func qualify(table string, columns ...string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = table + "." + c
	}
	return out
}

func int64Ptr(v int64) *int64 {
	return &v
}
