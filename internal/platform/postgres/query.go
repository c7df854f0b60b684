package postgres

import (
	"context"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/phrazzld/scry-feeder/internal/store"
)

// psql builds statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// fieldSet whitelists the columns a grouped or distinct query may name.
type fieldSet map[string]struct{}

func newFieldSet(fields ...string) fieldSet {
	set := make(fieldSet, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func (s fieldSet) check(field string) error {
	if _, ok := s[field]; !ok {
		return fmt.Errorf("%w: %q", store.ErrUnknownField, field)
	}
	return nil
}

// where converts filters to an equality predicate on whitelisted columns.
func (s fieldSet) where(filters store.Filters) (sq.Eq, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	eq := make(sq.Eq, len(filters))
	for field, value := range filters {
		if err := s.check(field); err != nil {
			return nil, err
		}
		eq[field] = value
	}
	return eq, nil
}

// countGroupedBy runs SELECT field, COUNT(*) ... GROUP BY field.
func countGroupedBy(
	ctx context.Context,
	db store.DBTX,
	table string,
	allowed fieldSet,
	field string,
	filters store.Filters,
) (map[string]int, error) {
	if err := allowed.check(field); err != nil {
		return nil, err
	}
	eq, err := allowed.where(filters)
	if err != nil {
		return nil, err
	}

	query := psql.Select(field+"::text", "COUNT(*)").From(table).GroupBy(field)
	if eq != nil {
		query = query.Where(eq)
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}

	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var value string
		var n int
		if err := rows.Scan(&value, &n); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[value] = n
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return counts, nil
}

// distinctValues runs SELECT DISTINCT field ... and returns the values sorted.
func distinctValues(
	ctx context.Context,
	db store.DBTX,
	table string,
	allowed fieldSet,
	field string,
	filters store.Filters,
) ([]string, error) {
	if err := allowed.check(field); err != nil {
		return nil, err
	}
	eq, err := allowed.where(filters)
	if err != nil {
		return nil, err
	}

	query := psql.Select(field + "::text").Distinct().From(table)
	if eq != nil {
		query = query.Where(eq)
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build distinct query: %w", err)
	}

	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan distinct row: %w", err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	sort.Strings(values)
	return values, nil
}
