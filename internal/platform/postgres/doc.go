// Package postgres provides PostgreSQL implementations of the corpus stores
// defined in the internal/store package, plus the embedded goose migrations
// that create their tables.
//
// Queries are built with Masterminds/squirrel using dollar placeholders.
// Inserts use ON CONFLICT DO NOTHING on the normalized uniqueness keys, so a
// duplicate is reported as "not inserted" rather than as an error.
package postgres
