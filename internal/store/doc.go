// Package store defines interfaces for corpus persistence.
// These interfaces abstract the underlying database from the feeders and gap
// analyzers, which only ever insert new rows and read aggregate views of the
// corpus: grouped counts and distinct values of whitelisted fields.
//
// Single-row inserts run in their own transaction through a Transactor;
// multi-row units (a new grammar topic with its first exercises) use one
// transaction with a savepoint per dependent row.
package store
