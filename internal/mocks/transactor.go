package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/phrazzld/scry-feeder/internal/store"
)

// MockTransactor implements store.Transactor for testing.
// By default it runs fn directly with a nil *sql.Tx; the store mocks ignore
// the transaction, so rollbacks are not simulated.
type MockTransactor struct {
	// RunInTransactionFn allows test cases to mock the RunInTransaction behavior
	RunInTransactionFn func(ctx context.Context, fn store.TxFn) error

	// SavepointFn allows test cases to mock the Savepoint behavior
	SavepointFn func(ctx context.Context, tx *sql.Tx, name string, fn store.TxFn) error

	calls struct {
		mu           sync.Mutex
		transactions int
		savepoints   []string
	}
}

var _ store.Transactor = (*MockTransactor)(nil)

// RunInTransaction implements the store.Transactor interface
func (m *MockTransactor) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	m.calls.mu.Lock()
	m.calls.transactions++
	m.calls.mu.Unlock()

	if m.RunInTransactionFn != nil {
		return m.RunInTransactionFn(ctx, fn)
	}
	return fn(ctx, nil)
}

// Savepoint implements the store.Transactor interface
func (m *MockTransactor) Savepoint(ctx context.Context, tx *sql.Tx, name string, fn store.TxFn) error {
	m.calls.mu.Lock()
	m.calls.savepoints = append(m.calls.savepoints, name)
	m.calls.mu.Unlock()

	if m.SavepointFn != nil {
		return m.SavepointFn(ctx, tx, name, fn)
	}
	return fn(ctx, tx)
}

// Transactions returns how many transactions were started
func (m *MockTransactor) Transactions() int {
	m.calls.mu.Lock()
	defer m.calls.mu.Unlock()
	return m.calls.transactions
}

// Savepoints returns the names of all savepoints created, in order
func (m *MockTransactor) Savepoints() []string {
	m.calls.mu.Lock()
	defer m.calls.mu.Unlock()
	out := make([]string, len(m.calls.savepoints))
	copy(out, m.calls.savepoints)
	return out
}
