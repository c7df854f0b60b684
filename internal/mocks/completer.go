package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-feeder/internal/generation"
)

// MockCompleter implements generation.Completer for testing
type MockCompleter struct {
	// CompleteFn allows test cases to mock the Complete behavior
	CompleteFn func(ctx context.Context, prompt string) (string, error)

	// Responses are returned in order, one per call; the last one repeats.
	Responses []string
	Err       error

	// Call tracking for verification
	CompleteCalls struct {
		// mu protects the call tracking state for concurrent test cases
		mu sync.Mutex

		// Count tracks how many times Complete was called
		Count int

		// Prompts contains all prompts passed to Complete calls
		Prompts []string
	}
}

var _ generation.Completer = (*MockCompleter)(nil)

// Complete implements the generation.Completer interface
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.CompleteCalls.mu.Lock()
	call := m.CompleteCalls.Count
	m.CompleteCalls.Count++
	m.CompleteCalls.Prompts = append(m.CompleteCalls.Prompts, prompt)
	m.CompleteCalls.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, prompt)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "[]", nil
	}
	if call >= len(m.Responses) {
		call = len(m.Responses) - 1
	}
	return m.Responses[call], nil
}

// Calls returns how many times Complete was called
func (m *MockCompleter) Calls() int {
	m.CompleteCalls.mu.Lock()
	defer m.CompleteCalls.mu.Unlock()
	return m.CompleteCalls.Count
}

// Prompts returns a copy of every prompt received
func (m *MockCompleter) Prompts() []string {
	m.CompleteCalls.mu.Lock()
	defer m.CompleteCalls.mu.Unlock()
	out := make([]string, len(m.CompleteCalls.Prompts))
	copy(out, m.CompleteCalls.Prompts)
	return out
}

// NewMockCompleterWithResponses creates a MockCompleter that returns responses in order
func NewMockCompleterWithResponses(responses ...string) *MockCompleter {
	return &MockCompleter{Responses: responses}
}

// NewMockCompleterWithError creates a MockCompleter that returns the specified error
func NewMockCompleterWithError(err error) *MockCompleter {
	return &MockCompleter{Err: err}
}

// MockCompleterWithTransientFailure creates a MockCompleter that simulates a transient failure
func MockCompleterWithTransientFailure() *MockCompleter {
	return &MockCompleter{Err: generation.ErrTransientFailure}
}

// MockCompleterWithContentBlocked creates a MockCompleter that simulates content being blocked
func MockCompleterWithContentBlocked() *MockCompleter {
	return &MockCompleter{Err: generation.ErrContentBlocked}
}

// Reset resets the call tracking state
func (m *MockCompleter) Reset() {
	m.CompleteCalls.mu.Lock()
	defer m.CompleteCalls.mu.Unlock()

	m.CompleteCalls.Count = 0
	m.CompleteCalls.Prompts = nil
}
