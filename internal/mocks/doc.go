// Package mocks provides centralized mock implementations for testing.
//
// The store mocks keep an in-memory corpus and honor the same uniqueness
// rules as the PostgreSQL stores (normalized word, normalized topic name,
// normalized question per topic), so feeder and gap tests can assert on
// what was inserted. Every mock records its calls and accepts XxxFn
// overrides for error injection.
//
// Usage:
//
//	vocab := mocks.NewMockVocabularyStore(existingWords...)
//	completer := mocks.NewMockCompleterWithResponses(`[...]`)
//	tx := &mocks.MockTransactor{}
//
//	// Wire them into the component under test, then assert on
//	// vocab.Words(), completer.Calls() and tx.Transactions().
package mocks
