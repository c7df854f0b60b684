// Package testdb provides utilities for database integration tests.
//
// Tests get a connection with GetTestDBWithT, which skips the test when
// DATABASE_URL is not set, and run their work through WithTx so every change
// is rolled back when the test completes:
//
//	func TestInsert(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.SetupTestDatabaseSchema(t, db)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        s := postgres.NewPostgresVocabularyStore(tx, nil)
//	        // ...
//	    })
//	}
package testdb
