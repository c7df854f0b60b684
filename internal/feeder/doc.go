// Package feeder runs governed generation batches against the corpus.
//
// A run moves through cap check, recommendation, loading the existing corpus
// slice, generation, deduplication and per-item insertion, and always ends by
// logging one execution record with the tracker. Each run ends as completed,
// skipped or failed; pipeline problems are recorded on the record instead of
// being returned as errors. The only error a Run returns is a failure to
// persist that record.
//
// Every item is inserted in its own transaction so one bad row does not abort
// the batch. A new grammar topic and its initial exercises share a single
// transaction, with a savepoint per exercise.
package feeder
