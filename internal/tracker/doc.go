// Package tracker owns the execution log of the feeding pipeline.
//
// Every feeder run ends with exactly one Record appended to a JSON file. The
// tracker reads the file once when constructed, rewrites it in full after each
// append, and derives the daily, weekly and all-time totals that the volume
// caps are enforced against. Only completed runs count toward the totals.
//
// A log file that cannot be parsed is moved aside to
// "<path>.corrupted.<timestamp>" and replaced with an empty log.
package tracker
