// Package repositories implements SQLite persistence for run history.
//
// [RunRepository] stores one row per converter invocation in the runs table and one row per error
// record in the failures table. The history is an audit trail only: nothing in it decides which
// files a later run converts.
//
// Sequence numbers provide stable, human-readable ordering (run #42) independent of UUIDs and
// creation timestamps. [NextSequence] atomically increments per-table counters kept in dedicated
// sequence tables.
package repositories
