// Package models defines the persistent entities of the converter's run history.
//
//   - [Run] : one invocation of the converter, its roots, worker count and outcome counters
//   - [Failure] : one error record belonging to a run
//
// Persistent entities implement the [Model] interface providing ID, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
//
// History is an audit trail only. It is never consulted to decide which files a run processes.
package models
