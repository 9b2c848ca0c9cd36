// Package tasks runs a conversion batch over a set of directories.
//
// # Dispatch
//
// [Engine.Run] picks one policy per run from the worker count:
//
//  1. 0 workers: the run is rejected with a single [shared.ErrInvalidWorkers] record. Nothing is
//     scanned and nothing on disk changes.
//  2. 1 worker: serial. Files are converted one at a time in discovery order and no goroutines
//     are started.
//  3. N workers: parallel. A fixed pool of N goroutines reads jobs from a channel fed by a single
//     producer that walks the scanner. Scan errors bypass the pool and go straight to the results
//     channel.
//
// # Errors
//
// A failed file never stops the batch. Every failure ends up in [Report.Errors]: in discovery
// order for serial runs, in completion order for parallel runs. The run itself has no error return.
//
// # States
//
// An [Engine] moves through [Idle], [Dispatching], [Draining] and [Done]; [Engine.State] reports
// where it is.
package tasks
