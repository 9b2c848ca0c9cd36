// Package convert turns one source file into one destination file.
//
// [Pipeline] runs the configured decoder and encoder as two processes joined by an OS pipe.
// [Converter] wraps one job: destination check, pipeline, tag translation and optional removal of
// the source, strictly in that order. Every failure is returned as a [*shared.JobError].
package convert
