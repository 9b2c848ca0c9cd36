// Package ui renders the end-of-run summary printed by the CLI.
//
// Styling uses a small [Palette] of lipgloss styles. [Summary] lays out counts and timing for a
// [tasks.Report]; the individual error records are logged separately, one per line.
package ui
