// package formatter renders run reports and run history as JSON, CSV or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/flacmp3/internal/models"
	"github.com/desertthunder/flacmp3/internal/shared"
	"github.com/desertthunder/flacmp3/internal/tasks"
)

// Supported report formats
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "txt"
)

// ParseFormat validates a report format name. The empty string selects JSON.
func ParseFormat(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatText, "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q (want json, csv or txt)", shared.ErrInvalidFlag, name)
	}
}

// ReportDocument is the serialized form of a [tasks.Report].
type ReportDocument struct {
	RunID      string          `json:"run_id"`
	Roots      []string        `json:"roots"`
	Workers    int             `json:"workers"`
	Mode       string          `json:"mode,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Converted  int             `json:"converted"`
	Failed     int             `json:"failed"`
	Outcomes   []OutcomeRecord `json:"outcomes"`
	Errors     []ErrorRecord   `json:"errors"`
}

// OutcomeRecord is one conversion job.
type OutcomeRecord struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	ElapsedMS   int64  `json:"elapsed_ms"`
}

// ErrorRecord is one error record.
type ErrorRecord struct {
	Kind    string `json:"kind"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// NewErrorRecord describes err.
func NewErrorRecord(err error) ErrorRecord {
	kind, path := shared.Describe(err)
	return ErrorRecord{Kind: kind, Path: path, Message: err.Error()}
}

// ToDocument converts a report into its serializable form.
func ToDocument(r *tasks.Report) ReportDocument {
	doc := ReportDocument{
		RunID:      r.RunID,
		Roots:      r.Roots,
		Workers:    r.Workers,
		Mode:       string(r.Mode),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Converted:  r.Converted(),
		Failed:     r.Failed(),
		Outcomes:   make([]OutcomeRecord, 0, len(r.Outcomes)),
		Errors:     make([]ErrorRecord, 0, len(r.Errors)),
	}

	for _, o := range r.Outcomes {
		rec := OutcomeRecord{
			Source:      o.Source,
			Destination: o.Destination,
			OK:          o.Err == nil,
			ElapsedMS:   o.Elapsed.Milliseconds(),
		}
		if o.Err != nil {
			rec.Error = o.Err.Error()
		}
		doc.Outcomes = append(doc.Outcomes, rec)
	}
	for _, err := range r.Errors {
		doc.Errors = append(doc.Errors, NewErrorRecord(err))
	}
	return doc
}

// ExportToJSON renders a report as indented JSON.
func ExportToJSON(r *tasks.Report) ([]byte, error) {
	return shared.MarshalJSON(ToDocument(r), true)
}

// ExportToCSV renders a report with columns: Source, Destination, Status, Kind, Error, ElapsedMS.
//
// Errors that do not belong to a job (scan failures, rejected runs) get a row with status "error"
// and the offending path in the Source column.
func ExportToCSV(r *tasks.Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Source", "Destination", "Status", "Kind", "Error", "ElapsedMS"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, o := range r.Outcomes {
		status, kind, message := "ok", "", ""
		if o.Err != nil {
			rec := NewErrorRecord(o.Err)
			status, kind, message = "failed", rec.Kind, rec.Message
		}
		record := []string{o.Source, o.Destination, status, kind, message, strconv.FormatInt(o.Elapsed.Milliseconds(), 10)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	for _, rec := range detachedErrors(r) {
		if err := writer.Write([]string{rec.Path, "", "error", rec.Kind, rec.Message, "0"}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText renders a report as a plain text summary followed by one line per error record.
func ExportToText(r *tasks.Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	buf.WriteString(fmt.Sprintf("Roots: %s\n", strings.Join(r.Roots, ", ")))
	if r.Mode != "" {
		buf.WriteString(fmt.Sprintf("Mode: %s (%d workers)\n", r.Mode, r.Workers))
	}
	buf.WriteString(fmt.Sprintf("Elapsed: %s\n", r.Elapsed().Round(time.Millisecond)))
	buf.WriteString(fmt.Sprintf("Converted: %d\n", r.Converted()))
	buf.WriteString(fmt.Sprintf("Failed: %d\n", r.Failed()))

	if len(r.Errors) > 0 {
		buf.WriteString("\nErrors:\n")
		for i, err := range r.Errors {
			buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, err))
		}
	}

	return buf.Bytes(), nil
}

// Export renders a report in the given format.
func Export(r *tasks.Report, format string) ([]byte, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatCSV:
		return ExportToCSV(r)
	case FormatText:
		return ExportToText(r)
	default:
		return ExportToJSON(r)
	}
}

// WriteReport renders a report and writes it to path.
func WriteReport(r *tasks.Report, format, path string) error {
	data, err := Export(r, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// detachedErrors returns the error records that do not belong to a conversion job.
func detachedErrors(r *tasks.Report) []ErrorRecord {
	var records []ErrorRecord
	for _, err := range r.Errors {
		var jobErr *shared.JobError
		if !errors.As(err, &jobErr) || errors.Is(jobErr.Kind, shared.ErrScan) {
			records = append(records, NewErrorRecord(err))
		}
	}
	return records
}

// RunRecord is the serialized form of a [models.Run].
type RunRecord struct {
	ID         string           `json:"id"`
	Sequence   int              `json:"sequence"`
	Status     string           `json:"status"`
	Roots      []string         `json:"roots"`
	Workers    int              `json:"workers"`
	Converted  int              `json:"converted"`
	Failed     int              `json:"failed"`
	CreatedAt  time.Time        `json:"created_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Failures   []models.Failure `json:"failures,omitempty"`
}

// RunsToJSON renders run history as indented JSON.
func RunsToJSON(runs []*models.Run) ([]byte, error) {
	records := make([]RunRecord, 0, len(runs))
	for _, run := range runs {
		records = append(records, RunRecord{
			ID:         run.ID(),
			Sequence:   run.Sequence(),
			Status:     string(run.Status()),
			Roots:      run.Roots(),
			Workers:    run.Workers(),
			Converted:  run.Converted(),
			Failed:     run.Failed(),
			CreatedAt:  run.CreatedAt(),
			FinishedAt: run.FinishedAt(),
			Failures:   run.Failures(),
		})
	}
	return shared.MarshalJSON(records, true)
}

// RunsToText renders run history, one line per run, newest first as given.
func RunsToText(runs []*models.Run) []byte {
	var buf bytes.Buffer
	for _, run := range runs {
		buf.WriteString(fmt.Sprintf("#%d  %s  %-8s  converted=%d failed=%d  workers=%d  %s\n",
			run.Sequence(),
			run.CreatedAt().Local().Format(time.DateTime),
			run.Status(),
			run.Converted(),
			run.Failed(),
			run.Workers(),
			strings.Join(run.Roots(), ", "),
		))
	}
	return buf.Bytes()
}
