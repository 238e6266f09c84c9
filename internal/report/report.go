// Package report renders a decode session's outcome as durable
// artifacts: a JSON summary that round-trips exactly, a printable PDF
// for a human reviewer, and a QR code carrying the session's content
// fingerprint for pairing a printed report back to its source file.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/railsight/atpdecode/internal/record"
	"github.com/railsight/atpdecode/internal/ru"
)

// Finding is a single error event worth surfacing in a report, kept
// separate from the full event stream so the report stays readable
// even when a session produced thousands of errors of the same kind.
type Finding struct {
	Offset  int64  `json:"offset"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionReport is the durable summary of one decode session: enough
// to reconstruct the compact CLI summary line and to render a PDF or
// attach a fingerprint QR code, without retaining the full record
// stream.
type SessionReport struct {
	InputPath    string         `json:"input_path"`
	Fingerprint  string         `json:"fingerprint"`
	GeneratedAt  time.Time      `json:"generated_at"`
	Frames       int            `json:"frames"`
	Resyncs      int            `json:"resyncs"`
	BytesSkipped int            `json:"bytes_skipped_on_resync"`
	Telegrams    int            `json:"telegrams"`
	Evictions    int            `json:"evicted_incomplete"`
	ErrorsByKind map[string]int `json:"errors_by_kind"`
	Findings     []Finding      `json:"findings"`
}

// maxFindings bounds how many individual error events are carried into
// the report verbatim; beyond this the ErrorsByKind tally still
// accounts for every one, but listing them individually stops being
// useful to a reviewer.
const maxFindings = 200

// NewSessionReport builds a SessionReport from one decode session's
// summary counters and event stream.
func NewSessionReport(inputPath, fingerprint string, summary ru.Summary, events []record.Event) SessionReport {
	rep := SessionReport{
		InputPath:    inputPath,
		Fingerprint:  fingerprint,
		Frames:       summary.FramesDecoded,
		Resyncs:      summary.ResyncsPerformed,
		BytesSkipped: summary.BytesSkippedOnResync,
		Telegrams:    summary.TelegramsReassembled,
		Evictions:    summary.EvictedIncomplete,
		ErrorsByKind: make(map[string]int, len(summary.ErrorsByKind)),
	}
	for k, v := range summary.ErrorsByKind {
		rep.ErrorsByKind[k] = v
	}
	for _, ev := range events {
		if ev.Err == nil {
			continue
		}
		if len(rep.Findings) >= maxFindings {
			break
		}
		rep.Findings = append(rep.Findings, Finding{
			Offset:  ev.Offset,
			Kind:    fmt.Sprintf("%T", ev.Err),
			Message: ev.Err.Error(),
		})
	}
	return rep
}

// SaveSessionJSON writes rep to out as indented JSON.
func SaveSessionJSON(rep SessionReport, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

// LoadSessionJSON reads back a SessionReport previously written by
// SaveSessionJSON.
func LoadSessionJSON(path string) (SessionReport, error) {
	var rep SessionReport
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	err = json.Unmarshal(b, &rep)
	return rep, err
}
