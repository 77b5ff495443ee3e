// Package report aggregates what one run did: the counters for the summary
// table, the error list deciding the exit code, and the optional JSON
// report file.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeTimedOut  Outcome = "timed-out"
	// OutcomeSkipped marks a run that ended before doing any work, for
	// example outside the backup window.
	OutcomeSkipped Outcome = "skipped"
)

// RunError is one failure attributed to a site and optionally a recording.
type RunError struct {
	Site      string `json:"site"`
	Recording int64  `json:"recording,omitempty"`
	Stage     string `json:"stage"`
	Err       string `json:"error"`
}

func (e RunError) String() string {
	if e.Recording != 0 {
		return fmt.Sprintf("%s/%d %s: %s", e.Site, e.Recording, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Site, e.Stage, e.Err)
}

// Report collects one run's outcome. The run loop is sequential, so the
// methods need no locking.
type Report struct {
	RunID     string    `json:"runId"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Outcome   Outcome   `json:"outcome"`
	DryRun    bool      `json:"dryRun,omitempty"`

	Sites         int `json:"sites"`
	SitesFailed   int `json:"sitesFailed"`
	Recordings    int `json:"recordings"`
	FoldersMade   int `json:"foldersCreated"`
	Renames       int `json:"renames"`
	LegacySkips   int `json:"legacySkips"`
	Transfers     int `json:"transfers"`
	PartialsSwept int `json:"partialsSwept"`
	Mirrored      int `json:"mirrored"`

	Errors   []RunError `json:"errors,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

// New starts a report for the run identified by runID.
func New(runID string, start time.Time) *Report {
	return &Report{RunID: runID, StartedAt: start.UTC()}
}

// AddError records a failure. recording may be 0 for site-level failures.
func (r *Report) AddError(site string, recording int64, stage string, err error) {
	r.Errors = append(r.Errors, RunError{Site: site, Recording: recording, Stage: stage, Err: err.Error()})
}

// Warnf records a non-fatal observation for the summary.
func (r *Report) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Finish seals the report.
func (r *Report) Finish(outcome Outcome, end time.Time) {
	r.Outcome = outcome
	r.EndedAt = end.UTC()
}

// Failed reports whether the run must exit non-zero.
func (r *Report) Failed() bool {
	return len(r.Errors) > 0
}

func (r *Report) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// Summary renders the run for humans.
func (r *Report) Summary() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("run " + r.RunID)
	t.AppendRows([]table.Row{
		{"outcome", string(r.Outcome)},
		{"started", r.StartedAt.Format(time.RFC3339)},
		{"ended", r.EndedAt.Format(time.RFC3339)},
		{"duration", r.Duration().Round(time.Second).String()},
		{"sites", fmt.Sprintf("%d ok, %d failed", r.Sites-r.SitesFailed, r.SitesFailed)},
		{"recordings", r.Recordings},
		{"folders created", r.FoldersMade},
		{"renames", r.Renames},
		{"legacy skips", r.LegacySkips},
		{"transfers", r.Transfers},
		{"partials swept", r.PartialsSwept},
	})
	if r.Mirrored > 0 {
		t.AppendRow(table.Row{"mirrored", r.Mirrored})
	}
	if len(r.Errors) > 0 {
		t.AppendSeparator()
		for _, e := range r.Errors {
			t.AppendRow(table.Row{"error", e.String()})
		}
	}
	if len(r.Warnings) > 0 {
		t.AppendSeparator()
		for _, w := range r.Warnings {
			t.AppendRow(table.Row{"warning", w})
		}
	}
	return t.Render()
}

// WriteFile drops the report as indented JSON at path.
func (r *Report) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.WriteFile(path, append(body, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
