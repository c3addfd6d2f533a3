package engine

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tomclarke/orgman/internal/logging"
	"github.com/tomclarke/orgman/internal/metrics"
	"github.com/tomclarke/orgman/internal/resolve"
	"github.com/tomclarke/orgman/internal/tracing"
)

// Status is the final outcome of an apply run.
type Status string

const (
	StatusRunning             Status = "running"
	StatusCompleted           Status = "completed"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusFailed              Status = "failed"
	StatusCancelled           Status = "cancelled"
	StatusUndone              Status = "undone"
)

// TagStore persists tag metadata for files. Tag application goes through the
// store rather than the filesystem so undo can remove exactly what one run
// applied. Apply returns the subset of tags that were newly recorded; tags
// already present belong to whoever applied them first.
type TagStore interface {
	Apply(ctx context.Context, path string, tags []string, runID string) ([]string, error)
	Remove(ctx context.Context, path string, tags []string) (int, error)
	Rename(ctx context.Context, oldPath, newPath string) error
}

// SkippedItem records a per-item failure that did not abort the run.
type SkippedItem struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// RunReport summarizes an apply run.
type RunReport struct {
	Status  Status
	Created int
	Moved   int
	Renamed int
	Tagged  int
	Skipped []SkippedItem
}

// LedgerSink receives the ledger after every appended action, so persisted
// state always reflects exactly the completed prefix.
type LedgerSink func(*Ledger) error

// Executor applies a resolved plan under single-writer discipline: the
// caller must serialize runs per root.
type Executor struct {
	tags TagStore
	sink LedgerSink
}

// NewExecutor creates an executor. tags may be nil when tag persistence is
// disabled; sink may be nil when incremental ledger persistence is not needed.
func NewExecutor(tags TagStore, sink LedgerSink) *Executor {
	return &Executor{tags: tags, sink: sink}
}

// Apply executes a resolved plan: directories first, then moves and renames,
// then tag application last as the least destructive phase. One item's
// failure is recorded and execution continues; earlier successes are never
// rolled back. Cancellation is honored only between primitives.
func (e *Executor) Apply(ctx context.Context, resolved *resolve.ResolvedPlan) (*Ledger, *RunReport) {
	ctx, span := tracing.StartSpan(ctx, "engine.Apply",
		tracing.WithAttributes(
			attribute.String("run.root", resolved.Root),
			attribute.Int("plan.dirs", len(resolved.Dirs)),
			attribute.Int("plan.files", len(resolved.Files)),
		),
	)
	defer span.End()

	ledger := NewLedger(resolved.Root)
	report := &RunReport{Status: StatusCompleted}

	// Unresolvable files never reached a destination; they are skipped items
	// from the start.
	for _, f := range resolved.Files {
		if f.Error != "" {
			report.skip(f.Source, f.Error)
		}
	}

	cancelled := false

	// Phase 1: directories, parents before children.
	for _, dir := range resolved.Dirs {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			// Pre-existing directories are not ours to undo.
			continue
		}
		if err := os.Mkdir(dir, 0o755); err != nil {
			if os.IsExist(err) {
				continue
			}
			report.skip(dir, fmt.Sprintf("failed to create directory: %v", err))
			continue
		}
		report.Created++
		e.record(ledger, Action{Kind: ActionCreateDir, Path: dir})
	}

	// Phase 2: moves and renames.
	if !cancelled {
		for _, f := range resolved.Files {
			if f.Error != "" {
				continue
			}
			if ctx.Err() != nil {
				cancelled = true
				break
			}

			if _, err := os.Stat(f.Source); err != nil {
				report.skip(f.Source, "source missing")
				continue
			}
			if _, err := os.Stat(f.Dest); err == nil {
				// The filesystem changed underneath us since resolution.
				report.skip(f.Source, fmt.Sprintf("destination conflict: %s exists", f.Dest))
				continue
			}

			if err := moveFile(f.Source, f.Dest); err != nil {
				report.skip(f.Source, err.Error())
				continue
			}

			kind := ActionMove
			if f.Renamed {
				kind = ActionRename
				report.Renamed++
			} else {
				report.Moved++
			}
			e.record(ledger, Action{Kind: kind, From: f.Source, To: f.Dest})

			// Tags applied in earlier runs follow the file.
			if e.tags != nil {
				if err := e.tags.Rename(ctx, f.Source, f.Dest); err != nil {
					logging.Warn("failed to carry tags across move", "path", f.Dest, "error", err)
				}
			}
		}
	}

	// Phase 3: tag application, safest to retry and therefore last.
	if !cancelled && e.tags != nil {
		for _, target := range resolved.Tags {
			if ctx.Err() != nil {
				cancelled = true
				break
			}
			if _, err := os.Stat(target.Path); err != nil {
				report.skip(target.Path, "tag target missing")
				continue
			}
			applied, err := e.tags.Apply(ctx, target.Path, target.Tags, ledger.RunID)
			if err != nil {
				report.skip(target.Path, fmt.Sprintf("failed to apply tags: %v", err))
				continue
			}
			if len(applied) == 0 {
				// Every requested tag was already present; this run owns none
				// of them, so there is nothing to ledger or undo.
				continue
			}
			report.Tagged++
			e.record(ledger, Action{Kind: ActionApplyTags, Path: target.Path, Tags: applied})
		}
	}

	switch {
	case cancelled:
		report.Status = StatusCancelled
	case len(report.Skipped) > 0:
		report.Status = StatusCompletedWithErrors
	}

	metrics.RunsTotal.WithLabelValues(string(report.Status)).Inc()
	tracing.AddSpanAttributes(span,
		attribute.String("run.status", string(report.Status)),
		attribute.Int("run.actions", len(ledger.Actions)),
		attribute.Int("run.skipped", len(report.Skipped)),
	)
	logging.Info("apply finished",
		"root", resolved.Root,
		"status", report.Status,
		"actions", len(ledger.Actions),
		"skipped", len(report.Skipped))

	return ledger, report
}

// record appends to the ledger and flushes it to the sink before the next
// primitive begins.
func (e *Executor) record(ledger *Ledger, a Action) {
	ledger.Append(a)
	metrics.ActionsTotal.WithLabelValues(string(a.Kind)).Inc()
	if e.sink != nil {
		if err := e.sink(ledger); err != nil {
			logging.Warn("failed to persist ledger", "run_id", ledger.RunID, "error", err)
		}
	}
}

func (r *RunReport) skip(path, msg string) {
	r.Skipped = append(r.Skipped, SkippedItem{Path: path, Error: msg})
	metrics.SkippedFilesTotal.Inc()
}
