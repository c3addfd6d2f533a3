package engine

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tomclarke/orgman/internal/logging"
	"github.com/tomclarke/orgman/internal/metrics"
	"github.com/tomclarke/orgman/internal/tracing"
)

// UndoOutcome is the per-action result of a reversal attempt.
type UndoOutcome string

const (
	OutcomeReversed        UndoOutcome = "reversed"
	OutcomeConflict        UndoOutcome = "conflict"
	OutcomeAlreadyReversed UndoOutcome = "already_reversed"
)

// UndoItem is the outcome of reversing one ledger action.
type UndoItem struct {
	Action  Action
	Outcome UndoOutcome
	Error   string
}

// UndoReport summarizes an undo pass.
type UndoReport struct {
	Items           []UndoItem
	Reversed        int
	Conflicts       int
	AlreadyReversed int
}

// Clean reports whether every action reversed without conflict.
func (r *UndoReport) Clean() bool {
	return r.Conflicts == 0
}

// Undoer reverses ledgers. Like apply, undo runs under single-writer
// discipline per root.
type Undoer struct {
	tags TagStore
}

// NewUndoer creates an undo engine.
func NewUndoer(tags TagStore) *Undoer {
	return &Undoer{tags: tags}
}

// Undo replays the ledger in reverse. Undo is not all-or-nothing: a conflict
// on one action is recorded and the rest still reverse. Replaying a fully
// reversed ledger is a no-op, not an error.
func (u *Undoer) Undo(ctx context.Context, ledger *Ledger) *UndoReport {
	ctx, span := tracing.StartSpan(ctx, "engine.Undo",
		tracing.WithAttributes(
			attribute.String("run.id", ledger.RunID),
			attribute.Int("ledger.actions", len(ledger.Actions)),
		),
	)
	defer span.End()

	report := &UndoReport{}

	for i := len(ledger.Actions) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			break
		}
		action := ledger.Actions[i]

		var item UndoItem
		switch action.Kind {
		case ActionMove, ActionRename:
			item = u.undoMove(ctx, action)
		case ActionCreateDir:
			item = u.undoCreateDir(action)
		case ActionApplyTags:
			item = u.undoTags(ctx, action)
		default:
			item = UndoItem{Action: action, Outcome: OutcomeConflict,
				Error: fmt.Sprintf("unknown action kind %q", action.Kind)}
		}

		report.add(item)
	}

	tracing.AddSpanAttributes(span,
		attribute.Int("undo.reversed", report.Reversed),
		attribute.Int("undo.conflicts", report.Conflicts),
	)
	logging.Info("undo finished",
		"run_id", ledger.RunID,
		"reversed", report.Reversed,
		"conflicts", report.Conflicts,
		"already_reversed", report.AlreadyReversed)

	return report
}

// undoMove puts a moved or renamed file back, refusing when the filesystem
// has drifted: the destination gone with nothing at the source, or the
// original source path occupied by something else.
func (u *Undoer) undoMove(ctx context.Context, action Action) UndoItem {
	item := UndoItem{Action: action}

	destInfo, destErr := os.Stat(action.To)
	if destErr != nil {
		if _, srcErr := os.Stat(action.From); srcErr == nil {
			item.Outcome = OutcomeAlreadyReversed
		} else {
			item.Outcome = OutcomeConflict
			item.Error = fmt.Sprintf("%s no longer exists", action.To)
		}
		return item
	}

	if srcInfo, srcErr := os.Stat(action.From); srcErr == nil {
		if os.SameFile(srcInfo, destInfo) {
			item.Outcome = OutcomeAlreadyReversed
			return item
		}
		item.Outcome = OutcomeConflict
		item.Error = fmt.Sprintf("%s is now occupied", action.From)
		return item
	}

	if err := moveFile(action.To, action.From); err != nil {
		item.Outcome = OutcomeConflict
		item.Error = err.Error()
		return item
	}
	if u.tags != nil {
		if err := u.tags.Rename(ctx, action.To, action.From); err != nil {
			logging.Warn("failed to carry tags across undo", "path", action.From, "error", err)
		}
	}

	item.Outcome = OutcomeReversed
	return item
}

// undoCreateDir removes a directory this run created, but only when empty.
// Never a forced recursive delete.
func (u *Undoer) undoCreateDir(action Action) UndoItem {
	item := UndoItem{Action: action}

	info, err := os.Stat(action.Path)
	if err != nil {
		item.Outcome = OutcomeAlreadyReversed
		return item
	}
	if !info.IsDir() {
		item.Outcome = OutcomeConflict
		item.Error = fmt.Sprintf("%s is no longer a directory", action.Path)
		return item
	}

	entries, err := os.ReadDir(action.Path)
	if err != nil {
		item.Outcome = OutcomeConflict
		item.Error = err.Error()
		return item
	}
	if len(entries) > 0 {
		item.Outcome = OutcomeConflict
		item.Error = "directory not empty"
		return item
	}

	if err := os.Remove(action.Path); err != nil {
		item.Outcome = OutcomeConflict
		item.Error = err.Error()
		return item
	}

	item.Outcome = OutcomeReversed
	return item
}

// undoTags clears exactly the recorded tags, leaving any tags added outside
// this run untouched.
func (u *Undoer) undoTags(ctx context.Context, action Action) UndoItem {
	item := UndoItem{Action: action}

	if u.tags == nil {
		item.Outcome = OutcomeAlreadyReversed
		return item
	}

	removed, err := u.tags.Remove(ctx, action.Path, action.Tags)
	if err != nil {
		item.Outcome = OutcomeConflict
		item.Error = err.Error()
		return item
	}
	if removed == 0 {
		item.Outcome = OutcomeAlreadyReversed
		return item
	}

	item.Outcome = OutcomeReversed
	return item
}

func (r *UndoReport) add(item UndoItem) {
	r.Items = append(r.Items, item)
	metrics.UndoActionsTotal.WithLabelValues(string(item.Outcome)).Inc()
	switch item.Outcome {
	case OutcomeReversed:
		r.Reversed++
	case OutcomeConflict:
		r.Conflicts++
	case OutcomeAlreadyReversed:
		r.AlreadyReversed++
	}
}
