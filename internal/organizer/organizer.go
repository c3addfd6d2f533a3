// Package organizer ties scanning, plan parsing, resolution, execution, and
// history together behind one facade. All mutation of a root goes through a
// Service, which serializes runs per root.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tomclarke/orgman/internal/catalog"
	"github.com/tomclarke/orgman/internal/db"
	"github.com/tomclarke/orgman/internal/engine"
	"github.com/tomclarke/orgman/internal/logging"
	"github.com/tomclarke/orgman/internal/metrics"
	"github.com/tomclarke/orgman/internal/plan"
	"github.com/tomclarke/orgman/internal/resolve"
	"github.com/tomclarke/orgman/internal/tracing"
)

// ErrAlreadyUndone is returned when undo is requested for a run whose ledger
// has already been replayed.
var ErrAlreadyUndone = errors.New("run already undone")

// ErrNoLedger is returned when undo is requested for a run that recorded no
// actions.
var ErrNoLedger = errors.New("run has no recorded actions")

// Scanner enumerates the files of a directory into a catalog.
type Scanner interface {
	Scan(ctx context.Context, root string) (*catalog.Catalog, error)
}

// ModelClient produces a raw organization plan for a catalog. The text it
// returns is parsed leniently; it does not have to be valid JSON end to end.
type ModelClient interface {
	ProposePlan(ctx context.Context, cat *catalog.Catalog) (string, error)
}

// Service is the organize facade. It owns the history store and enforces
// single-writer discipline per root directory.
type Service struct {
	store *db.DB
	locks rootLocks
}

// NewService creates a service backed by the given store.
func NewService(store *db.DB) *Service {
	return &Service{store: store}
}

// Organize parses a raw model response against the cataloged files, resolves
// it into concrete paths under root, and applies it. A history entry is
// persisted incrementally during execution so a crash never loses the
// completed prefix of the run.
//
// Parse failures return an error without touching the filesystem or history.
// Resolution failures are fatal but recorded as a failed history entry.
func (s *Service) Organize(ctx context.Context, root string, files []catalog.FileRecord, rawText string) (*db.HistoryEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "organizer.Organize",
		tracing.WithAttributes(
			attribute.String("run.root", root),
			attribute.Int("catalog.files", len(files)),
		),
	)
	defer span.End()

	start := time.Now()
	defer metrics.RecordOrganizeDuration(start)

	log := logging.With("root", root)

	pl, err := plan.NewParser(files).Parse(rawText)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	log.Info("plan parsed",
		"folders", pl.FolderCount(),
		"files", pl.FileCount(),
		"unassigned", len(pl.Unassigned),
		"unmatched", len(pl.Unmatched))

	unlock := s.locks.lock(root)
	defer unlock()

	// A fresh resolver per run so collision suffixes carry this run's
	// timestamp.
	cat := &catalog.Catalog{Root: root, Files: files, Scanned: time.Now()}
	resolved, err := resolve.NewResolver().Resolve(pl, cat, root)
	if err != nil {
		tracing.RecordError(span, err)
		entry := &db.HistoryEntry{
			RunID:     uuid.NewString(),
			RootPath:  root,
			Status:    engine.StatusFailed,
			ErrorText: err.Error(),
		}
		if createErr := s.store.CreateHistoryEntry(ctx, entry); createErr != nil {
			log.Error("failed to record failed run", "error", createErr)
		}
		metrics.RunsTotal.WithLabelValues(string(engine.StatusFailed)).Inc()
		return entry, fmt.Errorf("failed to resolve plan: %w", err)
	}

	entry := &db.HistoryEntry{RootPath: root, Status: engine.StatusRunning}
	sink := func(l *engine.Ledger) error {
		entry.Ledger = l
		if entry.ID == 0 {
			entry.RunID = l.RunID
			return s.store.CreateHistoryEntry(ctx, entry)
		}
		return s.store.UpdateHistoryEntry(ctx, entry)
	}

	executor := engine.NewExecutor(s.store, sink)
	ledger, report := executor.Apply(ctx, resolved)

	entry.RunID = ledger.RunID
	entry.Ledger = ledger
	entry.Status = report.Status
	entry.Created = report.Created
	entry.Moved = report.Moved
	entry.Renamed = report.Renamed
	entry.Tagged = report.Tagged
	entry.Skipped = len(report.Skipped)
	entry.ErrorText = summarizeSkipped(report.Skipped)

	if entry.ID == 0 {
		err = s.store.CreateHistoryEntry(ctx, entry)
	} else {
		err = s.store.UpdateHistoryEntry(ctx, entry)
	}
	if err != nil {
		return entry, fmt.Errorf("failed to persist history entry: %w", err)
	}

	if err := metrics.UpdateDBMetrics(s.store.Conn()); err != nil {
		logging.Warn("failed to update store metrics", "error", err)
	}

	return entry, nil
}

// Resolve runs parse and resolution without executing anything. Used for
// dry runs.
func (s *Service) Resolve(root string, files []catalog.FileRecord, rawText string) (*resolve.ResolvedPlan, error) {
	pl, err := plan.NewParser(files).Parse(rawText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	cat := &catalog.Catalog{Root: root, Files: files, Scanned: time.Now()}
	return resolve.NewResolver().Resolve(pl, cat, root)
}

// Undo reverses a run's ledger and marks the entry undone. The entry is
// marked undone even when some actions conflict; the conflicts are reported
// and will not be retried on a replay.
func (s *Service) Undo(ctx context.Context, entry *db.HistoryEntry) (*engine.UndoReport, error) {
	ctx, span := tracing.StartSpan(ctx, "organizer.Undo",
		tracing.WithAttributes(attribute.String("run.id", entry.RunID)),
	)
	defer span.End()

	if entry.Status == engine.StatusUndone {
		return nil, ErrAlreadyUndone
	}
	if entry.Ledger == nil || len(entry.Ledger.Actions) == 0 {
		return nil, ErrNoLedger
	}
	if entry.Ledger.Undone {
		return nil, ErrAlreadyUndone
	}

	unlock := s.locks.lock(entry.RootPath)
	defer unlock()

	report := engine.NewUndoer(s.store).Undo(ctx, entry.Ledger)

	entry.Ledger.Undone = true
	entry.Status = engine.StatusUndone
	if err := s.store.UpdateHistoryEntry(ctx, entry); err != nil {
		return report, fmt.Errorf("failed to persist undo: %w", err)
	}
	metrics.RunsTotal.WithLabelValues(string(engine.StatusUndone)).Inc()

	if err := metrics.UpdateDBMetrics(s.store.Conn()); err != nil {
		logging.Warn("failed to update store metrics", "error", err)
	}

	return report, nil
}

// summarizeSkipped flattens per-item failures into one line for the history
// row. Full details live in the run report.
func summarizeSkipped(skipped []engine.SkippedItem) string {
	if len(skipped) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(skipped))
	for _, item := range skipped {
		msgs = append(msgs, fmt.Sprintf("%s: %s", item.Path, item.Error))
	}
	return strings.Join(msgs, "; ")
}
