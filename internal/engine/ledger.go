// Package engine applies resolved plans to the filesystem and reverses them.
// Every completed primitive is recorded in an append-only ledger so a run can
// be undone exactly, even after a partial failure or cancellation.
package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionKind identifies a primitive filesystem action.
type ActionKind string

const (
	ActionCreateDir ActionKind = "create_dir"
	ActionMove      ActionKind = "move"
	ActionRename    ActionKind = "rename"
	ActionApplyTags ActionKind = "apply_tags"
)

// Action is one completed primitive. Each action carries everything needed
// to reverse it without the plan that produced it.
type Action struct {
	Kind ActionKind `json:"kind"`
	Path string     `json:"path,omitempty"` // create_dir, apply_tags
	From string     `json:"from,omitempty"` // move, rename
	To   string     `json:"to,omitempty"`   // move, rename
	Tags []string   `json:"tags,omitempty"` // apply_tags: exactly the tags applied
}

// Ledger is the ordered record of primitive actions from one apply run.
// Written once by the executor; consumed at most once by undo.
type Ledger struct {
	RunID     string    `json:"run_id"`
	Root      string    `json:"root"`
	StartedAt time.Time `json:"started_at"`
	Actions   []Action  `json:"actions"`
	Undone    bool      `json:"undone"`
}

// NewLedger creates an empty ledger for a run against the given root.
func NewLedger(root string) *Ledger {
	return &Ledger{
		RunID:     uuid.NewString(),
		Root:      root,
		StartedAt: time.Now(),
	}
}

// Append records a completed action.
func (l *Ledger) Append(a Action) {
	l.Actions = append(l.Actions, a)
}

// MarshalLedger serializes a ledger for persistence.
func MarshalLedger(l *Ledger) ([]byte, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger: %w", err)
	}
	return data, nil
}

// UnmarshalLedger restores a persisted ledger.
func UnmarshalLedger(data []byte) (*Ledger, error) {
	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	return &l, nil
}
