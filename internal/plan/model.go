// Package plan holds the in-memory organization plan model and the parser
// that builds one from raw model output.
package plan

// Node is one suggested folder. Nodes live in the plan's arena and refer to
// their children by index, which keeps the tree acyclic and trivially
// serializable.
type Node struct {
	Name        string
	Description string
	Reasoning   string
	Children    []int   // Indexes into Plan.Nodes
	Files       []int64 // Catalog file IDs placed in this folder
	Tags        []string
	Confidence  float64 // Clamped to [0,1]
}

// RenameMapping suggests a new base name for one file. A plan carries at most
// one mapping per file.
type RenameMapping struct {
	FileID  int64
	NewName string // Suggested base name, may include extension
	Reason  string
}

// TagMapping assigns an ordered, deduplicated tag set to one file.
type TagMapping struct {
	FileID int64
	Tags   []string
}

// UnassignedFile is a file the plan explicitly left unplaced.
type UnassignedFile struct {
	FileID int64
	Reason string
}

// Plan is a parsed organization plan: a forest of folder suggestions plus
// per-file rename and tag mappings. Built once per model response and
// immutable afterward.
type Plan struct {
	Nodes         []Node
	Roots         []int
	Renames       map[int64]RenameMapping
	Tags          map[int64]TagMapping
	Unassigned    []UnassignedFile
	Notes         string
	SchemaVersion int

	// Referenced names that matched no catalog entry. Counted, never invented.
	Unmatched []string
}

// NewPlan returns an empty plan at the current schema version.
func NewPlan() *Plan {
	return &Plan{
		Renames:       make(map[int64]RenameMapping),
		Tags:          make(map[int64]TagMapping),
		SchemaVersion: 1,
	}
}

// AddNode appends a node to the arena and links it under parent.
// A negative parent adds a root. Returns the new node's index.
func (p *Plan) AddNode(parent int, n Node) int {
	idx := len(p.Nodes)
	p.Nodes = append(p.Nodes, n)
	if parent < 0 {
		p.Roots = append(p.Roots, idx)
	} else {
		p.Nodes[parent].Children = append(p.Nodes[parent].Children, idx)
	}
	return idx
}

// Walk visits every node in stable pre-order: each root, then its subtree,
// depth-first in child order. The callback receives the node index and depth.
func (p *Plan) Walk(fn func(idx, depth int)) {
	var visit func(idx, depth int)
	visit = func(idx, depth int) {
		fn(idx, depth)
		for _, child := range p.Nodes[idx].Children {
			visit(child, depth+1)
		}
	}
	for _, root := range p.Roots {
		visit(root, 0)
	}
}

// FileCount returns the number of file placements across all folders.
func (p *Plan) FileCount() int {
	count := 0
	for _, n := range p.Nodes {
		count += len(n.Files)
	}
	return count
}

// FolderCount returns the total number of folders in the plan.
func (p *Plan) FolderCount() int {
	return len(p.Nodes)
}

// setRename records a rename suggestion, keeping only the first per file.
func (p *Plan) setRename(id int64, newName, reason string) {
	if newName == "" {
		return
	}
	if _, exists := p.Renames[id]; exists {
		return
	}
	p.Renames[id] = RenameMapping{FileID: id, NewName: newName, Reason: reason}
}

// addTags merges tags for a file, preserving first-seen order and dropping
// duplicates and blanks.
func (p *Plan) addTags(id int64, tags []string) {
	if len(tags) == 0 {
		return
	}
	existing := p.Tags[id]
	seen := make(map[string]bool, len(existing.Tags))
	for _, t := range existing.Tags {
		seen[t] = true
	}
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		existing.Tags = append(existing.Tags, t)
	}
	if len(existing.Tags) == 0 {
		return
	}
	existing.FileID = id
	p.Tags[id] = existing
}

// clampConfidence forces a confidence score into [0,1].
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
