// Package resolve turns a symbolic organization plan into concrete,
// collision-free destination paths under a root directory.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tomclarke/orgman/internal/catalog"
	"github.com/tomclarke/orgman/internal/logging"
	"github.com/tomclarke/orgman/internal/plan"
)

// suffixTimeFormat is the fixed timestamp format used for collision suffixes.
const suffixTimeFormat = "20060102-150405"

// maxCollisionRetries bounds the counter-based escalation after the
// timestamp and identifier suffixes both collide.
const maxCollisionRetries = 100

// ResolvedFile is one file with its final destination.
type ResolvedFile struct {
	FileID  int64
	Source  string
	Dest    string
	Renamed bool   // Destination base name differs from the source's
	Reason  string // Rename reason from the plan, if any
	Error   string // Per-item resolution failure (unresolvable collision)
}

// TagTarget carries the tag set to apply to one path after moves complete.
type TagTarget struct {
	FileID int64
	Path   string
	Tags   []string
}

// ResolvedPlan is the executable form of a plan: directories in creation
// order, file moves, and tag applications, all with concrete paths.
type ResolvedPlan struct {
	Root          string
	ResolvedAt    time.Time
	Dirs          []string // Pre-order: parents before children
	Files         []ResolvedFile
	Tags          []TagTarget
	AlreadyPlaced int // Files whose destination already holds them
	Unresolvable  int // Files abandoned after the collision retry bound
}

// Resolver computes destination paths against current filesystem state.
// The suffix timestamp is fixed at construction so identical inputs resolve
// identically within one run.
type Resolver struct {
	now time.Time
}

// NewResolver creates a resolver stamped with the current time.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now()}
}

// NewResolverAt creates a resolver with a fixed suffix timestamp.
func NewResolverAt(ts time.Time) *Resolver {
	return &Resolver{now: ts}
}

// Resolve computes collision-free destinations for every folder and file in
// the plan. Fatal errors (unwritable root, containment violation) mean
// nothing may execute; per-file collision exhaustion is recorded on the item
// and does not fail the resolution.
func (r *Resolver) Resolve(p *plan.Plan, cat *catalog.Catalog, root string) (*ResolvedPlan, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &ResolutionError{Op: "resolve root", Path: root, Err: err}
	}
	if err := checkWritableDir(absRoot); err != nil {
		return nil, err
	}

	resolved := &ResolvedPlan{Root: absRoot, ResolvedAt: r.now}
	claimed := make(map[string]bool)
	dirPaths := make(map[int]string, len(p.Nodes))
	finalPath := make(map[int64]string)

	var fatal error
	p.Walk(func(idx, depth int) {
		if fatal != nil {
			return
		}
		node := p.Nodes[idx]

		parent := absRoot
		if parentIdx, ok := parentOf(p, idx); ok {
			parent = dirPaths[parentIdx]
		}

		dirPath, err := r.placeDir(parent, node.Name, claimed)
		if err != nil {
			fatal = err
			return
		}
		if !within(absRoot, dirPath) {
			fatal = &ResolutionError{Op: "resolve folder", Path: dirPath, Err: ErrPathEscape}
			return
		}
		dirPaths[idx] = dirPath
		claimed[dirPath] = true
		resolved.Dirs = append(resolved.Dirs, dirPath)

		for _, fileID := range node.Files {
			rec, ok := cat.ByID(fileID)
			if !ok {
				continue
			}

			name := rec.Name
			reason := ""
			if rename, ok := p.Renames[fileID]; ok {
				name = sanitizeName(rename.NewName)
				if filepath.Ext(name) == "" {
					// Keep the original extension when the suggestion omits it.
					name += rec.Ext
				}
				reason = rename.Reason
			} else {
				name = sanitizeName(name)
			}

			dest := filepath.Join(dirPath, name)
			if !within(absRoot, dest) {
				fatal = &ResolutionError{Op: "resolve file", Path: dest, Err: ErrPathEscape}
				return
			}

			final, status := r.placeFile(dest, rec, claimed)
			switch status {
			case placeAlready:
				resolved.AlreadyPlaced++
				claimed[final] = true
				finalPath[fileID] = final
			case placeFailed:
				resolved.Unresolvable++
				resolved.Files = append(resolved.Files, ResolvedFile{
					FileID: fileID,
					Source: rec.Path,
					Error:  "no collision-free destination within retry bound",
				})
			default:
				claimed[final] = true
				finalPath[fileID] = final
				resolved.Files = append(resolved.Files, ResolvedFile{
					FileID:  fileID,
					Source:  rec.Path,
					Dest:    final,
					Renamed: filepath.Base(final) != rec.Name,
					Reason:  reason,
				})
			}
		}
	})
	if fatal != nil {
		return nil, fatal
	}

	// Tags are applied at each file's final location; files the plan left in
	// place are tagged where they are.
	for _, mapping := range sortedTagMappings(p) {
		path, ok := finalPath[mapping.FileID]
		if !ok {
			rec, found := cat.ByID(mapping.FileID)
			if !found {
				continue
			}
			path = rec.Path
		}
		resolved.Tags = append(resolved.Tags, TagTarget{
			FileID: mapping.FileID,
			Path:   path,
			Tags:   mapping.Tags,
		})
	}

	logging.Debug("plan resolved",
		"root", absRoot,
		"dirs", len(resolved.Dirs),
		"files", len(resolved.Files),
		"already_placed", resolved.AlreadyPlaced,
		"unresolvable", resolved.Unresolvable)

	return resolved, nil
}

type placeStatus int

const (
	placeOK placeStatus = iota
	placeAlready
	placeFailed
)

// placeDir finds a usable directory path, suffixing on collision with an
// existing file or an earlier plan entry. An existing directory is reused.
func (r *Resolver) placeDir(parent, name string, claimed map[string]bool) (string, error) {
	base := filepath.Join(parent, sanitizeName(name))
	ts := r.now.Format(suffixTimeFormat)

	candidates := []string{
		base,
		fmt.Sprintf("%s (%s)", base, ts),
	}
	for i := 1; i <= maxCollisionRetries; i++ {
		candidates = append(candidates, fmt.Sprintf("%s (%s-%d)", base, ts, i))
	}

	for _, c := range candidates {
		if claimed[c] {
			continue
		}
		info, err := os.Stat(c)
		if err == nil && !info.IsDir() {
			continue
		}
		return c, nil
	}
	return "", &ResolutionError{Op: "resolve folder", Path: base,
		Err: fmt.Errorf("no collision-free directory name within retry bound")}
}

// placeFile applies the collision policy: use the destination as-is, skip
// when it already holds the source file, otherwise retry with the timestamp
// suffix, the file-identifier escalation, and finally a bounded counter.
func (r *Resolver) placeFile(dest string, rec catalog.FileRecord, claimed map[string]bool) (string, placeStatus) {
	ts := r.now.Format(suffixTimeFormat)

	candidates := []string{
		dest,
		withFileSuffix(dest, ts),
		withFileSuffix(dest, fmt.Sprintf("%s-%d", ts, rec.ID)),
	}
	for i := 1; i <= maxCollisionRetries; i++ {
		candidates = append(candidates, withFileSuffix(dest, fmt.Sprintf("%s-%d-%d", ts, rec.ID, i)))
	}

	srcInfo, srcErr := os.Stat(rec.Path)

	for _, c := range candidates {
		if claimed[c] {
			continue
		}
		info, err := os.Stat(c)
		if err != nil {
			return c, placeOK
		}
		if srcErr == nil && os.SameFile(info, srcInfo) {
			return c, placeAlready
		}
	}
	return "", placeFailed
}

// withFileSuffix inserts a parenthesized suffix before the extension.
func withFileSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s (%s)%s", strings.TrimSuffix(path, ext), suffix, ext)
}

// checkWritableDir verifies the root exists, is a directory, and accepts
// writes. Failures here are fatal: nothing executes.
func checkWritableDir(root string) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return &ResolutionError{Op: "check root", Path: root, Err: ErrRootNotWritable}
	}
	probe, err := os.CreateTemp(root, ".orgman-probe-*")
	if err != nil {
		return &ResolutionError{Op: "check root", Path: root, Err: ErrRootNotWritable}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

// within reports whether path is contained in root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// parentOf finds the parent index of a node, or false for roots.
func parentOf(p *plan.Plan, idx int) (int, bool) {
	for i := range p.Nodes {
		for _, child := range p.Nodes[i].Children {
			if child == idx {
				return i, true
			}
		}
	}
	return 0, false
}

// sortedTagMappings returns tag mappings in stable file-ID order so tag
// application order is deterministic across runs.
func sortedTagMappings(p *plan.Plan) []plan.TagMapping {
	mappings := make([]plan.TagMapping, 0, len(p.Tags))
	for _, m := range p.Tags {
		mappings = append(mappings, m)
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].FileID < mappings[j].FileID })
	return mappings
}
