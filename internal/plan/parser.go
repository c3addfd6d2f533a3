package plan

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tomclarke/orgman/internal/catalog"
	"github.com/tomclarke/orgman/internal/logging"
	"github.com/tomclarke/orgman/internal/metrics"
)

// rawFileEntry is one file reference inside a folder. The upstream schema
// allows either a bare filename string or an object carrying rename and tag
// suggestions, so decoding tries the variants in fixed order.
type rawFileEntry struct {
	Filename      string   `json:"filename"`
	SuggestedName string   `json:"suggested_name"`
	RenameReason  string   `json:"rename_reason"`
	Tags          []string `json:"tags"`
}

func (e *rawFileEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Filename = s
		return nil
	}

	type entryAlias rawFileEntry
	var a entryAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*e = rawFileEntry(a)
	return nil
}

// rawFolder mirrors the full upstream folder schema.
type rawFolder struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Reasoning    string         `json:"reasoning"`
	Subfolders   []rawFolder    `json:"subfolders"`
	Files        []rawFileEntry `json:"files"`
	SemanticTags []string       `json:"semantic_tags"`
	Confidence   *float64       `json:"confidence"`
}

// rawPlan mirrors the full upstream plan schema.
type rawPlan struct {
	Folders     []rawFolder `json:"folders"`
	Unorganized []struct {
		Filename string `json:"filename"`
		Reason   string `json:"reason"`
	} `json:"unorganized"`
	Notes string `json:"notes"`
}

// compactFolder mirrors the single-letter-key fallback schema used by
// context-constrained callers.
type compactFolder struct {
	Name  string   `json:"n"`
	Files []string `json:"files"`
}

type compactPlan struct {
	Folders []compactFolder `json:"f"`
}

// Parser converts raw model output into a Plan, resolving file references
// against a catalog snapshot.
type Parser struct {
	matcher *Matcher
	files   []catalog.FileRecord
}

// NewParser creates a parser over the given catalog snapshot.
func NewParser(files []catalog.FileRecord) *Parser {
	return &Parser{matcher: NewMatcher(files), files: files}
}

// Parse builds a Plan from raw model output. Decoding runs in stages: the
// full schema, then the compact schema, then regex-based partial extraction
// that salvages folders from truncated or invalid text. A decodable object
// that places nothing is an empty plan; ErrInvalidJSON is reserved for text
// with no recoverable object at all.
func (p *Parser) Parse(raw string) (*Plan, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		metrics.ParseOutcomes.WithLabelValues("failed").Inc()
		return nil, &ParseError{Op: "parse plan", Err: ErrEmptyResponse}
	}

	jsonText := extractJSON(trimmed)

	var full rawPlan
	decoded := false
	if jsonText != "" {
		if err := json.Unmarshal([]byte(jsonText), &full); err == nil {
			decoded = true
			if len(full.Folders) > 0 || len(full.Unorganized) > 0 {
				metrics.ParseOutcomes.WithLabelValues("full").Inc()
				return p.buildFromFull(&full), nil
			}
		}

		var compact compactPlan
		if err := json.Unmarshal([]byte(jsonText), &compact); err == nil && len(compact.Folders) > 0 {
			metrics.ParseOutcomes.WithLabelValues("compact").Inc()
			return p.buildFromCompact(&compact), nil
		}
	}

	// Salvage folder names and file lists from broken or unrecognized text.
	if partial := p.extractPartial(trimmed); partial != nil {
		logging.Warn("plan response malformed, recovered by partial extraction",
			"folders", len(partial.Roots))
		metrics.ParseOutcomes.WithLabelValues("partial").Inc()
		return partial, nil
	}

	// A decodable JSON object with no folders anywhere is a plan that leaves
	// everything in place, not a failure.
	if decoded {
		metrics.ParseOutcomes.WithLabelValues("full").Inc()
		return p.buildFromFull(&full), nil
	}

	metrics.ParseOutcomes.WithLabelValues("failed").Inc()
	return nil, &ParseError{Op: "parse plan", Err: ErrInvalidJSON}
}

// extractJSON strips markdown fences and any prose outside the outermost
// matching braces. Returns "" when no object boundary exists.
func extractJSON(s string) string {
	// Drop fence lines wherever they appear; the payload is what's between.
	if strings.Contains(s, "```") {
		var kept []string
		for _, line := range strings.Split(s, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		s = strings.Join(kept, "\n")
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func (p *Parser) buildFromFull(raw *rawPlan) *Plan {
	plan := NewPlan()
	plan.Notes = raw.Notes
	seen := make(map[int64]bool)

	var addFolder func(parent int, f rawFolder)
	addFolder = func(parent int, f rawFolder) {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			// Invariant: folder names are non-empty after trimming. Files from
			// a dropped folder are surfaced as unassigned, never lost.
			for _, entry := range f.Files {
				p.assignUnplaced(plan, seen, entry.Filename, "folder name missing")
			}
			for _, sub := range f.Subfolders {
				addFolder(parent, sub)
			}
			return
		}

		node := Node{
			Name:        name,
			Description: f.Description,
			Reasoning:   f.Reasoning,
		}
		if f.Confidence != nil {
			node.Confidence = clampConfidence(*f.Confidence)
		}
		for _, t := range f.SemanticTags {
			if t = strings.TrimSpace(t); t != "" {
				node.Tags = append(node.Tags, t)
			}
		}

		idx := plan.AddNode(parent, node)

		for _, entry := range f.Files {
			rec, ok := p.matcher.Resolve(entry.Filename)
			if !ok {
				plan.Unmatched = append(plan.Unmatched, entry.Filename)
				continue
			}
			if seen[rec.ID] {
				// A file placed twice keeps its first placement.
				continue
			}
			seen[rec.ID] = true
			plan.Nodes[idx].Files = append(plan.Nodes[idx].Files, rec.ID)

			if entry.SuggestedName != "" {
				plan.setRename(rec.ID, entry.SuggestedName, entry.RenameReason)
			}
			plan.addTags(rec.ID, entry.Tags)
		}

		for _, sub := range f.Subfolders {
			addFolder(idx, sub)
		}
	}

	for _, f := range raw.Folders {
		addFolder(-1, f)
	}

	for _, u := range raw.Unorganized {
		p.assignUnplaced(plan, seen, u.Filename, u.Reason)
	}

	p.countUnmatched(plan)
	return plan
}

func (p *Parser) buildFromCompact(raw *compactPlan) *Plan {
	plan := NewPlan()
	seen := make(map[int64]bool)

	for _, f := range raw.Folders {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			for _, fn := range f.Files {
				p.assignUnplaced(plan, seen, fn, "folder name missing")
			}
			continue
		}

		idx := plan.AddNode(-1, Node{Name: name})
		for _, fn := range f.Files {
			rec, ok := p.matcher.Resolve(fn)
			if !ok {
				plan.Unmatched = append(plan.Unmatched, fn)
				continue
			}
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			plan.Nodes[idx].Files = append(plan.Nodes[idx].Files, rec.ID)
		}
	}

	p.countUnmatched(plan)
	return plan
}

// assignUnplaced resolves a filename and records it as unassigned, or counts
// it as unmatched when it resolves to nothing.
func (p *Parser) assignUnplaced(plan *Plan, seen map[int64]bool, filename, reason string) {
	rec, ok := p.matcher.Resolve(filename)
	if !ok {
		if strings.TrimSpace(filename) != "" {
			plan.Unmatched = append(plan.Unmatched, filename)
		}
		return
	}
	if seen[rec.ID] {
		return
	}
	seen[rec.ID] = true
	plan.Unassigned = append(plan.Unassigned, UnassignedFile{FileID: rec.ID, Reason: reason})
}

func (p *Parser) countUnmatched(plan *Plan) {
	if n := len(plan.Unmatched); n > 0 {
		metrics.UnmatchedFilesTotal.Add(float64(n))
		logging.Debug("plan referenced unknown files", "count", n)
	}
}

var (
	folderNameRe = regexp.MustCompile(`"(?:name|n)"\s*:\s*("(?:[^"\\]|\\.)*")`)
	filesBlockRe = regexp.MustCompile(`"files"\s*:\s*\[([^\]]*)`)
	quotedRe     = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)
)

// extractPartial recovers folder names and file lists from truncated or
// otherwise undecodable text. Each files block is attached to the nearest
// preceding folder name. Catalog files mentioned anywhere in the text but not
// recovered into a folder become unassigned rather than silently dropped.
// Returns nil when no folder can be recovered.
func (p *Parser) extractPartial(raw string) *Plan {
	names := folderNameRe.FindAllStringSubmatchIndex(raw, -1)
	if len(names) == 0 {
		return nil
	}

	plan := NewPlan()
	seen := make(map[int64]bool)

	type folderAt struct {
		pos int
		idx int
	}
	var folders []folderAt

	for _, m := range names {
		name := unquoteJSON(raw[m[2]:m[3]])
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		idx := plan.AddNode(-1, Node{Name: name})
		folders = append(folders, folderAt{pos: m[0], idx: idx})
	}
	if len(folders) == 0 {
		return nil
	}

	blocks := filesBlockRe.FindAllStringSubmatchIndex(raw, -1)
	for _, b := range blocks {
		// Owner is the closest folder name declared before this files block.
		owner := -1
		for _, f := range folders {
			if f.pos < b[0] {
				owner = f.idx
			}
		}
		if owner < 0 {
			continue
		}

		for _, q := range quotedRe.FindAllString(raw[b[2]:b[3]], -1) {
			fn := unquoteJSON(q)
			rec, ok := p.matcher.Resolve(fn)
			if !ok {
				plan.Unmatched = append(plan.Unmatched, fn)
				continue
			}
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			plan.Nodes[owner].Files = append(plan.Nodes[owner].Files, rec.ID)
		}
	}

	// Sweep for catalog files the broken text mentions outside any recovered
	// files block.
	mentioned := make(map[int64]bool)
	for _, q := range quotedRe.FindAllString(raw, -1) {
		if rec, ok := p.exactMatch(unquoteJSON(q)); ok {
			mentioned[rec.ID] = true
		}
	}
	var stranded []int64
	for id := range mentioned {
		if !seen[id] {
			stranded = append(stranded, id)
		}
	}
	sort.Slice(stranded, func(i, j int) bool { return stranded[i] < stranded[j] })
	for _, id := range stranded {
		plan.Unassigned = append(plan.Unassigned, UnassignedFile{
			FileID: id,
			Reason: "recovered from partial response",
		})
	}

	p.countUnmatched(plan)
	return plan
}

// exactMatch is the strict tier only, used by the partial-extraction sweep
// where loose matching would misfire on arbitrary quoted prose.
func (p *Parser) exactMatch(name string) (catalog.FileRecord, bool) {
	for _, f := range p.files {
		if f.Name == name {
			return f, true
		}
	}
	return catalog.FileRecord{}, false
}

// unquoteJSON decodes one quoted JSON string token, falling back to trimming
// the quotes when the token is malformed.
func unquoteJSON(token string) string {
	if s, err := strconv.Unquote(token); err == nil {
		return s
	}
	return strings.Trim(token, `"`)
}
