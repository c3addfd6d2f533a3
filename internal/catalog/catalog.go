// Package catalog provides the immutable per-scan file inventory that
// organization plans are resolved against.
package catalog

import (
	"path/filepath"
	"strings"
	"time"
)

// FileRecord is a snapshot of one file's metadata at scan time.
// Records are immutable; the organizer core only reads them.
type FileRecord struct {
	ID        int64
	Path      string // Absolute path at scan time
	Name      string // Base name including extension
	Ext       string // Extension with leading dot, lowercased
	Size      int64
	ModTime   time.Time
	CreatedAt time.Time

	// Optional content metadata, populated when hashing/preview is enabled.
	SHA256      string
	Preview     string
	ImageWidth  int
	ImageHeight int
}

// BaseName returns the file name without its extension.
func (r FileRecord) BaseName() string {
	return strings.TrimSuffix(r.Name, filepath.Ext(r.Name))
}

// Catalog is an ordered set of FileRecords from a single scan.
type Catalog struct {
	Root    string
	Files   []FileRecord
	Scanned time.Time
}

// ByName returns the first record whose base name matches exactly.
func (c *Catalog) ByName(name string) (FileRecord, bool) {
	for _, f := range c.Files {
		if f.Name == name {
			return f, true
		}
	}
	return FileRecord{}, false
}

// ByID returns the record with the given identifier.
func (c *Catalog) ByID(id int64) (FileRecord, bool) {
	for _, f := range c.Files {
		if f.ID == id {
			return f, true
		}
	}
	return FileRecord{}, false
}
