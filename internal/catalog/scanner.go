package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/tomclarke/orgman/internal/logging"
)

// ScanConfig configures scanning behavior.
type ScanConfig struct {
	Workers  int  // Number of parallel hash workers (default: NumCPU)
	Parallel bool // Hash file contents in parallel
	Hash     bool // Compute SHA-256 content hashes
	Preview  bool // Read a short text preview for plan context
	MaxBytes int  // Per-file preview byte cap (default: 4096)
}

// DefaultScanConfig returns sensible defaults for scanning.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Workers:  runtime.NumCPU(),
		Parallel: true,
		Hash:     true,
		MaxBytes: 4096,
	}
}

// Scanner enumerates the direct children of a root directory into a Catalog.
// Only top-level files are organized; subdirectories are left alone.
type Scanner struct {
	config  ScanConfig
	exclude *ExcludeMatcher
}

// NewScanner creates a scanner with default config and no exclusions.
func NewScanner() *Scanner {
	return &Scanner{config: DefaultScanConfig()}
}

// NewScannerWithConfig creates a scanner with custom configuration.
func NewScannerWithConfig(config ScanConfig, exclude *ExcludeMatcher) *Scanner {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = 4096
	}
	return &Scanner{config: config, exclude: exclude}
}

// Scan builds a catalog of the files directly under root.
func (s *Scanner) Scan(ctx context.Context, root string) (*Catalog, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	cat := &Catalog{Root: absRoot, Scanned: time.Now()}

	var nextID int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || s.exclude.Matches(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logging.Warn("skipping unreadable entry", "name", name, "error", err)
			continue
		}

		nextID++
		cat.Files = append(cat.Files, FileRecord{
			ID:        nextID,
			Path:      filepath.Join(absRoot, name),
			Name:      name,
			Ext:       strings.ToLower(filepath.Ext(name)),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			CreatedAt: info.ModTime(),
		})
	}

	if s.config.Hash || s.config.Preview {
		if err := s.enrich(ctx, cat); err != nil {
			return nil, err
		}
	}

	logging.Debug("scan complete", "root", absRoot, "files", len(cat.Files))
	return cat, nil
}

// enrich fills content metadata (hash, preview, image dimensions) for every
// record, in parallel when configured.
func (s *Scanner) enrich(ctx context.Context, cat *Catalog) error {
	g, ctx := errgroup.WithContext(ctx)
	if s.config.Parallel {
		g.SetLimit(s.config.Workers)
	} else {
		g.SetLimit(1)
	}

	for i := range cat.Files {
		rec := &cat.Files[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.enrichOne(rec); err != nil {
				// Unreadable content degrades to bare metadata, not a failed scan.
				logging.Warn("failed to read content metadata", "path", rec.Path, "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *Scanner) enrichOne(rec *FileRecord) error {
	f, err := os.Open(rec.Path) // #nosec G304
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if s.config.Hash {
		h := sha256.New()
		if _, err := io.Copy(h, f); err != nil {
			return err
		}
		rec.SHA256 = hex.EncodeToString(h.Sum(nil))
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}

	switch rec.Ext {
	case ".png", ".jpg", ".jpeg", ".gif":
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			rec.ImageWidth = cfg.Width
			rec.ImageHeight = cfg.Height
		}
	default:
		if s.config.Preview {
			buf := make([]byte, s.config.MaxBytes)
			n, err := f.Read(buf)
			if err != nil && err != io.EOF {
				return err
			}
			if preview := string(buf[:n]); utf8.ValidString(preview) {
				rec.Preview = preview
			}
		}
	}

	return nil
}
