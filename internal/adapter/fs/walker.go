package fs

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"docqa/internal/port"
)

var _ port.FileWalker = (*Walker)(nil)

// Walker collects ingestible documents below a directory. Patterns are
// doublestar globs matched against slash-separated paths relative to the
// walk root; a directory matching an exclude pattern is not descended.
type Walker struct {
	includes []string
	excludes []string
	maxSize  int64
}

// NewWalker creates a walker. No includes means every file; maxSize of 0
// means no size cap.
func NewWalker(includes, excludes []string, maxSize int64) *Walker {
	if len(includes) == 0 {
		includes = []string{"**"}
	}
	return &Walker{includes: includes, excludes: excludes, maxSize: maxSize}
}

// Walk returns the matching files in lexical order.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var found []port.FileInfo
	visit := func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && matchAny(w.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if matchAny(w.excludes, rel) || !matchAny(w.includes, rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", rel, err)
		}
		if w.maxSize > 0 && info.Size() > w.maxSize {
			return nil
		}
		found = append(found, port.FileInfo{Path: path, Size: info.Size()})
		return nil
	}

	if err := filepath.WalkDir(abs, visit); err != nil {
		return nil, err
	}
	return found, nil
}

// matchAny reports whether rel matches one of patterns. Malformed patterns
// never match.
func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}
