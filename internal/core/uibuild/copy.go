package uibuild

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

// globCacheSize bounds the memoized pattern results; one entry per distinct
// pattern is plenty for a package run.
const globCacheSize = 256

// Copier copies selected files out of a synced UI runtime directory. Glob
// results are memoized, so the runtime directory must not change while a
// Copier is in use.
type Copier struct {
	src   string
	fsys  fs.FS
	globs *lru.Cache[string, []string]
}

// NewCopier returns a Copier reading from the UI runtime directory src.
func NewCopier(src string) (*Copier, error) {
	cache, err := lru.New[string, []string](globCacheSize)
	if err != nil {
		return nil, err
	}
	return &Copier{src: src, fsys: os.DirFS(src), globs: cache}, nil
}

func (c *Copier) glob(pattern string) ([]string, error) {
	if matches, ok := c.globs.Get(pattern); ok {
		return matches, nil
	}
	matches, err := doublestar.Glob(c.fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid UI asset pattern %q: %w", pattern, err)
	}
	c.globs.Add(pattern, matches)
	return matches, nil
}

// Resolve returns the runtime files selected by sel, relative to the
// runtime directory, slash-separated and sorted.
func (c *Copier) Resolve(sel Selection) ([]string, error) {
	picked := make(map[string]struct{})
	for _, pattern := range sel.Include {
		matches, err := c.glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			picked[m] = struct{}{}
		}
	}

	out := make([]string, 0, len(picked))
	for p := range picked {
		excluded := false
		for _, pattern := range sel.Exclude {
			if ok, err := doublestar.Match(pattern, p); err == nil && ok {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// CopyInto copies the selected runtime files into dest, preserving their
// relative paths. A dest that already has a launch page is left alone
// unless force is set. It returns the copied paths, or nil when skipped.
func (c *Copier) CopyInto(dest string, sel Selection, force bool) ([]string, error) {
	if !force {
		if _, err := os.Stat(filepath.Join(dest, "index.html")); err == nil {
			return nil, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", dest, err)
		}
	}

	files, err := c.Resolve(sel)
	if err != nil {
		return nil, err
	}
	for _, rel := range files {
		from := filepath.Join(c.src, filepath.FromSlash(rel))
		to := filepath.Join(dest, filepath.FromSlash(rel))
		if err := copyFile(from, to); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func copyFile(from, to string) error {
	in, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", from, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", to, err)
	}
	out, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", to, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", from, to, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", to, err)
	}
	return nil
}
