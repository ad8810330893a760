// Package archive writes reproducible ZIP archives of a directory tree.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/flate"
)

// Extension is appended to an object id to name its archive.
const Extension = ".zip"

// modTime is stamped on every entry so identical trees give identical bytes.
var modTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Result describes a written archive.
type Result struct {
	Path    string
	Entries []string
	// Warnings lists files that disappeared between listing and reading.
	// They are left out of the archive.
	Warnings []error
}

// Files lists the regular files under root, relative, slash-separated and
// sorted. It is the entry list Zip writes.
func Files(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Zip archives every regular file under srcDir into dest using maximum
// compression. The archive is written next to dest and renamed into place,
// so dest is either the previous archive or a complete new one.
func Zip(srcDir, dest string) (res *Result, err error) {
	files, err := Files(srcDir)
	if err != nil {
		return nil, err
	}

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to create ZIP file %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	res = &Result{Path: dest}
	for _, rel := range files {
		ok, err := addFile(zw, srcDir, rel)
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Errorf("%s vanished before it could be archived", rel))
			continue
		}
		res.Entries = append(res.Entries, rel)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish ZIP file %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to close ZIP file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return nil, fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	return res, nil
}

// addFile writes one entry. It reports false, without error, when the file
// no longer exists.
func addFile(zw *zip.Writer, root, rel string) (bool, error) {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read file %s: %w", rel, err)
	}
	defer f.Close()

	header := &zip.FileHeader{
		Name:     rel,
		Method:   zip.Deflate,
		Modified: modTime,
	}
	header.SetMode(0644)
	w, err := zw.CreateHeader(header)
	if err != nil {
		return false, fmt.Errorf("failed to create ZIP entry %s: %w", rel, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return false, fmt.Errorf("failed to write file data for %s: %w", rel, err)
	}
	return true, nil
}
