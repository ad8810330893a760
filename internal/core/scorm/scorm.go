// Package scorm ships the runtime scaffolding that a SCORM player expects
// next to a packaged object's launch page.
package scorm

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/xlo-tools/xlo/internal/core/model"
)

//go:embed files
var scaffolding embed.FS

func dirFor(env model.RunEnv) (string, error) {
	switch env {
	case model.SCORM2004:
		return "files/scorm2004", nil
	case model.SCORM1P2:
		return "files/scorm12", nil
	}
	return "", fmt.Errorf("no SCORM scaffolding for run environment %s", env)
}

// Files lists the scaffolding paths for env, relative to an object root.
func Files(env model.RunEnv) ([]string, error) {
	dir, err := dirFor(env)
	if err != nil {
		return nil, err
	}
	var out []string
	err = fs.WalkDir(scaffolding, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel := p[len(dir)+1:]
		out = append(out, rel)
		return nil
	})
	return out, err
}

// Overlay copies the scaffolding for env into root. Existing files are kept
// unless force is set. It returns the paths it wrote.
func Overlay(env model.RunEnv, root string, force bool) ([]string, error) {
	dir, err := dirFor(env)
	if err != nil {
		return nil, err
	}
	files, err := Files(env)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, rel := range files {
		dest := filepath.Join(root, filepath.FromSlash(rel))
		if !force {
			if _, err := os.Stat(dest); err == nil {
				continue
			} else if !errors.Is(err, os.ErrNotExist) {
				return written, fmt.Errorf("failed to stat %s: %w", dest, err)
			}
		}
		data, err := scaffolding.ReadFile(path.Join(dir, rel))
		if err != nil {
			return written, err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return written, fmt.Errorf("failed to create directory for %s: %w", dest, err)
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", dest, err)
		}
		written = append(written, rel)
	}
	return written, nil
}
