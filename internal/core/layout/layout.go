// Package layout computes where every pack artifact lives on disk. It does no I/O.
package layout

import (
	"path/filepath"

	"github.com/xlo-tools/xlo/internal/core/model"
)

const (
	DataDirName   = "__DATA__"
	UIDirName     = "__UI__"
	LouiDirName   = "loui"
	PublicDirName = "public"
	ObjectDataDir = "data"

	ContentFileName  = "content.json"
	ManifestFileName = "imsmanifest.xml"
	IndexFileName    = "index.html"
	ArchiveExt       = ".zip"
)

// Planner resolves paths under a package root for one run environment.
type Planner struct {
	Root string
	Env  model.RunEnv
}

// New returns a Planner rooted at root.
func New(root string, env model.RunEnv) Planner {
	return Planner{Root: root, Env: env}
}

// UIRoot is the directory that receives an object's UI runtime and, in SCORM
// modes, its scaffolding and manifest. Standalone objects share the package root.
func (p Planner) UIRoot(containerID string) string {
	if p.Env == model.Standalone {
		return p.Root
	}
	return filepath.Join(p.Root, DataDirName, containerID)
}

// DataDir holds an object's content.json and media.
func (p Planner) DataDir(containerID string) string {
	if p.Env == model.Standalone {
		return filepath.Join(p.Root, ObjectDataDir, containerID)
	}
	return filepath.Join(p.Root, DataDirName, containerID, ObjectDataDir, containerID)
}

// ContentFile is the persisted content.json of an object.
func (p Planner) ContentFile(containerID string) string {
	return filepath.Join(p.DataDir(containerID), ContentFileName)
}

// ManifestFile is the imsmanifest.xml of an object.
func (p Planner) ManifestFile(containerID string) string {
	return filepath.Join(p.UIRoot(containerID), ManifestFileName)
}

// ArchiveFile is the ZIP produced for an object, at the package root.
func (p Planner) ArchiveFile(containerID string) string {
	return filepath.Join(p.Root, containerID+ArchiveExt)
}

// LouiDir receives the latest UI runtime build.
func (p Planner) LouiDir() string {
	return filepath.Join(p.Root, UIDirName, LouiDirName)
}

// PublicDir receives the shared public assets.
func (p Planner) PublicDir() string {
	return filepath.Join(p.LouiDir(), PublicDirName)
}

// Skeleton lists the directories that must exist before any download.
func (p Planner) Skeleton(containerIDs []string) []string {
	dirs := []string{p.LouiDir(), p.PublicDir()}
	if p.Env != model.Standalone {
		dirs = append(dirs, filepath.Join(p.Root, DataDirName))
	}
	for _, id := range containerIDs {
		dirs = append(dirs, p.UIRoot(id), p.DataDir(id))
	}
	return dirs
}
