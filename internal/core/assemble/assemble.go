// Package assemble drives a pack run: it discovers the objects of a package,
// syncs their assets and the UI runtime, and builds each object's SCORM
// directory, manifest and archive.
package assemble

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/xlo-tools/xlo/internal/core/assetsync"
	"github.com/xlo-tools/xlo/internal/core/catalog"
	"github.com/xlo-tools/xlo/internal/core/downloader"
	"github.com/xlo-tools/xlo/internal/core/failure"
	"github.com/xlo-tools/xlo/internal/core/layout"
	"github.com/xlo-tools/xlo/internal/core/lockfile"
	"github.com/xlo-tools/xlo/internal/core/model"
	"github.com/xlo-tools/xlo/internal/core/progress"
)

// Catalog is the remote content API as the pipeline uses it.
// *catalog.Client implements it.
type Catalog interface {
	Langs(ctx context.Context) ([]model.Lang, error)
	ListObjects(ctx context.Context, filter map[string]any) ([]*model.LearningObject, error)
	FetchContent(ctx context.Context, containerID string) (*model.ContentDocument, error)
	FetchFileList(ctx context.Context, containerID string) ([]model.FileInfo, error)
	ListUIAssets(ctx context.Context) (*catalog.UIAssets, error)
	DownloadURL(container, fileName string) string
	FileClient() downloader.Doer
}

// Uploader receives finished archives. *publish.Store implements it.
type Uploader interface {
	Upload(ctx context.Context, name, filePath string) (string, error)
}

// Options configures one pack run.
type Options struct {
	Root  string
	Env   model.RunEnv
	Force bool
	// Concurrency bounds in-flight downloads and per-object work.
	Concurrency int

	ProductType string
	Contract    string
	Filter      map[string]any

	// Uploader, when set, receives every archive after the zip stage.
	Uploader Uploader
	// Now stamps manifests whose inspection date cannot be parsed.
	Now func() time.Time
}

// Report summarizes a finished run.
type Report struct {
	Objects    []string
	Downloaded int
	Skipped    int
	Manifests  int
	Archives   []string
	Published  []string
	Failures   []error
}

// Assembler runs the pack pipeline. Each Run starts from the on-disk state
// left by earlier runs; outputs that already exist are kept unless forced.
type Assembler struct {
	catalog  Catalog
	opts     Options
	plan     layout.Planner
	progress *progress.Reporter
	failures *failure.Set
	syncer   *assetsync.Syncer
	lock     *lockfile.Lockfile
}

// New returns an Assembler for opts. A nil reporter discards progress.
func New(cat Catalog, opts Options, rep *progress.Reporter) *Assembler {
	if rep == nil {
		rep = progress.Discard()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = assetsync.DefaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Assembler{
		catalog:  cat,
		opts:     opts,
		plan:     layout.New(opts.Root, opts.Env),
		progress: rep,
	}
}

// object is the per-object state carried between stages. An object whose
// metadata could not be fetched stays in the run with ready unset and is
// skipped by every later stage.
type object struct {
	lo    *model.LearningObject
	doc   *model.ContentDocument
	files []string
	ready bool
	// fresh is set when this run changed the object's tree, so its manifest
	// and archive are rebuilt even if they already exist.
	fresh atomic.Bool
}

// Run executes the pipeline. Only authentication, discovery and directory
// failures abort it; every other failure is confined to its object or file
// and returned in the report.
func (a *Assembler) Run(ctx context.Context) (*Report, error) {
	if !a.opts.Env.IsSCORM() && a.opts.Env != model.Standalone {
		return nil, fmt.Errorf("unknown run environment %s", a.opts.Env)
	}
	a.failures = &failure.Set{}
	a.syncer = assetsync.New(a.catalog.FileClient(), a.opts.Concurrency, a.progress, a.failures)

	lock, err := lockfile.Load(a.opts.Root)
	if err != nil {
		a.progress.Warnf("starting a new lockfile: %v", err)
		lock = lockfile.New()
	}
	lock.RunEnv = a.opts.Env.String()
	a.lock = lock

	report := &Report{}

	a.progress.Stage("Fetching package objects")
	langs, objects, err := a.discover(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range objects {
		report.Objects = append(report.Objects, o.lo.Key())
	}

	a.progress.Stage("Creating directories")
	if err := a.ensureSkeleton(objects); err != nil {
		return nil, err
	}

	a.progress.Stage("Syncing UI runtime")
	uiStats := a.syncUI(ctx)

	a.progress.Stage("Fetching object content")
	a.fetchObjects(ctx, objects, langs)

	a.progress.Stage("Syncing object assets")
	assetStats := a.syncAssets(ctx, objects)
	report.Downloaded = uiStats.Downloaded + assetStats.Downloaded
	report.Skipped = uiStats.Skipped + assetStats.Skipped

	a.progress.Stage("Copying UI runtime")
	a.copyUI(objects)

	if a.opts.Env.IsSCORM() {
		a.progress.Stage("Adding SCORM scaffolding")
		a.overlayScorm(objects)

		a.progress.Stage("Building manifests")
		report.Manifests = a.buildManifests(ctx, objects)

		a.progress.Stage("Zipping packages")
		report.Archives = a.zipObjects(ctx, objects)

		if a.opts.Uploader != nil {
			a.progress.Stage("Publishing packages")
			report.Published = a.publish(ctx, objects)
		}
	}

	for _, o := range objects {
		a.lock.SetFailures(o.lo.Key(), a.failures.ForUnit(o.lo.Key()))
	}
	if err := lockfile.Save(a.opts.Root, a.lock); err != nil {
		return nil, err
	}

	report.Failures = a.failures.Errors()
	return report, nil
}

// Lockfile returns the run record of the last Run.
func (a *Assembler) Lockfile() *lockfile.Lockfile {
	return a.lock
}
