package assemble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/xlo-tools/xlo/internal/core/archive"
	"github.com/xlo-tools/xlo/internal/core/assetsync"
	"github.com/xlo-tools/xlo/internal/core/catalog"
	"github.com/xlo-tools/xlo/internal/core/failure"
	"github.com/xlo-tools/xlo/internal/core/hasher"
	"github.com/xlo-tools/xlo/internal/core/layout"
	"github.com/xlo-tools/xlo/internal/core/manifest"
	"github.com/xlo-tools/xlo/internal/core/model"
	"github.com/xlo-tools/xlo/internal/core/scorm"
	"github.com/xlo-tools/xlo/internal/core/uibuild"
)

// discover fetches the language table and the object list concurrently.
// Objects with a repeated or unsafe container id are dropped.
func (a *Assembler) discover(ctx context.Context) ([]model.Lang, []*object, error) {
	var (
		langs []model.Lang
		los   []*model.LearningObject
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		langs, err = a.catalog.Langs(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		los, err = a.catalog.ListObjects(gctx, a.opts.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool, len(los))
	objects := make([]*object, 0, len(los))
	for _, lo := range los {
		key := lo.Key()
		if !assetsync.SafeName(key) {
			err := failure.New(failure.ErrCatalogFetch, key, fmt.Errorf("unusable container id"))
			a.progress.Failed(err)
			a.failures.Add(err)
			continue
		}
		if seen[key] {
			a.progress.Warnf("duplicate object %s in package listing, keeping the first", key)
			continue
		}
		seen[key] = true
		objects = append(objects, &object{lo: lo})
	}
	return langs, objects, nil
}

func (a *Assembler) ensureSkeleton(objects []*object) error {
	ids := make([]string, 0, len(objects))
	for _, o := range objects {
		ids = append(ids, o.lo.Key())
	}
	for _, dir := range a.plan.Skeleton(ids) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return failure.New(failure.ErrDirectory, dir, err)
		}
	}
	return nil
}

// syncUI downloads the newest UI runtime into the loui directory and the
// shared public assets into its public directory.
func (a *Assembler) syncUI(ctx context.Context) assetsync.Stats {
	ui, err := a.catalog.ListUIAssets(ctx)
	if err != nil {
		a.progress.Failed(err)
		a.failures.Add(err)
		return assetsync.Stats{}
	}
	a.progress.Debugf("using UI runtime %s (%s)", ui.Container, ui.Version)

	var jobs []assetsync.Job
	add := func(files []model.FileInfo, dir, prefix string) {
		names := make([]string, 0, len(files))
		containers := make(map[string]string, len(files))
		for _, f := range files {
			names = append(names, f.Name)
			containers[f.Name] = f.Container
		}
		for _, name := range a.syncer.FilterNames(ui.Container, names) {
			recorded := name
			if prefix != "" {
				recorded = path.Join(prefix, name)
			}
			jobs = append(jobs, assetsync.Job{
				Unit: ui.Container,
				Name: name,
				URL:  a.catalog.DownloadURL(containers[name], name),
				Dest: filepath.Join(dir, name),
				Record: func(_, hash string) {
					a.lock.RecordUIAsset(ui.Container, recorded, hash)
				},
			})
		}
	}
	add(ui.Files, a.plan.LouiDir(), "")
	add(ui.Public, a.plan.PublicDir(), catalog.PublicContainer)

	return a.syncer.SyncAll(ctx, jobs, a.opts.Force)
}

// fetchObjects fetches content.json and the file list of every object,
// persists content.json and derives product, lesson type and scripts.
func (a *Assembler) fetchObjects(ctx context.Context, objects []*object, langs []model.Lang) {
	g := new(errgroup.Group)
	g.SetLimit(a.opts.Concurrency)
	for _, o := range objects {
		g.Go(func() error {
			if err := a.fetchObject(ctx, o, langs); err != nil {
				a.progress.Failed(err)
				a.failures.Add(err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Assembler) fetchObject(ctx context.Context, o *object, langs []model.Lang) error {
	key := o.lo.Key()

	var (
		doc   *model.ContentDocument
		files []model.FileInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		doc, err = a.catalog.FetchContent(gctx, key)
		return err
	})
	g.Go(func() error {
		var err error
		files, err = a.catalog.FetchFileList(gctx, key)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	dest := a.plan.ContentFile(key)
	if err := os.WriteFile(dest, doc.Raw, 0644); err != nil {
		return failure.New(failure.ErrCatalogFetch, key, fmt.Errorf("failed to write %s: %w", dest, err))
	}

	o.doc = doc
	o.lo.Product = manifest.ProductType(doc, a.opts.ProductType)
	if doc.LessonType != "" {
		o.lo.LessonType = string(doc.LessonType)
	}
	o.lo.Scripts = model.ScriptsFor(doc, langs)
	a.lock.SetProduct(key, o.lo.Product)

	names := make([]string, 0, len(files))
	for _, f := range files {
		if f.Name == layout.ContentFileName {
			continue
		}
		names = append(names, f.Name)
	}
	a.progress.Object(key, len(names))
	o.files = a.syncer.FilterNames(key, names)
	o.ready = true
	return nil
}

func (a *Assembler) syncAssets(ctx context.Context, objects []*object) assetsync.Stats {
	var jobs []assetsync.Job
	for _, o := range objects {
		if !o.ready {
			continue
		}
		key := o.lo.Key()
		dir := a.plan.DataDir(key)
		for _, name := range o.files {
			jobs = append(jobs, assetsync.Job{
				Unit: key,
				Name: name,
				URL:  a.catalog.DownloadURL(key, name),
				Dest: filepath.Join(dir, name),
				Record: func(name, hash string) {
					a.lock.RecordAsset(key, name, hash)
					o.fresh.Store(true)
				},
			})
		}
	}
	return a.syncer.SyncAll(ctx, jobs, a.opts.Force)
}

// copyUI copies the runtime files each object needs into its UI root.
func (a *Assembler) copyUI(objects []*object) {
	copier, err := uibuild.NewCopier(a.plan.LouiDir())
	if err != nil {
		a.failures.Add(failure.New(failure.ErrUICopy, a.plan.LouiDir(), err))
		return
	}
	if !a.opts.Env.IsSCORM() {
		a.copySharedUI(copier, objects)
		return
	}
	for _, o := range objects {
		if !o.ready {
			continue
		}
		key := o.lo.Key()
		if o.lo.Product == "" {
			a.progress.Skipped("UI copy (no product type)", key)
			continue
		}
		sel := uibuild.Patterns(o.lo.Product, o.lo.LessonType, o.lo.Scripts)
		copied, err := copier.CopyInto(a.plan.UIRoot(key), sel, a.opts.Force)
		if err != nil {
			err = failure.New(failure.ErrUICopy, key, err)
			a.progress.Failed(err)
			a.failures.Add(err)
			o.ready = false
			continue
		}
		if copied == nil {
			a.progress.Skipped("UI copy", key)
			continue
		}
		o.fresh.Store(true)
		a.progress.Done(fmt.Sprintf("UI runtime (%d files)", len(copied)), key)
	}
}

// copySharedUI copies one runtime serving every object into the package
// root, which all objects share when not packaging for an LMS.
func (a *Assembler) copySharedUI(copier *uibuild.Copier, objects []*object) {
	var sels []uibuild.Selection
	for _, o := range objects {
		if o.ready && o.lo.Product != "" {
			sels = append(sels, uibuild.Patterns(o.lo.Product, o.lo.LessonType, o.lo.Scripts))
		}
	}
	if len(sels) == 0 {
		return
	}
	root := a.plan.UIRoot("")
	copied, err := copier.CopyInto(root, uibuild.Merge(sels...), a.opts.Force)
	if err != nil {
		err = failure.New(failure.ErrUICopy, root, err)
		a.progress.Failed(err)
		a.failures.Add(err)
		return
	}
	if copied == nil {
		a.progress.Skipped("UI copy", root)
		return
	}
	a.progress.Done(fmt.Sprintf("UI runtime (%d files)", len(copied)), root)
}

func (a *Assembler) overlayScorm(objects []*object) {
	for _, o := range objects {
		if !o.ready {
			continue
		}
		key := o.lo.Key()
		written, err := scorm.Overlay(a.opts.Env, a.plan.UIRoot(key), a.opts.Force)
		if err != nil {
			err = failure.New(failure.ErrUICopy, key, err)
			a.progress.Failed(err)
			a.failures.Add(err)
			o.ready = false
			continue
		}
		if len(written) == 0 {
			a.progress.Skipped("SCORM scaffolding", key)
			continue
		}
		o.fresh.Store(true)
		a.progress.Done("SCORM scaffolding", key)
	}
}

// buildManifests writes imsmanifest.xml for every object that lacks one.
// Metadata is derived from the content.json persisted on disk.
func (a *Assembler) buildManifests(ctx context.Context, objects []*object) int {
	var built atomic.Int32
	a.forEachReady(ctx, objects, failure.ErrManifestField, func(o *object) {
		key := o.lo.Key()
		dest := a.plan.ManifestFile(key)
		if !a.rebuild(o, dest) {
			a.progress.Skipped("manifest", key)
			return
		}

		data, err := os.ReadFile(a.plan.ContentFile(key))
		if err != nil {
			a.fail(o, failure.New(failure.ErrManifestField, key, err))
			return
		}
		doc, err := model.ParseContentDocument(data)
		if err != nil {
			a.fail(o, failure.New(failure.ErrManifestField, key, err))
			return
		}
		if doc.ContainerID == "" {
			doc.ContainerID = key
		}

		md, warnings := manifest.Derive(doc, manifest.Input{
			ProductType: a.opts.ProductType,
			LessonType:  o.lo.LessonType,
			Contract:    a.opts.Contract,
			Now:         a.opts.Now,
		})
		for _, w := range warnings {
			a.progress.Warnf("%v", w)
		}
		md.ID = key

		if err := manifest.Write(a.opts.Env, a.plan.UIRoot(key), md); err != nil {
			a.fail(o, failure.New(failure.ErrManifestField, key, err))
			return
		}
		o.fresh.Store(true)
		built.Add(1)
		a.progress.Done("manifest", key)
	})
	return int(built.Load())
}

// zipObjects archives every object root into <id>.zip at the package root.
func (a *Assembler) zipObjects(ctx context.Context, objects []*object) []string {
	var archives namedList
	a.forEachReady(ctx, objects, failure.ErrArchive, func(o *object) {
		key := o.lo.Key()
		dest := a.plan.ArchiveFile(key)
		name := filepath.Base(dest)
		if !a.rebuild(o, dest) {
			a.progress.Skipped("zip", name)
			archives.add(name)
			return
		}

		res, err := archive.Zip(a.plan.UIRoot(key), dest)
		if err != nil {
			a.fail(o, failure.New(failure.ErrArchive, key, err))
			return
		}
		for _, w := range res.Warnings {
			a.progress.Warnf("%s: %v", name, w)
		}
		hash, size, err := hasher.CalculateFileSHA256(dest)
		if err != nil {
			a.fail(o, failure.New(failure.ErrArchive, key, err))
			return
		}
		a.lock.SetArchive(key, name, hash)
		archives.add(name)
		a.progress.Saved(name, size)
	})
	return archives.sorted()
}

// publish uploads every archive present at the package root.
func (a *Assembler) publish(ctx context.Context, objects []*object) []string {
	var published namedList
	a.forEachReady(ctx, objects, failure.ErrPublish, func(o *object) {
		key := o.lo.Key()
		dest := a.plan.ArchiveFile(key)
		if !exists(dest) {
			return
		}
		remote, err := a.opts.Uploader.Upload(ctx, filepath.Base(dest), dest)
		if err != nil {
			err = failure.New(failure.ErrPublish, key, err)
			a.progress.Failed(err)
			a.failures.Add(err)
			return
		}
		published.add(remote)
		a.progress.Done("published", remote)
	})
	return published.sorted()
}

// forEachReady runs fn for every ready object with bounded concurrency.
// Objects not yet started when ctx ends fail with kind.
func (a *Assembler) forEachReady(ctx context.Context, objects []*object, kind error, fn func(*object)) {
	g := new(errgroup.Group)
	g.SetLimit(a.opts.Concurrency)
	for _, o := range objects {
		if !o.ready {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				a.fail(o, failure.New(kind, o.lo.Key(), ctx.Err()))
				return nil
			}
			fn(o)
			return nil
		})
	}
	_ = g.Wait()
}

// fail records err and takes the object out of the remaining stages.
func (a *Assembler) fail(o *object, err error) {
	a.progress.Failed(err)
	a.failures.Add(err)
	o.ready = false
}

// rebuild reports whether an object's output at dest must be written.
func (a *Assembler) rebuild(o *object, dest string) bool {
	return a.opts.Force || o.fresh.Load() || !exists(dest)
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return !errors.Is(err, os.ErrNotExist)
}

// UnitsWithFailures returns the sorted object ids that recorded failures.
func UnitsWithFailures(errs []error) []string {
	seen := make(map[string]bool)
	var out []string
	for _, err := range errs {
		var fe *failure.Error
		if errors.As(err, &fe) && fe.Unit != "" && !seen[fe.Unit] {
			seen[fe.Unit] = true
			out = append(out, fe.Unit)
		}
	}
	sort.Strings(out)
	return out
}

// namedList collects names from concurrent stages.
type namedList struct {
	mu    sync.Mutex
	names []string
}

func (l *namedList) add(name string) {
	l.mu.Lock()
	l.names = append(l.names, name)
	l.mu.Unlock()
}

func (l *namedList) sorted() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := append([]string(nil), l.names...)
	sort.Strings(out)
	return out
}
