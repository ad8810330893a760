// Package assetsync downloads remote assets into place, skipping files that
// already exist unless forced.
package assetsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/xlo-tools/xlo/internal/core/downloader"
	"github.com/xlo-tools/xlo/internal/core/failure"
	"github.com/xlo-tools/xlo/internal/core/hasher"
	"github.com/xlo-tools/xlo/internal/core/progress"
)

// DefaultConcurrency bounds in-flight downloads when no limit is configured.
const DefaultConcurrency = 8

var safeNameRegex = regexp.MustCompile(`^[0-9a-zA-Z_.-]+$`)

// SafeName reports whether a remote file name may be written into a local
// directory as-is.
func SafeName(name string) bool {
	return name != "." && name != ".." && safeNameRegex.MatchString(name)
}

// Job is one file to bring in sync.
type Job struct {
	// Unit is the object id or container the file belongs to; failures are
	// recorded against it.
	Unit string
	Name string
	URL  string
	Dest string
	// Record, when set, receives the sha256 of every freshly downloaded file.
	Record func(name, hash string)
}

// Stats counts the outcome of a batch.
type Stats struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Syncer downloads jobs through a shared HTTP client.
type Syncer struct {
	client   downloader.Doer
	limit    int
	progress *progress.Reporter
	failures *failure.Set
}

// New returns a Syncer. A limit below one means DefaultConcurrency.
func New(client downloader.Doer, limit int, rep *progress.Reporter, failures *failure.Set) *Syncer {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	if rep == nil {
		rep = progress.Discard()
	}
	if failures == nil {
		failures = &failure.Set{}
	}
	return &Syncer{client: client, limit: limit, progress: rep, failures: failures}
}

// SyncFile downloads job unless its destination exists and force is false.
// It reports whether a download took place.
func (s *Syncer) SyncFile(ctx context.Context, job Job, force bool) (bool, error) {
	if !force {
		info, err := os.Stat(job.Dest)
		if err == nil && info.Mode().IsRegular() {
			s.progress.Skipped("download", job.Name)
			return false, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, failure.New(failure.ErrAssetDownload, job.Unit, fmt.Errorf("failed to stat %s: %w", job.Dest, err))
		}
	}

	n, err := downloader.DownloadToFile(ctx, s.client, job.URL, job.Dest)
	if err != nil {
		return false, failure.New(failure.ErrAssetDownload, job.Unit, fmt.Errorf("%s: %w", job.Name, err))
	}
	s.progress.Saved(job.Name, n)

	if job.Record != nil {
		hash, _, err := hasher.CalculateFileSHA256(job.Dest)
		if err != nil {
			return true, failure.New(failure.ErrAssetDownload, job.Unit, fmt.Errorf("%s: %w", job.Name, err))
		}
		job.Record(job.Name, hash)
	}
	return true, nil
}

// SyncAll runs jobs with bounded concurrency. A failed file is reported and
// recorded but never stops its siblings. Jobs not yet started when ctx is
// canceled are counted as failed.
func (s *Syncer) SyncAll(ctx context.Context, jobs []Job, force bool) Stats {
	var downloaded, skipped, failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(s.limit)
	for _, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failed.Add(1)
				s.failures.Add(failure.New(failure.ErrAssetDownload, job.Unit, fmt.Errorf("%s: %w", job.Name, err)))
				return nil
			}
			ok, err := s.SyncFile(ctx, job, force)
			switch {
			case err != nil:
				failed.Add(1)
				s.progress.Failed(err)
				s.failures.Add(err)
			case ok:
				downloaded.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return Stats{
		Downloaded: int(downloaded.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
	}
}

// FilterNames splits names into those safe to download and records every
// rejected one as an invalid asset name for unit.
func (s *Syncer) FilterNames(unit string, names []string) []string {
	valid := make([]string, 0, len(names))
	for _, name := range names {
		if !SafeName(name) {
			err := failure.New(failure.ErrInvalidAssetName, unit, fmt.Errorf("%q", name))
			s.progress.Failed(err)
			s.failures.Add(err)
			continue
		}
		valid = append(valid, name)
	}
	return valid
}
