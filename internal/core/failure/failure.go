// Package failure classifies pipeline errors and collects per-unit failures.
package failure

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrAuth             = errors.New("authentication failed")
	ErrCatalogFetch     = errors.New("catalog fetch failed")
	ErrAssetDownload    = errors.New("asset download failed")
	ErrInvalidAssetName = errors.New("invalid media file name")
	ErrManifestField    = errors.New("manifest field derivation failed")
	ErrArchive          = errors.New("archive failed")
	ErrDirectory        = errors.New("directory creation failed")
	ErrUICopy           = errors.New("UI copy failed")
	ErrPublish          = errors.New("publish failed")
)

// Error ties a failure kind to the unit of work it hit (an object id or a
// file path) and the underlying cause.
type Error struct {
	Kind error
	Unit string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Unit != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Unit)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New wraps err as a failure of the given kind for unit.
func New(kind error, unit string, err error) error {
	return &Error{Kind: kind, Unit: unit, Err: err}
}

// Fatal reports whether err must abort the whole run.
func Fatal(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrDirectory)
}

// Set accumulates failures from concurrent workers.
type Set struct {
	mu   sync.Mutex
	errs []error
}

// Add records err; nil is ignored.
func (s *Set) Add(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

// Len returns the number of recorded failures.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

// Errors returns a copy of the recorded failures.
func (s *Set) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

// ForUnit returns the messages of failures recorded against unit, sorted.
func (s *Set) ForUnit(unit string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, err := range s.errs {
		var fe *Error
		if errors.As(err, &fe) && fe.Unit == unit {
			out = append(out, err.Error())
		}
	}
	sort.Strings(out)
	return out
}

// Count returns how many recorded failures are of the given kind.
func (s *Set) Count(kind error) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, err := range s.errs {
		if errors.Is(err, kind) {
			n++
		}
	}
	return n
}
