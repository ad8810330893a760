// Package lockfile records what a pack run produced: the hash of every
// downloaded asset, the archive of each object and the failures left behind.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
)

const LockfileName = "xlo-lock.toml"
const APIVersion = "1"

// ObjectEntry is one packaged learning object.
// Example:
// [object.ao1]
//
//	product = "ao"
//	archive = "ao1.zip"
//	archive_hash = "sha256:<hash_value>"
//	[object.ao1.files]
//	"passage1.mp3" = "sha256:<hash_value>"
type ObjectEntry struct {
	Product     string            `toml:"product"`
	Files       map[string]string `toml:"files"`
	Archive     string            `toml:"archive,omitempty"`
	ArchiveHash string            `toml:"archive_hash,omitempty"`
	Failures    []string          `toml:"failures,omitempty"`
}

// UIEntry records the UI runtime build the package was assembled against.
type UIEntry struct {
	Container string            `toml:"container"`
	Files     map[string]string `toml:"files"`
}

// Lockfile represents the structure of the xlo-lock.toml file. It is safe
// for concurrent use through its methods.
type Lockfile struct {
	mu sync.Mutex

	ApiVersion string                 `toml:"api_version"`
	RunEnv     string                 `toml:"run_env,omitempty"`
	UI         *UIEntry               `toml:"ui,omitempty"`
	Object     map[string]ObjectEntry `toml:"object"`
}

// New creates a new Lockfile instance with default values.
func New() *Lockfile {
	return &Lockfile{
		ApiVersion: APIVersion,
		Object:     make(map[string]ObjectEntry),
	}
}

// Load loads the lockfile from the given package root.
// If the lockfile doesn't exist, it returns a new Lockfile instance.
func Load(root string) (*Lockfile, error) {
	lockfilePath := filepath.Join(root, LockfileName)
	lf := New()

	if _, err := os.Stat(lockfilePath); os.IsNotExist(err) {
		return lf, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat lockfile %s: %w", lockfilePath, err)
	}

	if _, err := toml.DecodeFile(lockfilePath, lf); err != nil {
		return nil, fmt.Errorf("failed to decode lockfile %s: %w", lockfilePath, err)
	}
	if lf.ApiVersion == "" {
		lf.ApiVersion = APIVersion
	}
	if lf.Object == nil {
		lf.Object = make(map[string]ObjectEntry)
	}
	return lf, nil
}

// Save writes the lockfile to the given package root. The file is written
// next to its destination and renamed into place, so an interrupted save
// leaves the previous lockfile intact.
func Save(root string, lf *Lockfile) error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	lockfilePath := filepath.Join(root, LockfileName)
	tmpPath := lockfilePath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create lockfile %s: %w", tmpPath, err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(lf); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to encode lockfile %s: %w", lockfilePath, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write lockfile %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, lockfilePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace lockfile %s: %w", lockfilePath, err)
	}
	return nil
}

func (lf *Lockfile) entry(key string) ObjectEntry {
	if lf.Object == nil {
		lf.Object = make(map[string]ObjectEntry)
	}
	e := lf.Object[key]
	if e.Files == nil {
		e.Files = make(map[string]string)
	}
	return e
}

// SetProduct records the product an object was packaged as.
func (lf *Lockfile) SetProduct(key, product string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	e := lf.entry(key)
	e.Product = product
	lf.Object[key] = e
}

// RecordAsset adds or updates the hash of a downloaded object asset.
func (lf *Lockfile) RecordAsset(key, name, hash string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	e := lf.entry(key)
	e.Files[name] = hash
	lf.Object[key] = e
}

// RecordUIAsset adds or updates the hash of a downloaded UI runtime file.
// Switching to another container drops the hashes of the previous one.
func (lf *Lockfile) RecordUIAsset(container, name, hash string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	if lf.UI == nil || lf.UI.Container != container {
		lf.UI = &UIEntry{Container: container, Files: make(map[string]string)}
	}
	if lf.UI.Files == nil {
		lf.UI.Files = make(map[string]string)
	}
	lf.UI.Files[name] = hash
}

// SetArchive records the archive produced for an object.
func (lf *Lockfile) SetArchive(key, archive, hash string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	e := lf.entry(key)
	e.Archive = archive
	e.ArchiveHash = hash
	lf.Object[key] = e
}

// SetFailures replaces the failures recorded for an object.
func (lf *Lockfile) SetFailures(key string, failures []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	e := lf.entry(key)
	if len(failures) == 0 {
		e.Failures = nil
	} else {
		e.Failures = append([]string(nil), failures...)
	}
	lf.Object[key] = e
}

// Entry returns a copy of the entry recorded for key.
func (lf *Lockfile) Entry(key string) (ObjectEntry, bool) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	e, ok := lf.Object[key]
	if !ok {
		return ObjectEntry{}, false
	}
	files := make(map[string]string, len(e.Files))
	for k, v := range e.Files {
		files[k] = v
	}
	e.Files = files
	e.Failures = append([]string(nil), e.Failures...)
	return e, true
}

// Keys returns the recorded object keys in sorted order.
func (lf *Lockfile) Keys() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	keys := make([]string, 0, len(lf.Object))
	for k := range lf.Object {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
