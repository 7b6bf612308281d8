// Package state implements the durable record of installed packages: a
// versioned JSON document written only by whole-file atomic replacement,
// guarded by a system-wide advisory lock, and cross-checkable against the
// actual filesystem contents.
package state

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/fsutil"
	"github.com/ferropkg/ferrite/pkg/model"
)

// SchemaVersion is the store document version this build reads and writes.
const SchemaVersion = "1"

// Store is the in-memory form of the state document. It is a plain value
// passed explicitly to the resolver, planner and executor; there is no
// ambient global instance.
type Store struct {
	SchemaVersion string                             `json:"schema_version"`
	UpdatedAt     time.Time                          `json:"updated_at"`
	Packages      map[string]*model.InstalledPackage `json:"packages"`
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		SchemaVersion: SchemaVersion,
		Packages:      make(map[string]*model.InstalledPackage),
	}
}

// Load reads the store from path. A missing file yields an empty store;
// unparseable content or an unknown schema version yields ErrStateCorrupt.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStore(), nil
		}
		return nil, errors.Wrapf(err, "failed to read state store %s", path)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, errors.Wrapf(errors.ErrStateCorrupt, "cannot parse %s: %v", path, err)
	}
	if store.SchemaVersion != SchemaVersion {
		return nil, errors.Wrapf(errors.ErrStateCorrupt, "unsupported schema version %q in %s", store.SchemaVersion, path)
	}
	if store.Packages == nil {
		store.Packages = make(map[string]*model.InstalledPackage)
	}
	for name, pkg := range store.Packages {
		if pkg == nil || pkg.Name != name {
			return nil, errors.Wrapf(errors.ErrStateCorrupt, "inconsistent entry %q in %s", name, path)
		}
	}
	return &store, nil
}

// Save persists the store to path as a single atomic whole-file
// replacement. The store is never edited in place, so a reader always sees
// either the previous or the new document.
func (s *Store) Save(path string) error {
	s.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal state store")
	}
	data = append(data, '\n')
	if err := fsutil.WriteFileAtomic(path, data, fsutil.FileModeDefault); err != nil {
		return errors.Wrapf(errors.ErrTransactionIO, "failed to write state store: %v", err)
	}
	return nil
}

// Find returns the installed package with the given name, or nil.
func (s *Store) Find(name string) *model.InstalledPackage {
	return s.Packages[name]
}

// IsInstalled reports whether a package with the given name is installed.
func (s *Store) IsInstalled(name string) bool {
	_, ok := s.Packages[name]
	return ok
}

// Add records a package, replacing any previous entry with the same name.
func (s *Store) Add(pkg *model.InstalledPackage) {
	if pkg.InstalledAt.IsZero() {
		pkg.InstalledAt = time.Now().UTC()
	}
	s.Packages[pkg.Name] = pkg
}

// Remove deletes the entry for name, reporting whether it existed.
func (s *Store) Remove(name string) bool {
	if _, ok := s.Packages[name]; !ok {
		return false
	}
	delete(s.Packages, name)
	return true
}

// All returns the installed packages sorted by name.
func (s *Store) All() []*model.InstalledPackage {
	names := make([]string, 0, len(s.Packages))
	for name := range s.Packages {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*model.InstalledPackage, 0, len(names))
	for _, name := range names {
		out = append(out, s.Packages[name])
	}
	return out
}

// Orphans returns the names of packages installed as dependencies that no
// remaining package depends on, sorted.
func (s *Store) Orphans() []string {
	var out []string
	for name, pkg := range s.Packages {
		if pkg.Reason != model.ReasonDependency {
			continue
		}
		needed := false
		for other, op := range s.Packages {
			if other != name && op.DependsOn(name) {
				needed = true
				break
			}
		}
		if !needed {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a shallow copy of the package map for handing to the
// resolver and planner, which must not observe later mutations.
func (s *Store) Snapshot() map[string]*model.InstalledPackage {
	out := make(map[string]*model.InstalledPackage, len(s.Packages))
	for name, pkg := range s.Packages {
		out[name] = pkg
	}
	return out
}
