package index

import (
	"net/url"
	"path/filepath"
	"sort"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/model"
)

// Repository identifies one index source. Repositories are consulted in
// slice order; earlier entries win when the same name@version appears twice.
// URL points at the remote index document and is only needed for syncing.
type Repository struct {
	Name     string
	URL      *url.URL
	Priority uint
}

// Lookup is the read-only contract the resolver consumes. Implementations
// must return results that are stable for the duration of one resolution.
type Lookup interface {
	// Lookup returns every available manifest for name, sorted descending by
	// version. It returns ErrPackageNotFound for unknown names.
	Lookup(name string) ([]*model.Manifest, error)
}

// Manager serves lookups over the index files of the configured
// repositories. All files are parsed once on first use; the loaded snapshot
// never changes afterwards, so a resolution cannot observe the index
// changing mid-solve.
type Manager struct {
	repos    []*Repository
	indexDir string
	indexes  map[string]*Index
}

// NewManager creates a manager for the given repositories. Index files are
// expected at <indexDir>/<repo name>.json.
func NewManager(repos []*Repository, indexDir string) *Manager {
	return &Manager{
		repos:    repos,
		indexDir: indexDir,
	}
}

// IndexPath returns the index file location for a repository name.
func (m *Manager) IndexPath(repoName string) string {
	return filepath.Join(m.indexDir, repoName+".json")
}

// Load parses all repository index files. Called implicitly by Lookup;
// calling it up front surfaces parse errors early.
func (m *Manager) Load() error {
	if m.indexes != nil {
		return nil
	}
	indexes := make(map[string]*Index, len(m.repos))
	for _, repo := range m.repos {
		idx, err := ParseIndexFromFile(m.IndexPath(repo.Name))
		if err != nil {
			return errors.Wrapf(err, "repository %s", repo.Name)
		}
		indexes[repo.Name] = idx
	}
	m.indexes = indexes
	return nil
}

// Lookup implements the Lookup contract: all versions of name across every
// repository, de-duplicated by version (higher-priority repository wins),
// sorted descending by version.
func (m *Manager) Lookup(name string) ([]*model.Manifest, error) {
	if err := m.Load(); err != nil {
		return nil, err
	}

	byVersion := make(map[string]*model.Manifest)
	for _, repo := range m.repos {
		for _, manifest := range m.indexes[repo.Name].FindVersions(name) {
			if manifest.GetVersion() == nil {
				continue // unparseable version, never a candidate
			}
			if _, taken := byVersion[manifest.Version]; !taken {
				byVersion[manifest.Version] = manifest
			}
		}
	}
	if len(byVersion) == 0 {
		return nil, errors.Wrapf(errors.ErrPackageNotFound, "%s", name)
	}

	out := make([]*model.Manifest, 0, len(byVersion))
	for _, manifest := range byVersion {
		out = append(out, manifest)
	}
	sort.Slice(out, func(i, j int) bool {
		vi, vj := out[i].GetVersion(), out[j].GetVersion()
		if vi.Equal(vj) {
			return out[i].Version < out[j].Version
		}
		return vi.GreaterThan(vj)
	})
	return out, nil
}
