package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIndex(t *testing.T) {
	data := []byte(`{
		"format_version": "1",
		"packages": [
			{"name": "tool", "version": "1.0.0", "url": "https://x/tool_1.0.0.tar.gz", "checksum": "abc", "files": []}
		]
	}`)

	idx, err := ParseIndex(data)
	require.NoError(t, err)
	assert.Equal(t, "1", idx.FormatVersion)
	require.Len(t, idx.Packages, 1)
	assert.Equal(t, "tool@1.0.0", idx.Packages[0].ID())
}

func TestParseIndexErrors(t *testing.T) {
	_, err := ParseIndex([]byte("{invalid"))
	assert.Error(t, err)

	_, err = ParseIndex([]byte(`{"packages": []}`))
	assert.ErrorContains(t, err, "missing format version")
}

func TestIndexAddReplaces(t *testing.T) {
	idx := NewIndex()
	idx.Add(&model.Manifest{Name: "a", Version: "1.0.0", Checksum: "old"})
	idx.Add(&model.Manifest{Name: "a", Version: "1.0.0", Checksum: "new"})
	idx.Add(&model.Manifest{Name: "a", Version: "2.0.0"})

	require.Len(t, idx.Packages, 2)
	assert.Equal(t, "new", idx.FindVersions("a")[0].Checksum)
}

func writeIndexFile(t *testing.T, dir, repo string, manifests ...*model.Manifest) {
	t.Helper()
	idx := NewIndex()
	for _, m := range manifests {
		idx.Add(m)
	}
	data, err := idx.ToJSON()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, repo+".json"), data, 0o644))
}

func TestManagerLookup(t *testing.T) {
	dir := t.TempDir()
	writeIndexFile(t, dir, "main",
		&model.Manifest{Name: "tool", Version: "1.0.0", Checksum: "main-1"},
		&model.Manifest{Name: "tool", Version: "2.0.0", Checksum: "main-2"},
	)
	writeIndexFile(t, dir, "extra",
		&model.Manifest{Name: "tool", Version: "2.0.0", Checksum: "extra-2"},
		&model.Manifest{Name: "tool", Version: "3.0.0", Checksum: "extra-3"},
	)

	// main listed first, so it wins for the shared version.
	m := NewManager([]*Repository{{Name: "main"}, {Name: "extra"}}, dir)

	got, err := m.Lookup("tool")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "3.0.0", got[0].Version)
	assert.Equal(t, "2.0.0", got[1].Version)
	assert.Equal(t, "main-2", got[1].Checksum)
	assert.Equal(t, "1.0.0", got[2].Version)
}

func TestManagerLookupNotFound(t *testing.T) {
	dir := t.TempDir()
	writeIndexFile(t, dir, "main", &model.Manifest{Name: "tool", Version: "1.0.0"})

	m := NewManager([]*Repository{{Name: "main"}}, dir)
	_, err := m.Lookup("ghost")
	assert.True(t, errors.Is(err, errors.ErrPackageNotFound))
}

func TestManagerLoadMissingIndexFile(t *testing.T) {
	m := NewManager([]*Repository{{Name: "main"}}, t.TempDir())
	assert.Error(t, m.Load())
}

func TestManagerSkipsUnparseableVersions(t *testing.T) {
	dir := t.TempDir()
	writeIndexFile(t, dir, "main",
		&model.Manifest{Name: "tool", Version: "not-a-version"},
		&model.Manifest{Name: "tool", Version: "1.0.0"},
	)

	m := NewManager([]*Repository{{Name: "main"}}, dir)
	got, err := m.Lookup("tool")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1.0.0", got[0].Version)
}
