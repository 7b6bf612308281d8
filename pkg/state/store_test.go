package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pkg(name, version string, reason model.InstallReason, deps ...model.Dependency) *model.InstalledPackage {
	return &model.InstalledPackage{
		Name:         name,
		Version:      version,
		Reason:       reason,
		Dependencies: deps,
		InstalledAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestLoadMissingFileYieldsEmptyStore(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	assert.Empty(t, store.Packages)
	assert.Equal(t, SchemaVersion, store.SchemaVersion)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore()
	store.Add(pkg("app", "1.0.0", model.ReasonManual, model.Dependency{Name: "lib"}))
	store.Add(pkg("lib", "2.0.0", model.ReasonDependency))

	require.NoError(t, store.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Packages, 2)
	assert.Equal(t, "1.0.0", loaded.Find("app").Version)
	assert.Equal(t, model.ReasonDependency, loaded.Find("lib").Reason)
	assert.True(t, loaded.IsInstalled("lib"))
	assert.False(t, loaded.IsInstalled("ghost"))
}

func TestLoadCorruptStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0o644))

	_, err := Load(path)
	assert.True(t, errors.Is(err, errors.ErrStateCorrupt))
}

func TestLoadUnknownSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version": "99", "packages": {}}`), 0o644))

	_, err := Load(path)
	assert.True(t, errors.Is(err, errors.ErrStateCorrupt))
}

func TestLoadInconsistentEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	doc := `{"schema_version": "1", "packages": {"app": {"name": "other", "version": "1.0.0", "files": [], "installed_at": "2025-01-01T00:00:00Z", "reason": "manual"}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := Load(path)
	assert.True(t, errors.Is(err, errors.ErrStateCorrupt))
}

func TestAddSetsInstalledAt(t *testing.T) {
	store := NewStore()
	store.Add(&model.InstalledPackage{Name: "a", Version: "1.0.0"})
	assert.False(t, store.Find("a").InstalledAt.IsZero())
}

func TestRemove(t *testing.T) {
	store := NewStore()
	store.Add(pkg("a", "1.0.0", model.ReasonManual))
	assert.True(t, store.Remove("a"))
	assert.False(t, store.Remove("a"))
}

func TestAllSorted(t *testing.T) {
	store := NewStore()
	store.Add(pkg("zeta", "1.0.0", model.ReasonManual))
	store.Add(pkg("alpha", "1.0.0", model.ReasonManual))

	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "zeta", all[1].Name)
}

func TestSnapshotIsolation(t *testing.T) {
	store := NewStore()
	store.Add(pkg("a", "1.0.0", model.ReasonManual))

	snap := store.Snapshot()
	store.Remove("a")
	assert.Contains(t, snap, "a")
}

func TestOrphans(t *testing.T) {
	store := NewStore()
	store.Add(pkg("app", "1.0.0", model.ReasonManual, model.Dependency{Name: "used"}))
	store.Add(pkg("used", "1.0.0", model.ReasonDependency))
	store.Add(pkg("loose", "1.0.0", model.ReasonDependency))
	store.Add(pkg("standalone", "1.0.0", model.ReasonManual))

	assert.Equal(t, []string{"loose"}, store.Orphans())
}

func TestAcquireLockSerializes(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")

	lock, err := AcquireLock(context.Background(), statePath)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = AcquireLock(ctx, statePath)
	assert.Error(t, err)

	require.NoError(t, lock.Release())

	again, err := AcquireLock(context.Background(), statePath)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func writeInstalledFile(t *testing.T, root, rel, content string) model.FileEntry {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	sum := sha256.Sum256([]byte(content))
	return model.FileEntry{Path: rel, Hash: hex.EncodeToString(sum[:])}
}

func TestCheckCleanAndDirty(t *testing.T) {
	root := t.TempDir()
	store := NewStore()

	entry := writeInstalledFile(t, root, "bin/tool", "binary")
	p := pkg("tool", "1.0.0", model.ReasonManual)
	p.Files = []model.FileEntry{entry}
	store.Add(p)

	report := Check(store, root)
	assert.True(t, report.Clean())
	assert.NoError(t, Verify(store, root))

	// Modify the file behind the store's back.
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin", "tool"), []byte("tampered"), 0o644))

	report = Check(store, root)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, "modified", report.Discrepancies[0].Kind)
	assert.Equal(t, "bin/tool", report.Discrepancies[0].Path)

	err := Verify(store, root)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStateCorrupt))
	assert.Contains(t, err.Error(), "doctor")
}

func TestCheckMissingFile(t *testing.T) {
	root := t.TempDir()
	store := NewStore()

	p := pkg("tool", "1.0.0", model.ReasonManual)
	p.Files = []model.FileEntry{{Path: "bin/tool", Hash: "abc"}}
	store.Add(p)

	report := Check(store, root)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, "missing", report.Discrepancies[0].Kind)
}

func TestRepairReconcilesStore(t *testing.T) {
	root := t.TempDir()
	store := NewStore()

	kept := writeInstalledFile(t, root, "bin/tool", "binary")
	gone := writeInstalledFile(t, root, "share/tool.md", "docs")
	p := pkg("tool", "1.0.0", model.ReasonManual)
	p.Files = []model.FileEntry{kept, gone}
	store.Add(p)

	// One file is modified behind the store's back, one disappears.
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin", "tool"), []byte("patched"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(root, "share", "tool.md")))
	require.Error(t, Verify(store, root))

	report := Repair(store, root)
	require.Len(t, report.Discrepancies, 2)

	// The modified file's hash is adopted, the missing entry is dropped, and
	// the consistency check passes again.
	assert.NoError(t, Verify(store, root))
	files := store.Find("tool").Files
	require.Len(t, files, 1)
	assert.Equal(t, "bin/tool", files[0].Path)
	assert.NotEqual(t, kept.Hash, files[0].Hash)
}

func TestRepairDropsPackageWithNoFilesLeft(t *testing.T) {
	root := t.TempDir()
	store := NewStore()

	p := pkg("ghost", "1.0.0", model.ReasonManual)
	p.Files = []model.FileEntry{{Path: "bin/ghost", Hash: "abc"}}
	store.Add(p)

	Repair(store, root)
	assert.False(t, store.IsInstalled("ghost"))
	assert.NoError(t, Verify(store, root))
}
