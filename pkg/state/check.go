package state

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/model"
	"github.com/ferropkg/ferrite/pkg/verify"
)

// Discrepancy describes one divergence between the store and the
// filesystem.
type Discrepancy struct {
	Package string
	Path    string
	// Kind is "missing" when the recorded file does not exist and
	// "modified" when its contents no longer match the recorded hash.
	Kind string
}

// Report is the result of cross-checking the store against the install
// root.
type Report struct {
	Discrepancies []Discrepancy
}

// Clean reports whether the store and the filesystem agree.
func (r *Report) Clean() bool { return len(r.Discrepancies) == 0 }

// Check cross-checks every recorded file of every installed package against
// the filesystem under installRoot. It is the startup consistency check: a
// crash between file replacement and the state store write leaves a
// divergence this detects.
func Check(store *Store, installRoot string) *Report {
	report := &Report{}
	for _, pkg := range store.All() {
		for _, file := range pkg.Files {
			full := filepath.Join(installRoot, filepath.FromSlash(file.Path))
			got, err := verify.HashFile(full)
			if err != nil {
				if os.IsNotExist(err) {
					report.Discrepancies = append(report.Discrepancies, Discrepancy{
						Package: pkg.Name, Path: file.Path, Kind: "missing",
					})
					continue
				}
				report.Discrepancies = append(report.Discrepancies, Discrepancy{
					Package: pkg.Name, Path: file.Path, Kind: "modified",
				})
				continue
			}
			if got != file.Hash {
				report.Discrepancies = append(report.Discrepancies, Discrepancy{
					Package: pkg.Name, Path: file.Path, Kind: "modified",
				})
			}
		}
	}
	sort.Slice(report.Discrepancies, func(i, j int) bool {
		a, b := report.Discrepancies[i], report.Discrepancies[j]
		if a.Package != b.Package {
			return a.Package < b.Package
		}
		return a.Path < b.Path
	})
	return report
}

// Repair reconciles the store with the filesystem so the consistency check
// passes again: entries for files that no longer exist are dropped, modified
// files adopt their current hash, and a package left without any files is
// removed entirely. The returned report lists what was reconciled; the
// caller is responsible for persisting the store under the state lock.
func Repair(store *Store, installRoot string) *Report {
	report := Check(store, installRoot)
	for _, d := range report.Discrepancies {
		pkg := store.Find(d.Package)
		if pkg == nil {
			continue
		}
		switch d.Kind {
		case "missing":
			pkg.Files = dropFileEntry(pkg.Files, d.Path)
		case "modified":
			full := filepath.Join(installRoot, filepath.FromSlash(d.Path))
			if hash, err := verify.HashFile(full); err == nil {
				adoptFileHash(pkg.Files, d.Path, hash)
			} else {
				pkg.Files = dropFileEntry(pkg.Files, d.Path)
			}
		}
		if len(pkg.Files) == 0 {
			store.Remove(pkg.Name)
		}
	}
	return report
}

func dropFileEntry(files []model.FileEntry, path string) []model.FileEntry {
	out := files[:0]
	for _, f := range files {
		if f.Path != path {
			out = append(out, f)
		}
	}
	return out
}

func adoptFileHash(files []model.FileEntry, path, hash string) {
	for i := range files {
		if files[i].Path == path {
			files[i].Hash = hash
			return
		}
	}
}

// Verify runs Check and converts a dirty report into ErrStateCorrupt.
// Mutating operations call this before doing anything else and refuse to
// proceed until the state is reconciled.
func Verify(store *Store, installRoot string) error {
	report := Check(store, installRoot)
	if report.Clean() {
		return nil
	}
	first := report.Discrepancies[0]
	return errors.Wrapf(errors.ErrStateCorrupt,
		"%d file(s) diverge from the state store (first: %s %s of %s); run doctor to reconcile",
		len(report.Discrepancies), first.Kind, first.Path, first.Package)
}
