package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ferropkg/ferrite/pkg/archive"
	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/fsutil"
	"github.com/ferropkg/ferrite/pkg/model"
	"github.com/ferropkg/ferrite/pkg/verify"
)

// Generator builds a repository from a directory of package sources. Each
// package is a subdirectory containing a manifest.json (name, version,
// description, dependencies) and a files/ tree with the payload. The
// generator archives every payload, computes all checksums and writes the
// archives plus an index.json into the output directory.
type Generator struct {
	// SourceDir contains one subdirectory per package version.
	SourceDir string
	// OutputDir receives the artifact archives and the index file.
	OutputDir string
	// BaseURL is the URL prefix artifact references point at.
	BaseURL string
}

// sourceManifest is the authoring form of a manifest: everything except
// what the generator derives (checksum, size, URL, file hashes).
type sourceManifest struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Description  string             `json:"description,omitempty"`
	Dependencies []model.Dependency `json:"dependencies,omitempty"`
}

// Generate builds all artifacts and returns the generated index, which has
// also been written to <OutputDir>/index.json.
func (g *Generator) Generate(ctx context.Context) (*Index, error) {
	entries, err := os.ReadDir(g.SourceDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read source directory %s", g.SourceDir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	idx := NewIndex()
	for _, name := range names {
		manifest, err := g.buildOne(ctx, filepath.Join(g.SourceDir, name))
		if err != nil {
			return nil, errors.Wrapf(err, "package %s", name)
		}
		idx.Add(manifest)
	}

	data, err := idx.ToJSON()
	if err != nil {
		return nil, err
	}
	indexPath := filepath.Join(g.OutputDir, "index.json")
	if err := fsutil.WriteFileAtomic(indexPath, data, fsutil.FileModeDefault); err != nil {
		return nil, errors.Wrap(err, "failed to write index")
	}
	return idx, nil
}

func (g *Generator) buildOne(ctx context.Context, pkgDir string) (*model.Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(pkgDir, "manifest.json"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest.json")
	}
	var src sourceManifest
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest.json")
	}
	if src.Name == "" || src.Version == "" {
		return nil, errors.Wrap(errors.ErrValidation, "manifest.json needs name and version")
	}

	filesDir := filepath.Join(pkgDir, "files")
	fileEntries, err := hashTree(filesDir)
	if err != nil {
		return nil, err
	}

	archiveName := fmt.Sprintf("%s_%s.tar.gz", src.Name, src.Version)
	archivePath := filepath.Join(g.OutputDir, archiveName)
	if err := archive.NewManager().Create(ctx, filesDir, archivePath); err != nil {
		return nil, err
	}

	checksum, err := verify.HashFile(archivePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to checksum archive")
	}
	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat archive")
	}

	return &model.Manifest{
		Name:         src.Name,
		Version:      src.Version,
		Description:  src.Description,
		Dependencies: src.Dependencies,
		URL:          g.BaseURL + "/" + archiveName,
		Checksum:     checksum,
		Size:         info.Size(),
		Files:        fileEntries,
	}, nil
}

// hashTree walks root and returns a sorted FileEntry per regular file, with
// slash-separated paths relative to root.
func hashTree(root string) ([]model.FileEntry, error) {
	var out []model.FileEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		hash, err := verify.HashFile(path)
		if err != nil {
			return err
		}
		out = append(out, model.FileEntry{Path: filepath.ToSlash(rel), Hash: hash})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to hash files under %s", root)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
