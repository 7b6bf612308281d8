// Package index implements the manifest index: the read-only catalogue of
// available package versions the resolver draws candidates from. Index files
// are versioned JSON documents, one per repository, synced into the local
// index directory.
package index

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/model"
)

// FormatVersion is the index file schema version this build reads and writes.
const FormatVersion = "1"

// Index is one repository's parsed index file.
type Index struct {
	FormatVersion string            `json:"format_version"`
	LastUpdate    time.Time         `json:"last_update"`
	Packages      []*model.Manifest `json:"packages"`
}

// NewIndex creates an empty index with the current timestamp.
func NewIndex() *Index {
	return &Index{
		FormatVersion: FormatVersion,
		LastUpdate:    time.Now().UTC(),
		Packages:      make([]*model.Manifest, 0),
	}
}

// ParseIndex parses an index from JSON data.
func ParseIndex(data []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, errors.Wrap(err, "failed to parse index")
	}
	if idx.FormatVersion == "" {
		return nil, fmt.Errorf("missing format version in index")
	}
	return &idx, nil
}

// ParseIndexFromReader parses an index from an io.Reader.
func ParseIndexFromReader(reader io.Reader) (*Index, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read index data")
	}
	return ParseIndex(data)
}

// ParseIndexFromFile parses the index file at filePath.
func ParseIndexFromFile(filePath string) (*Index, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open index file %s", filePath)
	}
	defer func() { _ = file.Close() }()
	return ParseIndexFromReader(file)
}

// ToJSON converts the index to indented JSON bytes.
func (idx *Index) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal index to JSON")
	}
	return data, nil
}

// FindVersions returns all manifests for the given package name, in file
// order.
func (idx *Index) FindVersions(name string) []*model.Manifest {
	var out []*model.Manifest
	for _, m := range idx.Packages {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Add appends a manifest, replacing an existing entry with the same name and
// version.
func (idx *Index) Add(m *model.Manifest) {
	for i := range idx.Packages {
		if idx.Packages[i].Name == m.Name && idx.Packages[i].Version == m.Version {
			idx.Packages[i] = m
			idx.LastUpdate = time.Now().UTC()
			return
		}
	}
	idx.Packages = append(idx.Packages, m)
	idx.LastUpdate = time.Now().UTC()
}
