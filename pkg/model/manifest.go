// Package model provides the data structures shared by the index, resolver,
// planner and executor: package manifests, installed state and resolution
// requests.
package model

import (
	"net/url"

	"github.com/hashicorp/go-version"
)

// Dependency represents a dependency on another package with an optional
// version constraint in go-version syntax (e.g. ">= 1.0.0, < 2.0.0").
type Dependency struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint,omitempty"`
}

// FileEntry declares ownership of one install-root-relative path together
// with the SHA256 hash of its contents.
type FileEntry struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// Manifest describes one version of a package as published in an index:
// its dependencies, the artifact location and checksum, and the files the
// package will own once installed. Manifests are immutable once loaded.
type Manifest struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Description  string       `json:"description,omitempty"`
	URL          string       `json:"url"`
	Checksum     string       `json:"checksum"`
	Size         int64        `json:"size,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	Files        []FileEntry  `json:"files"`
}

// ID returns the canonical name@version identifier.
func (m *Manifest) ID() string {
	return m.Name + "@" + m.Version
}

// GetVersion returns the parsed version, or nil if it does not parse.
func (m *Manifest) GetVersion() *version.Version {
	v, err := version.NewVersion(m.Version)
	if err != nil {
		return nil
	}
	return v
}

// MatchVersion reports whether this manifest's version satisfies the given
// constraint expression.
func (m *Manifest) MatchVersion(constraint string) bool {
	c, err := version.NewConstraint(constraint)
	if err != nil {
		return false
	}
	v := m.GetVersion()
	if v == nil {
		return false
	}
	return c.Check(v)
}

// DependsOn reports whether this manifest declares a dependency on name.
func (m *Manifest) DependsOn(name string) bool {
	for _, d := range m.Dependencies {
		if d.Name == name {
			return true
		}
	}
	return false
}

// GetURL returns the parsed artifact URL, or nil if it does not parse.
func (m *Manifest) GetURL() *url.URL {
	parsed, err := url.Parse(m.URL)
	if err != nil {
		return nil
	}
	return parsed
}
