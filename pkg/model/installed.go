package model

import "time"

// InstallReason tracks why a package was installed.
type InstallReason string

const (
	// ReasonManual indicates the package was requested explicitly by the user.
	ReasonManual InstallReason = "manual"
	// ReasonDependency indicates the package was pulled in as a dependency.
	ReasonDependency InstallReason = "dependency"
)

// InstalledPackage is the durable record of one installed package: the
// version on disk, the files it owns (with their recorded hashes) and why it
// was installed.
type InstalledPackage struct {
	Name          string        `json:"name"`
	Version       string        `json:"version"`
	Files         []FileEntry   `json:"files"`
	InstalledAt   time.Time     `json:"installed_at"`
	InstalledFrom string        `json:"installed_from,omitempty"`
	Checksum      string        `json:"checksum,omitempty"`
	Dependencies  []Dependency  `json:"dependencies,omitempty"`
	Reason        InstallReason `json:"reason"`
}

// AsManifest reconstructs a manifest from the installed record, used when a
// package must participate in resolution or planning without an index entry.
func (p *InstalledPackage) AsManifest() *Manifest {
	return &Manifest{
		Name:         p.Name,
		Version:      p.Version,
		Dependencies: p.Dependencies,
		URL:          p.InstalledFrom,
		Checksum:     p.Checksum,
		Files:        p.Files,
	}
}

// DependsOn reports whether this package declares a dependency on name.
func (p *InstalledPackage) DependsOn(name string) bool {
	for _, d := range p.Dependencies {
		if d.Name == name {
			return true
		}
	}
	return false
}
