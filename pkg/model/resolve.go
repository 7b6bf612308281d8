package model

import "sort"

// Request describes what the user asked to resolve: a package name, an
// optional version constraint and the reason to record on success.
type Request struct {
	Name       string
	Constraint string // go-version constraint, empty means ">= 0.0.0"
	Reason     InstallReason
}

// Selection is one member of a TargetSet: the chosen manifest plus the
// reason it is part of the target state.
type Selection struct {
	Manifest *Manifest
	Reason   InstallReason
	// Pinned marks packages that were already installed at this version and
	// were kept unchanged by the resolver.
	Pinned bool
}

// TargetSet is the resolver output: the complete, conflict-free set of
// packages the system should converge to, keyed by package name. Every
// dependency constraint of every member is satisfied by another member.
type TargetSet map[string]*Selection

// Names returns the member names in sorted order. All iteration over a
// TargetSet must go through this to stay deterministic.
func (t TargetSet) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether the set has a member with the given name.
func (t TargetSet) Contains(name string) bool {
	_, ok := t[name]
	return ok
}
