package plan

import (
	"sort"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/model"
)

// Build diffs the target set against the installed state and produces the
// ordered plan. It rejects file ownership conflicts and removals that would
// break a remaining package, both before anything could be staged.
func Build(target model.TargetSet, installed map[string]*model.InstalledPackage) (*Plan, error) {
	if err := checkFileOwnership(target); err != nil {
		return nil, err
	}

	changes, removals := diff(target, installed)
	if err := checkRemovals(target, removals); err != nil {
		return nil, err
	}

	ordered, err := orderChanges(target, changes)
	if err != nil {
		return nil, err
	}
	orderedRemovals, err := orderRemovals(installed, removals)
	if err != nil {
		return nil, err
	}

	return &Plan{Ops: append(ordered, orderedRemovals...)}, nil
}

// checkFileOwnership verifies that no two members of the target set claim
// the same path.
func checkFileOwnership(target model.TargetSet) error {
	owners := make(map[string]string)
	for _, name := range target.Names() {
		for _, file := range target[name].Manifest.Files {
			if other, taken := owners[file.Path]; taken {
				return &errors.FileConflictError{Package: other, Other: name, Path: file.Path}
			}
			owners[file.Path] = name
		}
	}
	return nil
}

// diff splits the target set into install/upgrade operations and the names
// to remove. Members already installed at the target version produce no
// operation.
func diff(target model.TargetSet, installed map[string]*model.InstalledPackage) ([]Operation, []string) {
	var changes []Operation
	for _, name := range target.Names() {
		want := target[name].Manifest
		have, ok := installed[name]
		switch {
		case !ok:
			changes = append(changes, Operation{Kind: OpInstall, Name: name, Version: want.Version})
		case have.Version != want.Version:
			changes = append(changes, Operation{Kind: OpUpgrade, Name: name, From: have.Version, To: want.Version})
		}
	}

	var removals []string
	for name := range installed {
		if !target.Contains(name) {
			removals = append(removals, name)
		}
	}
	sort.Strings(removals)
	return changes, removals
}

// checkRemovals verifies that nothing remaining depends on a removed
// package. The blocking dependent reported is the lexicographically first,
// so the error is deterministic.
func checkRemovals(target model.TargetSet, removals []string) error {
	for _, removed := range removals {
		for _, name := range target.Names() {
			if target[name].Manifest.DependsOn(removed) {
				return &errors.FileConflictError{Package: removed, Blocker: name}
			}
		}
	}
	return nil
}

// orderChanges topologically sorts install/upgrade operations so that
// dependencies precede dependents. Ties break by name, keeping the order
// stable across runs.
func orderChanges(target model.TargetSet, changes []Operation) ([]Operation, error) {
	changing := make(map[string]Operation, len(changes))
	for _, op := range changes {
		changing[op.Name] = op
	}

	// indegree counts unplaced dependencies that are themselves changing;
	// packages that are already installed and untouched impose no ordering.
	indegree := make(map[string]int, len(changing))
	dependents := make(map[string][]string, len(changing))
	for name := range changing {
		indegree[name] = 0
	}
	for name := range changing {
		for _, dep := range target[name].Manifest.Dependencies {
			if _, isChanging := changing[dep.Name]; isChanging {
				indegree[name]++
				dependents[dep.Name] = append(dependents[dep.Name], name)
			}
		}
	}

	ready := make([]string, 0, len(changing))
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	out := make([]Operation, 0, len(changing))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		out = append(out, changing[name])

		next := dependents[name]
		sort.Strings(next)
		for _, dependent := range next {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = insertSorted(ready, dependent)
			}
		}
	}

	if len(out) != len(changing) {
		stuck := make([]string, 0)
		for name, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, errors.Wrapf(errors.ErrValidation, "dependency cycle detected involving %s", stuck[0])
	}
	return out, nil
}

// orderRemovals orders removals so dependents are removed before their
// dependencies: the inverse of install order over the same graph, computed
// from the removed packages' recorded dependencies.
func orderRemovals(installed map[string]*model.InstalledPackage, removals []string) ([]Operation, error) {
	removing := make(map[string]struct{}, len(removals))
	for _, name := range removals {
		removing[name] = struct{}{}
	}

	// Dependency-first order over the removed set, then reversed.
	indegree := make(map[string]int, len(removals))
	dependents := make(map[string][]string, len(removals))
	for _, name := range removals {
		indegree[name] = 0
	}
	for _, name := range removals {
		for _, dep := range installed[name].Dependencies {
			if _, isRemoving := removing[dep.Name]; isRemoving {
				indegree[name]++
				dependents[dep.Name] = append(dependents[dep.Name], name)
			}
		}
	}

	ready := make([]string, 0, len(removals))
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	depsFirst := make([]string, 0, len(removals))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		depsFirst = append(depsFirst, name)

		next := dependents[name]
		sort.Strings(next)
		for _, dependent := range next {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = insertSorted(ready, dependent)
			}
		}
	}
	if len(depsFirst) != len(removals) {
		return nil, errors.Wrap(errors.ErrValidation, "dependency cycle detected among removed packages")
	}

	out := make([]Operation, 0, len(removals))
	for i := len(depsFirst) - 1; i >= 0; i-- {
		name := depsFirst[i]
		out = append(out, Operation{Kind: OpRemove, Name: name, Version: installed[name].Version})
	}
	return out, nil
}

func insertSorted(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}
