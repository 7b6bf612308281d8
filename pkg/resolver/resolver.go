// Package resolver implements dependency resolution: turning a set of
// requests plus the currently installed packages into a complete,
// conflict-free target set, or a deterministic conflict report.
//
// The search is a backtracking constraint solver over an explicit decision
// stack. Already-installed packages are fixed, pinned choices unless a
// request names them; candidate versions prefer the installed version (churn
// minimization) and otherwise the highest satisfying version. Dead ends
// backjump to the most recent decision that contributed a constraint on the
// failed package rather than blindly popping the stack.
package resolver

import (
	"sort"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/index"
	"github.com/ferropkg/ferrite/pkg/model"
	"github.com/hashicorp/go-version"
)

// anyVersion is the constraint used when a dependency or request does not
// name one.
const anyVersion = ">= 0.0.0"

// Resolver resolves requests against an index snapshot and the installed
// set. It has no side effects: identical inputs yield identical outputs.
type Resolver struct {
	idx       index.Lookup
	installed map[string]*model.InstalledPackage
}

// New creates a resolver over the given index snapshot and installed set.
func New(idx index.Lookup, installed map[string]*model.InstalledPackage) *Resolver {
	return &Resolver{idx: idx, installed: installed}
}

// Resolve computes the target set for the given requests. It returns
// ErrPackageNotFound if a requested or transitive name is unknown, or a
// ConflictError (wrapping ErrResolutionConflict) when the constraints are
// unsatisfiable.
func (r *Resolver) Resolve(requests []model.Request) (model.TargetSet, error) {
	s, err := newSolver(r.idx, r.installed, requests)
	if err != nil {
		return nil, err
	}
	return s.solve()
}

// constraintRec is one accumulated version requirement on a package. Origin
// is the package that imposed it; empty means the user request.
type constraintRec struct {
	expr   string
	origin string
}

// decision is one entry on the solver's stack: a package with its ordered
// candidate list and the candidate currently chosen.
type decision struct {
	name       string
	candidates []*model.Manifest
	choice     int
}

func (d *decision) chosen() *model.Manifest { return d.candidates[d.choice] }

// failure captures a package that cannot be satisfied and the constraints
// on it at the time of failure.
type failure struct {
	pkg  string
	cons []constraintRec
}

type solver struct {
	idx       index.Lookup
	installed map[string]*model.InstalledPackage
	requests  map[string]model.Request

	// pinned holds installed packages not named by any request; their
	// version is fixed for the whole solve.
	pinned map[string]*model.Manifest

	stack []*decision
}

func newSolver(idx index.Lookup, installed map[string]*model.InstalledPackage, requests []model.Request) (*solver, error) {
	reqs := make(map[string]model.Request, len(requests))
	for _, req := range requests {
		if req.Name == "" {
			return nil, errors.Wrap(errors.ErrValidation, "request with empty package name")
		}
		if req.Constraint != "" {
			if _, err := version.NewConstraint(req.Constraint); err != nil {
				return nil, errors.Wrapf(errors.ErrValidation, "invalid constraint %q for %s", req.Constraint, req.Name)
			}
		}
		if prev, dup := reqs[req.Name]; dup {
			// Two requests for one name AND their constraints together.
			req.Constraint = joinConstraints(prev.Constraint, req.Constraint)
		}
		reqs[req.Name] = req
	}

	s := &solver{
		idx:       idx,
		installed: installed,
		requests:  reqs,
		pinned:    make(map[string]*model.Manifest),
	}
	for name, inst := range installed {
		if _, requested := reqs[name]; !requested {
			s.pinned[name] = inst.AsManifest()
		}
	}
	return s, nil
}

func joinConstraints(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + ", " + b
}

func (s *solver) solve() (model.TargetSet, error) {
	for {
		constraints := s.replayConstraints()

		if fail := s.findViolation(constraints); fail != nil {
			if err := s.backjump(fail); err != nil {
				return nil, err
			}
			continue
		}

		name := s.nextUnresolved(constraints)
		if name == "" {
			return s.buildTarget(), nil
		}

		candidates, err := s.candidates(name, constraints[name])
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			if err := s.backjump(&failure{pkg: name, cons: constraints[name]}); err != nil {
				return nil, err
			}
			continue
		}
		s.stack = append(s.stack, &decision{name: name, candidates: candidates})
	}
}

// replayConstraints rebuilds the full constraint map from the requests, the
// pinned packages and the current decision stack. Rebuilding from scratch
// after every stack change keeps retraction trivial and the solve
// replayable.
func (s *solver) replayConstraints() map[string][]constraintRec {
	constraints := make(map[string][]constraintRec)

	for _, name := range sortedKeys(s.requests) {
		req := s.requests[name]
		expr := req.Constraint
		if expr == "" {
			expr = anyVersion
		}
		constraints[name] = append(constraints[name], constraintRec{expr: expr})
	}

	for _, name := range sortedKeys(s.pinned) {
		addDependencyConstraints(constraints, s.pinned[name])
	}

	for _, d := range s.stack {
		addDependencyConstraints(constraints, d.chosen())
	}
	return constraints
}

func addDependencyConstraints(constraints map[string][]constraintRec, m *model.Manifest) {
	for _, dep := range m.Dependencies {
		expr := dep.Constraint
		if expr == "" {
			expr = anyVersion
		}
		constraints[dep.Name] = append(constraints[dep.Name], constraintRec{expr: expr, origin: m.Name})
	}
}

// assignment returns the chosen manifest for name, whether pinned or
// decided, or nil.
func (s *solver) assignment(name string) *model.Manifest {
	if m, ok := s.pinned[name]; ok {
		return m
	}
	for _, d := range s.stack {
		if d.name == name {
			return d.chosen()
		}
	}
	return nil
}

// findViolation returns the first assigned package (in sorted name order)
// whose chosen version no longer satisfies its accumulated constraints.
// Violations appear when a later decision adds a constraint on an earlier
// choice.
func (s *solver) findViolation(constraints map[string][]constraintRec) *failure {
	for _, name := range sortedKeys(constraints) {
		chosen := s.assignment(name)
		if chosen == nil {
			continue
		}
		for _, rec := range constraints[name] {
			if !chosen.MatchVersion(rec.expr) {
				return &failure{pkg: name, cons: constraints[name]}
			}
		}
	}
	return nil
}

// nextUnresolved returns the first constrained package without an
// assignment, in sorted order, or "".
func (s *solver) nextUnresolved(constraints map[string][]constraintRec) string {
	for _, name := range sortedKeys(constraints) {
		if s.assignment(name) == nil {
			return name
		}
	}
	return ""
}

// candidates returns the ordered candidate versions for name under the
// given constraints: the installed version first when it satisfies them,
// then the remaining satisfying versions highest-first.
func (s *solver) candidates(name string, cons []constraintRec) ([]*model.Manifest, error) {
	available, err := s.idx.Lookup(name)
	if err != nil {
		if errors.Is(err, errors.ErrPackageNotFound) {
			if inst, ok := s.installed[name]; ok {
				// Installed but no longer indexed: the installed version is
				// the only candidate.
				available = []*model.Manifest{inst.AsManifest()}
			} else {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	satisfies := func(m *model.Manifest) bool {
		for _, rec := range cons {
			if !m.MatchVersion(rec.expr) {
				return false
			}
		}
		return true
	}

	var out []*model.Manifest
	if inst, ok := s.installed[name]; ok {
		for _, m := range available {
			if m.Version == inst.Version && satisfies(m) {
				out = append(out, m)
				break
			}
		}
	}
	for _, m := range available {
		if len(out) > 0 && m.Version == out[0].Version {
			continue
		}
		if satisfies(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// backjump advances the deepest decision implicated in the failure: either
// the failed package's own decision or one that contributed a constraint on
// it. Decisions above the jump target are discarded and re-derived later.
// When the target is out of candidates the jump degrades to chronological
// backtracking, advancing the decision below it, so the search stays
// complete. When the stack runs out the conflict is final and is reported
// with the constraint set of the original failure.
func (s *solver) backjump(fail *failure) error {
	implicated := map[string]struct{}{fail.pkg: {}}
	for _, rec := range fail.cons {
		if rec.origin != "" {
			implicated[rec.origin] = struct{}{}
		}
	}

	target := -1
	for i := len(s.stack) - 1; i >= 0; i-- {
		if _, ok := implicated[s.stack[i].name]; ok {
			target = i
			break
		}
	}

	for ; target >= 0; target-- {
		d := s.stack[target]
		s.stack = s.stack[:target+1]
		d.choice++
		if d.choice < len(d.candidates) {
			return nil
		}
		s.stack = s.stack[:target]
	}
	return conflictError(fail)
}

func conflictError(fail *failure) error {
	constraints := make([]errors.Constraint, 0, len(fail.cons))
	for _, rec := range fail.cons {
		constraints = append(constraints, errors.Constraint{
			Package: fail.pkg,
			Expr:    rec.expr,
			Origin:  rec.origin,
		})
	}
	return errors.NewConflictError(fail.pkg, constraints)
}

// buildTarget assembles the TargetSet from the pinned packages and the
// decision stack.
func (s *solver) buildTarget() model.TargetSet {
	target := make(model.TargetSet, len(s.pinned)+len(s.stack))

	for name, m := range s.pinned {
		target[name] = &model.Selection{
			Manifest: m,
			Reason:   s.installed[name].Reason,
			Pinned:   true,
		}
	}

	for _, d := range s.stack {
		target[d.name] = &model.Selection{
			Manifest: d.chosen(),
			Reason:   s.reasonFor(d.name),
		}
	}
	return target
}

func (s *solver) reasonFor(name string) model.InstallReason {
	if req, ok := s.requests[name]; ok {
		if req.Reason != "" {
			return req.Reason
		}
		return model.ReasonManual
	}
	if inst, ok := s.installed[name]; ok && inst.Reason == model.ReasonManual {
		// An explicit install never silently demotes to a dependency.
		return model.ReasonManual
	}
	return model.ReasonDependency
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
