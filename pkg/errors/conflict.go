package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Constraint is one version requirement that participated in a conflict:
// what was required, on which package, and by whom. Origin is empty when the
// constraint came from the user request itself.
type Constraint struct {
	Package string
	Expr    string
	Origin  string
}

func (c Constraint) String() string {
	origin := c.Origin
	if origin == "" {
		origin = "requested"
	}
	return fmt.Sprintf("%s requires %s %s", origin, c.Package, c.Expr)
}

// ConflictError reports that no version assignment can satisfy the given
// constraint set. The set is minimal for the failed package and sorted, so
// identical inputs produce identical reports.
type ConflictError struct {
	Package     string
	Constraints []Constraint
}

func (e *ConflictError) Error() string {
	lines := make([]string, 0, len(e.Constraints))
	for _, c := range e.Constraints {
		lines = append(lines, "  "+c.String())
	}
	return fmt.Sprintf("%v for %s:\n%s", ErrResolutionConflict, e.Package, strings.Join(lines, "\n"))
}

func (e *ConflictError) Unwrap() error { return ErrResolutionConflict }

// NewConflictError builds a ConflictError with a deterministically ordered
// constraint set.
func NewConflictError(pkg string, constraints []Constraint) *ConflictError {
	sorted := make([]Constraint, len(constraints))
	copy(sorted, constraints)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Origin != sorted[j].Origin {
			return sorted[i].Origin < sorted[j].Origin
		}
		return sorted[i].Expr < sorted[j].Expr
	})
	return &ConflictError{Package: pkg, Constraints: sorted}
}

// FileConflictError reports either two packages claiming the same path or a
// removal blocked by a dependent. Exactly one of Path or Blocker is set.
type FileConflictError struct {
	Package string
	Other   string
	Path    string // contested path, for ownership conflicts
	Blocker string // blocking dependent, for removals
}

func (e *FileConflictError) Error() string {
	if e.Blocker != "" {
		return fmt.Sprintf("%v: cannot remove %s: required by %s", ErrFileConflict, e.Package, e.Blocker)
	}
	return fmt.Sprintf("%v: %s and %s both own %s", ErrFileConflict, e.Package, e.Other, e.Path)
}

func (e *FileConflictError) Unwrap() error { return ErrFileConflict }
