// Package plan computes the ordered operation list that transforms the
// installed state into a target set: which packages to install, upgrade or
// remove, and in which order. Planning is pure computation; nothing here
// touches the filesystem.
package plan

import "fmt"

// OpKind identifies the type of one plan operation.
type OpKind string

const (
	// OpInstall places a package that is not currently installed.
	OpInstall OpKind = "install"
	// OpUpgrade replaces an installed package with a different version.
	OpUpgrade OpKind = "upgrade"
	// OpRemove deletes an installed package.
	OpRemove OpKind = "remove"
)

// Operation is one step of a plan. Version carries the target version for
// installs and the removed version for removals; upgrades carry From and To.
type Operation struct {
	Kind    OpKind
	Name    string
	Version string
	From    string
	To      string
}

// ID returns a short identifier for logging and events.
func (op Operation) ID() string {
	switch op.Kind {
	case OpUpgrade:
		return fmt.Sprintf("%s@%s->%s", op.Name, op.From, op.To)
	default:
		return op.Name + "@" + op.Version
	}
}

func (op Operation) String() string {
	switch op.Kind {
	case OpInstall:
		return fmt.Sprintf("install %s %s", op.Name, op.Version)
	case OpUpgrade:
		return fmt.Sprintf("upgrade %s %s -> %s", op.Name, op.From, op.To)
	case OpRemove:
		return fmt.Sprintf("remove %s %s", op.Name, op.Version)
	}
	return string(op.Kind) + " " + op.Name
}

// Plan is an ordered sequence of operations. Installs and upgrades of a
// dependency always precede those of its dependents; removals run after all
// installs, dependents before their dependencies.
type Plan struct {
	Ops []Operation
}

// IsEmpty reports whether the plan contains no operations.
func (p *Plan) IsEmpty() bool { return len(p.Ops) == 0 }

// Changes returns the operations of the given kind, in plan order.
func (p *Plan) Changes(kind OpKind) []Operation {
	var out []Operation
	for _, op := range p.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}
