// Package orchestrator ties index, resolver, planner and executor together
// behind the two user-facing mutations, install and remove. It owns the
// phase ordering: resolve, plan, consistency check, execute. Dry runs stop
// after planning and touch nothing.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/ferropkg/ferrite/pkg/download"
	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/index"
	"github.com/ferropkg/ferrite/pkg/model"
	"github.com/ferropkg/ferrite/pkg/plan"
	"github.com/ferropkg/ferrite/pkg/resolver"
	"github.com/ferropkg/ferrite/pkg/state"
)

// Orchestrator wires the collaborators for install, remove and index sync.
type Orchestrator struct {
	Index       index.Lookup
	DL          Downloader
	Executor    PlanExecutor
	Hooks       Hooks
	StatePath   string
	InstallRoot string
}

// New constructs an Orchestrator from existing collaborators. Helper for
// wiring; Hooks can be zero if no event handling is needed.
func New(idx index.Lookup, dl Downloader, exec PlanExecutor, hooks Hooks, statePath, installRoot string) *Orchestrator {
	return &Orchestrator{
		Index:       idx,
		DL:          dl,
		Executor:    exec,
		Hooks:       hooks,
		StatePath:   statePath,
		InstallRoot: installRoot,
	}
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// SyncAll downloads index files for the provided repositories into indexDir.
// The caller decides which repositories to pass (e.g. enabled-only).
func (o *Orchestrator) SyncAll(ctx context.Context, repos []*index.Repository, indexDir string, opts Options) error {
	if o.DL == nil {
		return fmt.Errorf("download manager is not configured")
	}
	items := make([]download.Item, 0, len(repos))
	for _, r := range repos {
		if r == nil || r.URL == nil {
			continue
		}
		items = append(items, download.Item{
			ID:       r.Name,
			URL:      r.URL,
			Filename: r.Name + ".json",
		})
	}
	if len(items) == 0 {
		return nil
	}
	_, err := o.DL.FetchAll(ctx, items, download.Options{Dir: indexDir, Concurrency: opts.Concurrency})
	return err
}

// Install resolves the requests against the index and the installed state
// and executes the resulting plan. Requesting an already-installed name at a
// different version is an upgrade; at the same version it is a no-op.
func (o *Orchestrator) Install(ctx context.Context, requests []model.Request, opts Options) error {
	if o.Index == nil {
		return fmt.Errorf("index manager is not configured")
	}

	store, err := state.Load(o.StatePath)
	if err != nil {
		return err
	}

	for _, req := range requests {
		emit(o.Hooks, Event{Phase: "resolving", Msg: req.Name})
	}
	target, err := resolver.New(o.Index, store.Snapshot()).Resolve(requests)
	if err != nil {
		return err
	}

	return o.execute(ctx, target, store, opts)
}

// Remove drops one installed package. The target state is simply the
// installed set minus the package; the planner rejects the removal if a
// remaining package depends on it.
func (o *Orchestrator) Remove(ctx context.Context, name string, opts Options) error {
	store, err := state.Load(o.StatePath)
	if err != nil {
		return err
	}
	if !store.IsInstalled(name) {
		return errors.Wrapf(errors.ErrPackageNotFound, "%s is not installed", name)
	}

	emit(o.Hooks, Event{Phase: "resolving", Msg: name})
	target := make(model.TargetSet, len(store.Packages))
	for _, pkg := range store.All() {
		if pkg.Name == name {
			continue
		}
		target[pkg.Name] = &model.Selection{
			Manifest: pkg.AsManifest(),
			Reason:   pkg.Reason,
			Pinned:   true,
		}
	}

	return o.execute(ctx, target, store, opts)
}

// execute is the shared tail of Install and Remove: plan, dry-run or
// consistency-check, then hand the plan to the executor.
func (o *Orchestrator) execute(ctx context.Context, target model.TargetSet, store *state.Store, opts Options) error {
	emit(o.Hooks, Event{Phase: "planning"})
	p, err := plan.Build(target, store.Snapshot())
	if err != nil {
		return err
	}
	if p.IsEmpty() {
		emit(o.Hooks, Event{Phase: "done", Msg: "nothing to do"})
		return nil
	}
	for _, op := range p.Ops {
		emit(o.Hooks, Event{Phase: "planning", ID: op.ID(), Msg: op.String()})
	}

	if opts.DryRun {
		emit(o.Hooks, Event{Phase: "done", Msg: "dry-run"})
		return nil
	}

	if o.Executor == nil {
		return fmt.Errorf("executor is not configured")
	}
	if err := state.Verify(store, o.InstallRoot); err != nil {
		return err
	}

	if _, err := o.Executor.Execute(ctx, p, target, store); err != nil {
		return err
	}
	emit(o.Hooks, Event{Phase: "done"})
	return nil
}
