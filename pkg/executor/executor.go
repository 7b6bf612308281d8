// Package executor turns a plan into filesystem changes transactionally:
// stage everything outside the install root, verify the staged trees, then
// commit with per-file atomic replacement and a single atomic state store
// write as the last step. Any failure before that last step leaves the
// previous state fully intact.
package executor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ferropkg/ferrite/internal/logger"
	"github.com/ferropkg/ferrite/pkg/archive"
	"github.com/ferropkg/ferrite/pkg/download"
	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/fsutil"
	"github.com/ferropkg/ferrite/pkg/model"
	"github.com/ferropkg/ferrite/pkg/plan"
	"github.com/ferropkg/ferrite/pkg/state"
	"github.com/ferropkg/ferrite/pkg/verify"
	"golang.org/x/sync/errgroup"
)

// Options configure an Executor.
type Options struct {
	InstallRoot string // final destination for package files
	StagingDir  string // parent of per-transaction staging directories
	CacheDir    string // artifact download cache
	StatePath   string // state store location, also anchors the lock
	HistoryPath string // audit log; empty disables it
	Concurrency int    // bound for fetch and extract workers

	// OnStatus, when set, is called on every transaction status change.
	OnStatus func(Status)
}

// Executor executes plans. It is safe to reuse across transactions but not
// for concurrent Execute calls from one process; cross-process exclusion is
// handled by the state lock during commit.
type Executor struct {
	fetcher  download.Fetcher
	archiver *archive.Manager
	verifier *verify.Verifier
	opts     Options
}

// New creates an Executor around the given fetcher.
func New(fetcher download.Fetcher, opts Options) *Executor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Executor{
		fetcher:  fetcher,
		archiver: archive.NewManager(),
		verifier: verify.NewVerifier(),
		opts:     opts,
	}
}

// Execute runs the plan against the store. The target set supplies the
// manifests and install reasons for every install/upgrade operation. On
// success the returned transaction is Committed and the store has been
// persisted; on error the transaction status tells whether the install root
// was left untouched (RolledBack) or needs reconciliation (Failed).
func (e *Executor) Execute(ctx context.Context, p *plan.Plan, target model.TargetSet, store *state.Store) (*Transaction, error) {
	now := time.Now()
	tx := &Transaction{
		ID:        newTransactionID(now),
		Plan:      p,
		Status:    StatusPending,
		StartedAt: now.UTC(),
	}
	tx.StagingDir = filepath.Join(e.opts.StagingDir, tx.ID)

	err := e.run(ctx, tx, target, store)
	tx.FinishedAt = time.Now().UTC()
	e.appendHistory(tx, err)
	return tx, err
}

func (e *Executor) run(ctx context.Context, tx *Transaction, target model.TargetSet, store *state.Store) error {
	changes := changeOps(tx.Plan)

	if err := e.stage(ctx, tx, changes, target); err != nil {
		e.rollback(tx)
		return err
	}
	if err := e.verifyStaged(ctx, tx, changes, target); err != nil {
		e.rollback(tx)
		return err
	}
	if err := e.commit(ctx, tx, target, store); err != nil {
		return err
	}

	e.setStatus(tx, StatusCommitted)
	if err := os.RemoveAll(tx.StagingDir); err != nil {
		logger.Warnf("Could not clean staging directory %s: %v", tx.StagingDir, err)
	}
	return nil
}

func (e *Executor) setStatus(tx *Transaction, s Status) {
	tx.Status = s
	if e.opts.OnStatus != nil {
		e.opts.OnStatus(s)
	}
}

// stage fetches and extracts every changed package into the per-transaction
// staging directory. Nothing under the install root is touched here.
func (e *Executor) stage(ctx context.Context, tx *Transaction, changes []plan.Operation, target model.TargetSet) error {
	e.setStatus(tx, StatusStaging)
	if len(changes) == 0 {
		return nil
	}
	if err := os.MkdirAll(tx.StagingDir, fsutil.DirModeDefault); err != nil {
		return errors.Wrapf(errors.ErrTransactionIO, "cannot create staging directory %s: %v", tx.StagingDir, err)
	}

	items := make([]download.Item, 0, len(changes))
	for _, op := range changes {
		m := target[op.Name].Manifest
		items = append(items, download.Item{
			ID:       m.Name,
			URL:      m.GetURL(),
			Filename: m.ID() + ".tar.gz",
			Checksum: m.Checksum,
		})
	}
	fetched, err := e.fetcher.FetchAll(ctx, items, download.Options{
		Dir:         e.opts.CacheDir,
		Concurrency: e.opts.Concurrency,
	})
	if err != nil {
		return err
	}

	// Validate up front so a missing artifact can never abort while
	// extraction goroutines are still running against the staging dir.
	for _, op := range changes {
		m := target[op.Name].Manifest
		if _, ok := fetched[m.Name]; !ok {
			return errors.Wrapf(errors.ErrTransactionIO, "no artifact fetched for %s", m.ID())
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for _, op := range changes {
		m := target[op.Name].Manifest
		archivePath := fetched[m.Name]
		g.Go(func() error {
			if err := e.verifier.Checksum(archivePath, m.Checksum); err != nil {
				return errors.Wrapf(err, "artifact for %s", m.ID())
			}
			dest := filepath.Join(tx.StagingDir, m.Name)
			if err := e.archiver.ExtractAll(ctx, archivePath, dest); err != nil {
				return errors.Wrapf(errors.ErrTransactionIO, "cannot extract %s: %v", m.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// verifyStaged checks every staged file against the manifest file list. A
// single mismatch fails the whole transaction.
func (e *Executor) verifyStaged(ctx context.Context, tx *Transaction, changes []plan.Operation, target model.TargetSet) error {
	e.setStatus(tx, StatusVerifying)
	for _, op := range changes {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := target[op.Name].Manifest
		staged := filepath.Join(tx.StagingDir, m.Name)
		if err := e.verifier.Files(staged, m.Files); err != nil {
			return errors.Wrapf(err, "staged tree for %s", m.ID())
		}
	}
	return nil
}

// commit applies the plan to the install root under the state lock and
// persists the store as the single last step. Once the first file has been
// replaced, a failure can no longer be rolled back; the transaction turns
// Failed and the startup consistency check takes over.
func (e *Executor) commit(ctx context.Context, tx *Transaction, target model.TargetSet, store *state.Store) error {
	e.setStatus(tx, StatusCommitting)

	lock, err := state.AcquireLock(ctx, e.opts.StatePath)
	if err != nil {
		e.rollback(tx)
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warnf("Could not release state lock: %v", err)
		}
	}()

	// The store was read before the lock was taken. If another process
	// committed in between, writing this snapshot would silently drop its
	// entries; abort instead, nothing has been mutated yet.
	persisted, err := state.Load(e.opts.StatePath)
	if err != nil {
		e.rollback(tx)
		return err
	}
	if !persisted.UpdatedAt.Equal(store.UpdatedAt) {
		e.rollback(tx)
		return errors.Wrap(errors.ErrTransactionIO, "state store changed since it was read; rerun the operation")
	}

	// mutated flips on the first successful file replacement or removal, not
	// per operation: an operation failing halfway has already touched the
	// install root and can no longer be rolled back.
	mutated := false
	onMutate := func() { mutated = true }
	fail := func(err error) error {
		if !mutated {
			e.rollback(tx)
			return err
		}
		e.setStatus(tx, StatusFailed)
		return errors.Wrapf(err, "transaction %s aborted mid-commit; run doctor to reconcile", tx.ID)
	}

	for _, op := range tx.Plan.Ops {
		// The in-flight operation always finishes; cancellation is only
		// honored between operations.
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		switch op.Kind {
		case plan.OpInstall, plan.OpUpgrade:
			if err := e.commitChange(tx, op, target, store, onMutate); err != nil {
				return fail(err)
			}
		case plan.OpRemove:
			if err := e.commitRemove(op, store, onMutate); err != nil {
				return fail(err)
			}
		}
	}

	if err := store.Save(e.opts.StatePath); err != nil {
		return fail(err)
	}
	return nil
}

// commitChange moves every staged file of one package into the install root
// and updates the in-memory store. For upgrades, files owned by the old
// version but absent from the new one are deleted afterwards.
func (e *Executor) commitChange(tx *Transaction, op plan.Operation, target model.TargetSet, store *state.Store, onMutate func()) error {
	sel := target[op.Name]
	m := sel.Manifest
	stagedRoot := filepath.Join(tx.StagingDir, m.Name)
	for _, file := range m.Files {
		src := filepath.Join(stagedRoot, filepath.FromSlash(file.Path))
		dst := filepath.Join(e.opts.InstallRoot, filepath.FromSlash(file.Path))
		if err := os.MkdirAll(filepath.Dir(dst), fsutil.DirModeDefault); err != nil {
			return errors.Wrapf(errors.ErrTransactionIO, "cannot create directory for %s: %v", file.Path, err)
		}
		if err := fsutil.ReplaceFile(src, dst); err != nil {
			return errors.Wrapf(errors.ErrTransactionIO, "cannot install %s of %s: %v", file.Path, m.ID(), err)
		}
		onMutate()
	}

	if op.Kind == plan.OpUpgrade {
		if prev := store.Find(op.Name); prev != nil {
			e.removeOrphanedFiles(prev, m)
		}
	}

	store.Add(&model.InstalledPackage{
		Name:          m.Name,
		Version:       m.Version,
		Files:         m.Files,
		InstalledFrom: m.URL,
		Checksum:      m.Checksum,
		Dependencies:  m.Dependencies,
		Reason:        sel.Reason,
	})
	return nil
}

// removeOrphanedFiles deletes files the previous version owned that the new
// version does not. Deletion failures are logged, not fatal: the file list
// in the store is about to be replaced either way.
func (e *Executor) removeOrphanedFiles(prev *model.InstalledPackage, next *model.Manifest) {
	kept := make(map[string]struct{}, len(next.Files))
	for _, f := range next.Files {
		kept[f.Path] = struct{}{}
	}
	for _, f := range prev.Files {
		if _, ok := kept[f.Path]; ok {
			continue
		}
		full := filepath.Join(e.opts.InstallRoot, filepath.FromSlash(f.Path))
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			logger.Warnf("Could not remove replaced file %s: %v", full, err)
		}
		e.pruneEmptyDirs(filepath.Dir(full))
	}
}

// commitRemove deletes every file of one removed package and drops it from
// the in-memory store.
func (e *Executor) commitRemove(op plan.Operation, store *state.Store, onMutate func()) error {
	pkg := store.Find(op.Name)
	if pkg == nil {
		return errors.Wrapf(errors.ErrStateCorrupt, "package %s scheduled for removal is not in the store", op.Name)
	}
	for _, file := range pkg.Files {
		full := filepath.Join(e.opts.InstallRoot, filepath.FromSlash(file.Path))
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(errors.ErrTransactionIO, "cannot remove %s of %s: %v", file.Path, op.Name, err)
		}
		onMutate()
		e.pruneEmptyDirs(filepath.Dir(full))
	}
	store.Remove(op.Name)
	return nil
}

// pruneEmptyDirs removes now-empty directories between dir and the install
// root, best effort.
func (e *Executor) pruneEmptyDirs(dir string) {
	root := filepath.Clean(e.opts.InstallRoot)
	for dir != root && len(dir) > len(root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// rollback discards the staging directory. It is only valid while nothing
// under the install root has been modified.
func (e *Executor) rollback(tx *Transaction) {
	if err := os.RemoveAll(tx.StagingDir); err != nil {
		logger.Warnf("Could not remove staging directory %s: %v", tx.StagingDir, err)
	}
	e.setStatus(tx, StatusRolledBack)
}

func changeOps(p *plan.Plan) []plan.Operation {
	out := make([]plan.Operation, 0, len(p.Ops))
	out = append(out, p.Changes(plan.OpInstall)...)
	out = append(out, p.Changes(plan.OpUpgrade)...)
	return out
}
