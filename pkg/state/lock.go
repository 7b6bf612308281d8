package state

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/fsutil"
	"github.com/gofrs/flock"
)

// lockRetryInterval is how often a blocked acquire re-attempts the flock.
const lockRetryInterval = 100 * time.Millisecond

// Lock is the system-wide advisory lock serializing every commit against
// one state store. Concurrent invocations of the tool queue behind it
// instead of interleaving writes.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock blocks until the lock next to statePath is held or ctx is
// done. The lock file lives alongside the store so all processes using the
// same store contend on the same file.
func AcquireLock(ctx context.Context, statePath string) (*Lock, error) {
	dir := filepath.Dir(statePath)
	if err := os.MkdirAll(dir, fsutil.DirModeDefault); err != nil {
		return nil, errors.Wrapf(errors.ErrTransactionIO, "cannot create state directory %s: %v", dir, err)
	}

	fl := flock.New(statePath + ".lock")
	ok, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to acquire state lock %s", fl.Path())
	}
	if !ok {
		return nil, errors.Wrapf(errors.ErrTransactionIO, "state lock %s not acquired", fl.Path())
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. The lock file itself is left in place; only the
// flock matters.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
