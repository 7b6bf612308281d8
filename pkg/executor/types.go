package executor

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/ferropkg/ferrite/pkg/plan"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	// StatusPending means the transaction exists but nothing has happened.
	StatusPending Status = "pending"
	// StatusStaging means artifacts are being fetched and extracted into the
	// staging directory.
	StatusStaging Status = "staging"
	// StatusVerifying means staged trees are being checked against their
	// manifests.
	StatusVerifying Status = "verifying"
	// StatusCommitting means installed files are being replaced. The install
	// root is only touched in this state.
	StatusCommitting Status = "committing"
	// StatusCommitted means all files and the state store were written.
	StatusCommitted Status = "committed"
	// StatusFailed means the transaction aborted after the install root was
	// already modified; the state store was not updated.
	StatusFailed Status = "failed"
	// StatusRolledBack means the transaction aborted without modifying the
	// install root or the state store.
	StatusRolledBack Status = "rolled_back"
)

// Transaction tracks one execution of a plan.
type Transaction struct {
	ID         string
	Plan       *plan.Plan
	Status     Status
	StagingDir string
	StartedAt  time.Time
	FinishedAt time.Time
}

// newTransactionID returns a sortable, unique transaction identifier.
func newTransactionID(now time.Time) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return now.UTC().Format("20060102T150405") + "-" + hex.EncodeToString(buf)
}
