package executor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/ferropkg/ferrite/internal/logger"
	"github.com/ferropkg/ferrite/pkg/fsutil"
)

// historyEntry is one line of the audit log: the outcome of one transaction.
type historyEntry struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Operations []string  `json:"operations"`
	Error      string    `json:"error,omitempty"`
}

// appendHistory appends the transaction outcome to the audit log. The log is
// advisory; failures are logged and swallowed so they can never fail a
// transaction after the fact.
func (e *Executor) appendHistory(tx *Transaction, txErr error) {
	if e.opts.HistoryPath == "" {
		return
	}

	entry := historyEntry{
		ID:         tx.ID,
		Status:     tx.Status,
		StartedAt:  tx.StartedAt,
		FinishedAt: tx.FinishedAt,
	}
	for _, op := range tx.Plan.Ops {
		entry.Operations = append(entry.Operations, op.String())
	}
	if txErr != nil {
		entry.Error = txErr.Error()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		logger.Warnf("Could not marshal history entry: %v", err)
		return
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(e.opts.HistoryPath), fsutil.DirModeDefault); err != nil {
		logger.Warnf("Could not create history directory: %v", err)
		return
	}
	f, err := os.OpenFile(e.opts.HistoryPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fsutil.FileModeDefault)
	if err != nil {
		logger.Warnf("Could not open history log: %v", err)
		return
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(line); err != nil {
		logger.Warnf("Could not append history entry: %v", err)
	}
}
