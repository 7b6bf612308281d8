//go:generate mockgen -destination=./mocks/orchestrator.go . PlanExecutor,Downloader

package orchestrator

import (
	"context"

	"github.com/ferropkg/ferrite/pkg/download"
	"github.com/ferropkg/ferrite/pkg/executor"
	"github.com/ferropkg/ferrite/pkg/model"
	"github.com/ferropkg/ferrite/pkg/plan"
	"github.com/ferropkg/ferrite/pkg/state"
)

// PlanExecutor is the subset of the executor used by the orchestrator.
type PlanExecutor interface {
	Execute(ctx context.Context, p *plan.Plan, target model.TargetSet, store *state.Store) (*executor.Transaction, error)
}

// Downloader handles index and artifact downloading.
type Downloader interface {
	FetchAll(ctx context.Context, items []download.Item, opts download.Options) (map[string]string, error)
}

// Event represents a simple progress notification.
type Event struct {
	Phase string // resolving|planning|staging|verifying|committing|done
	ID    string // step ID
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// Options control orchestrator execution.
type Options struct {
	Concurrency int
	DryRun      bool
}
