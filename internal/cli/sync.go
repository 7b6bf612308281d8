package cli

import (
	"fmt"

	"github.com/ferropkg/ferrite/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download index files for all enabled repositories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd)
		},
	}

	return cmd
}

func runSync(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repos, err := indexRepositories(cfg)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		fmt.Println("No repositories configured")
		return nil
	}
	orch, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}

	opts := orchestrator.Options{Concurrency: cfg.Settings.MaxConcurrent}
	if err := orch.SyncAll(cmd.Context(), repos, cfg.IndexDir(), opts); err != nil {
		return fmt.Errorf("failed to sync repositories: %w", err)
	}
	fmt.Printf("Synced %d repositories\n", len(repos))
	return nil
}
