package cli

import (
	"fmt"

	"github.com/ferropkg/ferrite/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewRemoveCmd creates the remove command.
func NewRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove PACKAGE",
		Short: "Remove an installed package",
		Long: `Remove an installed package and every file it owns. The removal is
refused if another installed package depends on it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, args[0])
		},
	}

	return cmd
}

func runRemove(cmd *cobra.Command, name string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}

	opts := orchestrator.Options{Concurrency: cfg.Settings.MaxConcurrent, DryRun: dryRun()}
	if err := orch.Remove(cmd.Context(), name, opts); err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}
