package cli

import (
	"fmt"
	"strings"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var (
		concurrency int
		wantVersion string
	)

	cmd := &cobra.Command{
		Use:   "install PACKAGE[@VERSION]...",
		Short: "Install packages",
		Long: `Install one or more packages from the configured repositories.
Dependencies are resolved and installed automatically. Installing an
already-installed package at a different version upgrades it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, args, concurrency, wantVersion)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of parallel downloads (0=config default)")
	cmd.Flags().StringVar(&wantVersion, "version", "", "Version to install (single package only, alternative to name@version)")

	return cmd
}

func runInstall(cmd *cobra.Command, args []string, concurrency int, wantVersion string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if wantVersion != "" {
		if len(args) != 1 {
			return errors.Wrap(errors.ErrValidation, "--version requires exactly one package")
		}
		if strings.Contains(args[0], "@") {
			return errors.Wrapf(errors.ErrValidation, "cannot combine --version with %q", args[0])
		}
		args = []string{args[0] + "@" + wantVersion}
	}
	requests, err := ParseRequests(args)
	if err != nil {
		return err
	}
	orch, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}

	if concurrency == 0 {
		concurrency = cfg.Settings.MaxConcurrent
	}
	opts := orchestrator.Options{Concurrency: concurrency, DryRun: dryRun()}
	if err := orch.Install(cmd.Context(), requests, opts); err != nil {
		return fmt.Errorf("failed to install packages: %w", err)
	}
	return nil
}

func dryRun() bool {
	return DryRun != nil && *DryRun
}
