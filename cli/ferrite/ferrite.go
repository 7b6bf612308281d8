package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ferropkg/ferrite/internal/cli"
	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dryRun     bool
	noColor    bool
	logLevel   string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(errors.ExitCode(err))
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ferrite",
		Short: "A transactional host-level package manager",
		Long: `ferrite installs, upgrades and removes packages on a host with:
- full dependency resolution against repository indexes
- all-or-nothing transactions: stage, verify, commit
- a durable state store that always matches the filesystem`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "resolve and print actions without executing")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.DryRun = &dryRun
	cli.NoColor = &noColor
	cli.LogLevel = &logLevel

	// Add subcommands
	cmd.AddCommand(
		cli.NewSyncCmd(),
		cli.NewInstallCmd(),
		cli.NewRemoveCmd(),
		cli.NewListCmd(),
		cli.NewInfoCmd(),
		cli.NewDoctorCmd(),
		cli.NewIndexCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
