package cli

import (
	"fmt"

	"github.com/ferropkg/ferrite/pkg/index"
	"github.com/ferropkg/ferrite/pkg/model"
	"github.com/ferropkg/ferrite/pkg/state"
	"github.com/spf13/cobra"
)

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info PACKAGE",
		Short: "Show details for a package",
		Long: `Show details for a package: the installed record when it is
installed, otherwise the best available version from the indexes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runInfo(args[0])
		},
	}

	return cmd
}

func runInfo(name string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := state.Load(cfg.StatePath())
	if err != nil {
		return err
	}
	if pkg := store.Find(name); pkg != nil {
		fmt.Printf("Name:         %s\n", pkg.Name)
		fmt.Printf("Version:      %s\n", pkg.Version)
		fmt.Printf("Status:       installed (%s)\n", pkg.Reason)
		fmt.Printf("Installed at: %s\n", pkg.InstalledAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Files:        %d\n", len(pkg.Files))
		printDependencies(pkg.Dependencies)
		return nil
	}

	repos, err := indexRepositories(cfg)
	if err != nil {
		return err
	}
	manifests, err := index.NewManager(repos, cfg.IndexDir()).Lookup(name)
	if err != nil {
		return err
	}

	best := manifests[0]
	fmt.Printf("Name:         %s\n", best.Name)
	fmt.Printf("Version:      %s\n", best.Version)
	fmt.Printf("Status:       available\n")
	if best.Description != "" {
		fmt.Printf("Description:  %s\n", best.Description)
	}
	if best.Size > 0 {
		fmt.Printf("Size:         %d bytes\n", best.Size)
	}
	fmt.Printf("Files:        %d\n", len(best.Files))
	printDependencies(best.Dependencies)
	if len(manifests) > 1 {
		fmt.Printf("Other versions:")
		for _, m := range manifests[1:] {
			fmt.Printf(" %s", m.Version)
		}
		fmt.Println()
	}
	return nil
}

func printDependencies(deps []model.Dependency) {
	if len(deps) == 0 {
		return
	}
	fmt.Println("Dependencies:")
	for _, dep := range deps {
		if dep.Constraint != "" {
			fmt.Printf("  %s (%s)\n", dep.Name, dep.Constraint)
		} else {
			fmt.Printf("  %s\n", dep.Name)
		}
	}
}
