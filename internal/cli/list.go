package cli

import (
	"fmt"
	"strings"

	"github.com/ferropkg/ferrite/pkg/state"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Long: `List all installed packages with name and version.
Use --verbose to include the install reason, date and file count.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runList(verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show reason, install date and file count")

	return cmd
}

func runList(verbose bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := state.Load(cfg.StatePath())
	if err != nil {
		return err
	}

	packages := store.All()
	if len(packages) == 0 {
		fmt.Println("No packages installed")
		return nil
	}

	if verbose {
		fmt.Printf("%-30s %-15s %-12s %-20s %s\n", "PACKAGE NAME", "VERSION", "REASON", "INSTALLED", "FILES")
		fmt.Println(strings.Repeat("-", 90))
		for _, pkg := range packages {
			fmt.Printf("%-30s %-15s %-12s %-20s %d\n",
				pkg.Name, pkg.Version, pkg.Reason, pkg.InstalledAt.Format("2006-01-02 15:04:05"), len(pkg.Files))
		}
		return nil
	}

	fmt.Printf("%-30s %s\n", "PACKAGE NAME", "VERSION")
	fmt.Println(strings.Repeat("-", 46))
	for _, pkg := range packages {
		fmt.Printf("%-30s %s\n", pkg.Name, pkg.Version)
	}
	return nil
}
