package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/ferropkg/ferrite/pkg/config"
	"github.com/ferropkg/ferrite/pkg/state"
	"github.com/spf13/cobra"
)

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the installation",
		Long: `Check directories, the state store and every installed file for
problems: missing or modified files, stale staging directories and
orphaned dependencies. With --fix the state store is reconciled with the
filesystem: missing files are dropped from it and modified files adopt
their current contents.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), fix)
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Reconcile the state store with the actual filesystem contents")

	return cmd
}

type doctorReport struct {
	errors   int
	warnings int
}

func (r *doctorReport) ok(check, msg string) {
	fmt.Printf("%s %-24s %s\n", color.GreenString("ok     "), check, msg)
}

func (r *doctorReport) warn(check, msg string) {
	r.warnings++
	fmt.Printf("%s %-24s %s\n", color.YellowString("warning"), check, msg)
}

func (r *doctorReport) fail(check, msg string) {
	r.errors++
	fmt.Printf("%s %-24s %s\n", color.RedString("error  "), check, msg)
}

func runDoctor(ctx context.Context, fix bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	report := &doctorReport{}
	checkDirectories(report, cfg)
	store := checkStateStore(report, cfg)
	if store != nil {
		if fix {
			repairInstalledFiles(ctx, report, cfg, store)
		} else {
			checkInstalledFiles(report, cfg, store)
		}
		checkOrphans(report, store)
	}
	checkStaleStaging(report, cfg)

	fmt.Println()
	switch {
	case report.errors > 0:
		return fmt.Errorf("doctor found %d error(s) and %d warning(s)", report.errors, report.warnings)
	case report.warnings > 0:
		fmt.Printf("%d warning(s), no errors\n", report.warnings)
	default:
		fmt.Println("Everything looks fine")
	}
	return nil
}

func checkDirectories(report *doctorReport, cfg *config.Config) {
	dirs := []struct{ check, path string }{
		{"install root", cfg.Settings.InstallRoot},
		{"state directory", cfg.Settings.StateDir},
		{"cache directory", cfg.Settings.CacheDir},
		{"staging directory", cfg.Settings.StagingDir},
	}
	for _, d := range dirs {
		info, err := os.Stat(d.path)
		switch {
		case os.IsNotExist(err):
			report.warn(d.check, d.path+" does not exist yet")
			continue
		case err != nil:
			report.fail(d.check, fmt.Sprintf("%s: %v", d.path, err))
			continue
		case !info.IsDir():
			report.fail(d.check, d.path+" is not a directory")
			continue
		}
		if !writable(d.path) {
			report.fail(d.check, d.path+" is not writable")
			continue
		}
		report.ok(d.check, d.path)
	}
}

// writable probes the directory with a throwaway file.
func writable(dir string) bool {
	f, err := os.CreateTemp(dir, ".ferrite-doctor-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

func checkStateStore(report *doctorReport, cfg *config.Config) *state.Store {
	store, err := state.Load(cfg.StatePath())
	if err != nil {
		report.fail("state store", err.Error())
		return nil
	}
	report.ok("state store", fmt.Sprintf("%d package(s) recorded", len(store.Packages)))
	return store
}

func checkInstalledFiles(report *doctorReport, cfg *config.Config, store *state.Store) {
	result := state.Check(store, cfg.Settings.InstallRoot)
	if result.Clean() {
		report.ok("installed files", "all files present and unmodified")
		return
	}
	for _, d := range result.Discrepancies {
		report.fail("installed files", fmt.Sprintf("%s: %s is %s", d.Package, d.Path, d.Kind))
	}
}

// repairInstalledFiles reconciles the store with the filesystem under the
// state lock and persists it, so mutating commands stop refusing to run.
func repairInstalledFiles(ctx context.Context, report *doctorReport, cfg *config.Config, store *state.Store) {
	if state.Check(store, cfg.Settings.InstallRoot).Clean() {
		report.ok("installed files", "all files present and unmodified")
		return
	}

	lock, err := state.AcquireLock(ctx, cfg.StatePath())
	if err != nil {
		report.fail("installed files", fmt.Sprintf("cannot lock state store: %v", err))
		return
	}
	defer func() { _ = lock.Release() }()

	repaired := state.Repair(store, cfg.Settings.InstallRoot)
	if err := store.Save(cfg.StatePath()); err != nil {
		report.fail("installed files", fmt.Sprintf("cannot save repaired state store: %v", err))
		return
	}
	for _, d := range repaired.Discrepancies {
		switch d.Kind {
		case "missing":
			report.warn("installed files", fmt.Sprintf("%s: dropped missing %s", d.Package, d.Path))
		default:
			report.warn("installed files", fmt.Sprintf("%s: adopted current contents of %s", d.Package, d.Path))
		}
	}
}

func checkOrphans(report *doctorReport, store *state.Store) {
	orphans := store.Orphans()
	if len(orphans) == 0 {
		report.ok("orphaned dependencies", "none")
		return
	}
	for _, name := range orphans {
		report.warn("orphaned dependencies", name+" was installed as a dependency and nothing depends on it")
	}
}

func checkStaleStaging(report *doctorReport, cfg *config.Config) {
	entries, err := os.ReadDir(cfg.Settings.StagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			report.ok("staging", "no staging directories")
			return
		}
		report.fail("staging", err.Error())
		return
	}
	if len(entries) == 0 {
		report.ok("staging", "no staging directories")
		return
	}
	for _, entry := range entries {
		report.warn("staging", fmt.Sprintf("stale staging directory %s (safe to delete)",
			filepath.Join(cfg.Settings.StagingDir, entry.Name())))
	}
}
