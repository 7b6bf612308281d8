package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/fatih/color"
	"github.com/ferropkg/ferrite/internal/logger"
	"github.com/ferropkg/ferrite/pkg/config"
	"github.com/ferropkg/ferrite/pkg/download"
	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/executor"
	"github.com/ferropkg/ferrite/pkg/index"
	"github.com/ferropkg/ferrite/pkg/model"
	"github.com/ferropkg/ferrite/pkg/orchestrator"
	"github.com/hashicorp/go-version"
)

// These variables are set by the main package from the global flags.
var (
	ConfigPath *string
	DryRun     *bool
	NoColor    *bool
	LogLevel   *string
)

func loadConfig() (*config.Config, error) {
	path := ""
	if ConfigPath != nil {
		path = *ConfigPath
	}
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if LogLevel != nil && *LogLevel != "" {
		cfg.Settings.LogLevel = *LogLevel
	}
	if NoColor != nil && *NoColor {
		color.NoColor = true
	}
	logger.InitLogger(cfg.Settings.LogLevel)
	return cfg, nil
}

// indexRepositories converts the enabled repository configs into index
// repositories, parsing their URLs.
func indexRepositories(cfg *config.Config) ([]*index.Repository, error) {
	enabled := cfg.EnabledRepositories()
	repos := make([]*index.Repository, 0, len(enabled))
	for _, rc := range enabled {
		u, err := url.Parse(rc.URL)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrValidation, "repository %s has an invalid URL %q", rc.Name, rc.URL)
		}
		repos = append(repos, &index.Repository{Name: rc.Name, URL: u, Priority: rc.Priority})
	}
	return repos, nil
}

// progressHooks returns event hooks printing human-friendly progress lines.
func progressHooks() orchestrator.Hooks {
	phase := color.New(color.FgCyan)
	return orchestrator.Hooks{OnEvent: func(e orchestrator.Event) {
		switch {
		case e.Msg != "":
			fmt.Printf("%s %s\n", phase.Sprintf("%-10s", e.Phase), e.Msg)
		default:
			fmt.Println(phase.Sprint(e.Phase))
		}
	}}
}

// newOrchestrator assembles the full collaborator graph from the config.
func newOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, error) {
	repos, err := indexRepositories(cfg)
	if err != nil {
		return nil, err
	}

	hooks := progressHooks()
	dl := download.NewManager(cfg.Settings.HTTPTimeout, "")
	exec := executor.New(dl, executor.Options{
		InstallRoot: cfg.Settings.InstallRoot,
		StagingDir:  cfg.Settings.StagingDir,
		CacheDir:    cfg.ArtifactCacheDir(),
		StatePath:   cfg.StatePath(),
		HistoryPath: cfg.HistoryPath(),
		Concurrency: cfg.Settings.MaxConcurrent,
		OnStatus: func(s executor.Status) {
			switch s {
			case executor.StatusStaging, executor.StatusVerifying, executor.StatusCommitting:
				hooks.OnEvent(orchestrator.Event{Phase: string(s)})
			}
		},
	})

	return orchestrator.New(
		index.NewManager(repos, cfg.IndexDir()),
		dl,
		exec,
		hooks,
		cfg.StatePath(),
		cfg.Settings.InstallRoot,
	), nil
}

// ParseRequests parses name[@version] arguments into resolve requests. A
// plain version after @ means exactly that version; anything with an
// operator is taken as a constraint expression verbatim.
func ParseRequests(args []string) ([]model.Request, error) {
	requests := make([]model.Request, 0, len(args))
	for _, arg := range args {
		name, spec, hasSpec := strings.Cut(arg, "@")
		if name == "" {
			return nil, errors.Wrapf(errors.ErrValidation, "invalid package argument %q", arg)
		}
		req := model.Request{Name: name, Reason: model.ReasonManual}
		if hasSpec {
			if spec == "" {
				return nil, errors.Wrapf(errors.ErrValidation, "empty version in %q", arg)
			}
			if _, err := version.NewVersion(spec); err == nil {
				req.Constraint = "= " + spec
			} else if _, err := version.NewConstraint(spec); err == nil {
				req.Constraint = spec
			} else {
				return nil, errors.Wrapf(errors.ErrValidation, "invalid version %q in %q", spec, arg)
			}
		}
		requests = append(requests, req)
	}
	return requests, nil
}
