// Package app wires configuration, logging and the agent's collaborators
// together and runs one command line.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cmkagent/internal/command"
	"cmkagent/internal/config"
	"cmkagent/internal/diag"
	"cmkagent/internal/install"
	"cmkagent/internal/legacy"
	"cmkagent/internal/logger"
	"cmkagent/internal/service"
	"cmkagent/internal/updater"
)

// Program is the name shown in usage text.
const Program = "cmkagent"

var (
	version   = "dev"
	buildTime = "unknown"
)

// reportStartup delivers startup failures to the event log and a file.
var reportStartup = service.ReportStartup

// Main runs the agent with the arguments following the program name and
// returns the process exit code.
func Main(args []string) int {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(Program, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.ResolvePath(), "Path to configuration file")
	showVersion := fs.Bool("version", false, "Show version information")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return command.ExitOK
		}
		return command.ExitUsage
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s (built %s)\n", Program, version, buildTime)
		return command.ExitOK
	}

	// Usage errors and help need neither configuration nor logging.
	inv, err := command.Parse(fs.Args())
	if err != nil {
		return command.NewRouter(Program, command.Collaborators{}, stdout, stderr).Fail(err)
	}
	if inv.Mode == command.RunModeForeground && inv.Command.Verb == command.VerbHelp {
		return command.NewRouter(Program, command.Collaborators{}, stdout, stderr).Usage()
	}

	a, err := newAgent(*configPath, inv, stdout)
	if err != nil {
		reportStartup(filepath.Dir(config.DefaultConfig().Logging.FilePath), config.DefaultServiceName, err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return command.ExitFailure
	}

	router := command.NewRouter(Program, a.collaborators(), stdout, stderr)
	if inv.Mode == command.RunModeService {
		return router.Run(ctx, inv)
	}

	if err := a.startApp(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return command.ExitFailure
	}
	defer a.exitApp()
	return router.Run(ctx, inv)
}

// agent holds the collaborators built from one configuration.
type agent struct {
	cfg        *config.Config
	configPath string

	host      service.Host
	lifecycle *service.Lifecycle
	installer *install.Manager
	bridge    *legacy.Bridge
	checker   *updater.Checker
	target    command.UpdateTarget
	diag      *diag.Diagnostics

	watcher *config.FileWatcher
}

func newAgent(configPath string, inv command.Invocation, out io.Writer) (*agent, error) {
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable path: %w", err)
	}

	kind, err := updater.ParseKind(cfg.Update.Kind)
	if err != nil {
		return nil, err
	}
	mode, err := updater.ParseMode(cfg.Update.Mode)
	if err != nil {
		return nil, err
	}

	initial := service.Installed
	if inv.Mode == command.RunModeForeground && inv.Command.Verb == command.VerbInstall {
		initial = service.NotInstalled
	}
	lc := service.NewLifecycle(initial)

	installer := install.NewManager(install.NewRegistrar(), install.Registration{
		Name:        cfg.Service.Name,
		DisplayName: cfg.Service.DisplayName,
		Description: cfg.Service.Description,
		ExecPath:    exe,
		Args:        []string{"-config", configPath},
	},
		install.WithLifecycle(lc),
		install.WithArtifactDirs(cfg.Install.SourceDir, cfg.Install.TargetDir),
	)
	ledger := updater.NewFileLedger(filepath.Join(cfg.Update.Directory, updater.LedgerFileName))
	ctl := legacy.NewController(cfg.Legacy.ServiceName)

	a := &agent{
		cfg:        cfg,
		configPath: configPath,
		host:       service.NewHost(cfg.Service.Name),
		lifecycle:  lc,
		installer:  installer,
		bridge:     legacy.NewBridge(ctl),
		checker:    updater.NewChecker(updater.ExecLauncher{}, ledger),
		target: command.UpdateTarget{
			Desc: updater.Descriptor{FileName: cfg.Update.FileName, Kind: kind},
			Dir:  cfg.Update.Directory,
			Mode: mode,
		},
		diag: diag.New(diag.Options{
			Out:        out,
			Version:    version,
			Port:       cfg.Agent.Port,
			ConfigPath: cfg.Agent.ConfigFile,
			Legacy:     ctl,
		}),
	}
	return a, nil
}

func (a *agent) collaborators() command.Collaborators {
	return command.Collaborators{
		Installer:   a.installer,
		Legacy:      a.bridge,
		Updater:     a.checker,
		Update:      a.target,
		Diagnostics: a.diag,
		Service:     a,
	}
}

// startApp initializes logging.
func (a *agent) startApp(context.Context) error {
	if err := logger.Init(a.cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.WithComponent("main")
	log.Info().
		Str("version", version).
		Str("config", a.configPath).
		Msg("Starting agent")
	return nil
}

// startService initializes logging and, since the process is long-lived,
// watches the configuration file for logging changes.
func (a *agent) startService(ctx context.Context) error {
	if err := a.startApp(ctx); err != nil {
		return err
	}
	log := logger.WithComponent("main")

	w, err := config.NewLoggingWatcher(a.configPath, func(lc *logger.Config) {
		if err := logger.Init(*lc); err != nil {
			logger.WithComponent("main").Error().Err(err).Msg("Failed to apply logging configuration")
			return
		}
		logger.WithComponent("main").Info().Str("level", lc.Level).Msg("Logging configuration reloaded")
	})
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		log.Warn().Err(err).Msg("Config watcher unavailable, logging changes need a restart")
		return nil
	}
	a.watcher = w
	return nil
}

// exitApp stops the watcher and flushes the log.
func (a *agent) exitApp() {
	if a.watcher != nil {
		a.watcher.Stop()
		a.watcher = nil
	}
	logger.WithComponent("main").Info().Msg("Agent stopped")
	logger.Close()
}

// check is the periodic service-mode task.
func (a *agent) check(ctx context.Context) (bool, error) {
	outcome, err := a.checker.CheckAndApply(ctx, a.target.Desc, a.target.Dir, a.target.Mode, false)
	if err != nil {
		return true, err
	}
	if outcome == updater.Applied {
		logger.WithComponent("main").Info().Msg("Update installed by service")
	}
	return true, nil
}

// RunService runs the service-mode body under the OS service host.
func (a *agent) RunService(ctx context.Context) error {
	if a.host.IsService() {
		logger.SetServiceMode(true)
	}

	rt := service.NewRuntime(service.RuntimeOptions{
		Interval:   a.cfg.Update.Interval,
		Check:      a.check,
		OnStartApp: a.startService,
		OnExit:     a.exitApp,
		Lifecycle:  a.lifecycle,
	})

	err := rt.Run(ctx, a.host)
	if errors.Is(err, service.ErrStartup) {
		reportStartup(filepath.Dir(a.cfg.Logging.FilePath), a.cfg.Service.Name, err)
	}
	return err
}
