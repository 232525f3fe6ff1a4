package command

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cmkagent/internal/diag"
	"cmkagent/internal/install"
	"cmkagent/internal/legacy"
	"cmkagent/internal/logger"
	"cmkagent/internal/updater"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Installer registers the service and stages install artifacts.
type Installer interface {
	InstallService(ctx context.Context) error
	RemoveService(ctx context.Context) error
	StageInstallArtifacts(ctx context.Context) (install.StageReport, error)
}

// Legacy controls the pre-existing agent and converts its configuration.
type Legacy interface {
	StopLegacy(ctx context.Context) error
	StartLegacy(ctx context.Context) error
	Convert(job legacy.ConversionJob) (string, error)
}

// Updater applies a pending update package.
type Updater interface {
	CheckAndApply(ctx context.Context, desc updater.Descriptor, dir string, mode updater.Mode, force bool) (updater.Outcome, error)
}

// Diagnostics runs the test and exec verbs.
type Diagnostics interface {
	Test(ctx context.Context, mode string) error
	Exec(ctx context.Context) error
	SkypeTest(ctx context.Context) error
}

// ServiceRunner runs the agent until the host asks it to stop.
type ServiceRunner interface {
	RunService(ctx context.Context) error
}

// UpdateTarget says where the upgrade verb looks for a package.
type UpdateTarget struct {
	Desc updater.Descriptor
	Dir  string
	Mode updater.Mode
}

// Collaborators are the handlers a Router dispatches to. Unused ones may
// be nil.
type Collaborators struct {
	Installer   Installer
	Legacy      Legacy
	Updater     Updater
	Update      UpdateTarget
	Diagnostics Diagnostics
	Service     ServiceRunner
}

// Router maps an Invocation to exactly one handler and an exit code.
type Router struct {
	program string
	c       Collaborators
	out     io.Writer
	errOut  io.Writer
}

// NewRouter creates a Router. Usage and results go to out, failures to errOut.
func NewRouter(program string, c Collaborators, out, errOut io.Writer) *Router {
	return &Router{program: program, c: c, out: out, errOut: errOut}
}

// Dispatch parses args and runs the selected handler.
func (r *Router) Dispatch(ctx context.Context, args []string) int {
	inv, err := Parse(args)
	if err != nil {
		return r.Fail(err)
	}
	return r.Run(ctx, inv)
}

// Fail prints usage for a UsageError and returns ExitUsage. Any other
// error is reported as "Error: <msg>" with ExitFailure.
func (r *Router) Fail(err error) int {
	var ue *UsageError
	if errors.As(err, &ue) {
		WriteUsage(r.out, r.program, ue.Msg)
		return ExitUsage
	}
	fmt.Fprintf(r.errOut, "Error: %v\n", err)
	return ExitFailure
}

// Usage prints the usage text and returns ExitOK.
func (r *Router) Usage() int {
	WriteUsage(r.out, r.program, "")
	return ExitOK
}

// Run executes an already parsed Invocation.
func (r *Router) Run(ctx context.Context, inv Invocation) int {
	log := logger.WithComponent("command")

	if inv.Mode == RunModeService {
		log.Info().Msg("running as service")
		if err := r.c.Service.RunService(ctx); err != nil {
			return r.Fail(err)
		}
		return ExitOK
	}

	cmd := inv.Command
	if cmd.Verb == VerbHelp {
		return r.Usage()
	}

	log.Info().Str("verb", string(cmd.Verb)).Strs("args", cmd.args).Msg("dispatching command")
	if err := r.execute(ctx, cmd); err != nil {
		log.Error().Err(err).Str("verb", string(cmd.Verb)).Msg("command failed")
		return r.Fail(err)
	}
	return ExitOK
}

func (r *Router) execute(ctx context.Context, cmd Command) error {
	spec, ok := specs[cmd.Verb]
	if !ok || spec.run == nil {
		return fmt.Errorf("verb %q has no handler", cmd.Verb)
	}
	return spec.run(r, ctx, cmd)
}

func (r *Router) install(ctx context.Context, _ Command) error {
	return r.c.Installer.InstallService(ctx)
}

func (r *Router) remove(ctx context.Context, _ Command) error {
	return r.c.Installer.RemoveService(ctx)
}

func (r *Router) stage(ctx context.Context, _ Command) error {
	report, err := r.c.Installer.StageInstallArtifacts(ctx)
	for _, f := range report.Copied {
		fmt.Fprintf(r.out, "installed %s\n", f)
	}
	return err
}

func (r *Router) test(ctx context.Context, cmd Command) error {
	return r.c.Diagnostics.Test(ctx, cmd.Arg(0))
}

func (r *Router) legacyTest(ctx context.Context, _ Command) error {
	return r.c.Diagnostics.Test(ctx, diag.ModeLegacy)
}

func (r *Router) exec(ctx context.Context, _ Command) error {
	return r.c.Diagnostics.Exec(ctx)
}

func (r *Router) skypeTest(ctx context.Context, _ Command) error {
	return r.c.Diagnostics.SkypeTest(ctx)
}

func (r *Router) stopLegacy(ctx context.Context, _ Command) error {
	return r.c.Legacy.StopLegacy(ctx)
}

func (r *Router) startLegacy(ctx context.Context, _ Command) error {
	return r.c.Legacy.StartLegacy(ctx)
}

func (r *Router) convert(_ context.Context, cmd Command) error {
	dst, err := r.c.Legacy.Convert(legacy.ConversionJob{
		Source:      cmd.Arg(0),
		Destination: cmd.Arg(1),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "converted %s to %s\n", cmd.Arg(0), dst)
	return nil
}

func (r *Router) upgrade(ctx context.Context, cmd Command) error {
	force := cmd.Arg(0) == "force"
	t := r.c.Update
	outcome, err := r.c.Updater.CheckAndApply(ctx, t.Desc, t.Dir, t.Mode, force)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "upgrade: %s\n", outcome)
	return nil
}
