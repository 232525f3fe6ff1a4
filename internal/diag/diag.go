// Package diag implements the diagnostic verbs: self tests, a single
// foreground output pass and the Skype for Business service probe.
package diag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"

	"cmkagent/internal/legacy"
	"cmkagent/internal/logger"
)

var (
	// ErrUnknownMode is returned by Test for a mode not in Modes.
	ErrUnknownMode = errors.New("unknown test mode")
	// ErrPortInUse is returned by the port test when the agent port is taken.
	ErrPortInUse = errors.New("agent port is in use")
	// ErrNotSupported is returned by probes that need another platform.
	ErrNotSupported = errors.New("not supported on this platform")
)

// Test modes.
const (
	ModeDefault = ""
	ModeLegacy  = "legacy"
	ModePort    = "port"
)

// Modes lists the accepted Test modes.
var Modes = []string{ModeDefault, ModeLegacy, ModePort}

// ValidMode reports whether mode is accepted by Test.
func ValidMode(mode string) bool {
	for _, m := range Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Options configures Diagnostics.
type Options struct {
	Out        io.Writer
	Version    string
	Port       int
	ConfigPath string
	// Legacy reports the legacy agent service state. Nil skips that check.
	Legacy legacy.Controller
}

// Diagnostics runs the diagnostic actions and writes reports to Out.
type Diagnostics struct {
	opts Options

	hostInfo  func(ctx context.Context) (*host.InfoStat, error)
	processes func(ctx context.Context) ([]string, error)
	listen    func(network, addr string) (net.Listener, error)
}

// New creates Diagnostics backed by gopsutil.
func New(opts Options) *Diagnostics {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Diagnostics{
		opts:      opts,
		hostInfo:  host.InfoWithContext,
		processes: processNames,
		listen:    net.Listen,
	}
}

func processNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// process exited or is inaccessible
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Test runs the self test selected by mode.
func (d *Diagnostics) Test(ctx context.Context, mode string) error {
	log := logger.WithComponent("diag")
	log.Info().Str("mode", mode).Msg("Running self test")

	switch mode {
	case ModeDefault:
		return d.selfTest(ctx)
	case ModeLegacy:
		return d.legacyTest(ctx)
	case ModePort:
		return d.portTest()
	}
	return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

func (d *Diagnostics) selfTest(ctx context.Context) error {
	w := d.opts.Out
	info, err := d.hostInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to read host information: %w", err)
	}

	fmt.Fprintf(w, "Agent version:  %s\n", d.opts.Version)
	fmt.Fprintf(w, "Hostname:       %s\n", info.Hostname)
	fmt.Fprintf(w, "OS:             %s %s (%s)\n", info.Platform, info.PlatformVersion, info.KernelArch)
	fmt.Fprintf(w, "Uptime:         %s\n", time.Duration(info.Uptime)*time.Second)

	if d.opts.ConfigPath != "" {
		if _, err := os.Stat(d.opts.ConfigPath); err != nil {
			fmt.Fprintf(w, "Config:         %s (not found, using defaults)\n", d.opts.ConfigPath)
		} else {
			fmt.Fprintf(w, "Config:         %s\n", d.opts.ConfigPath)
		}
	}
	fmt.Fprintln(w, "Self test OK")
	return nil
}

func (d *Diagnostics) legacyTest(ctx context.Context) error {
	w := d.opts.Out

	if d.opts.Legacy != nil {
		st, err := d.opts.Legacy.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to query legacy agent service: %w", err)
		}
		fmt.Fprintf(w, "Legacy service: %s\n", st)
	}

	names, err := d.processes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list processes: %w", err)
	}
	var found []string
	for _, n := range names {
		if strings.HasPrefix(strings.ToLower(n), "check_mk_agent") {
			found = append(found, n)
		}
	}
	if len(found) == 0 {
		fmt.Fprintln(w, "Legacy process: none")
	} else {
		fmt.Fprintf(w, "Legacy process: %s\n", strings.Join(found, ", "))
	}
	fmt.Fprintln(w, "Legacy test OK")
	return nil
}

func (d *Diagnostics) portTest() error {
	addr := net.JoinHostPort("", strconv.Itoa(d.opts.Port))
	ln, err := d.listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(d.opts.Out, "Port %d: unavailable (%v)\n", d.opts.Port, err)
		return fmt.Errorf("%w: %d: %v", ErrPortInUse, d.opts.Port, err)
	}
	ln.Close()
	fmt.Fprintf(d.opts.Out, "Port %d: available\n", d.opts.Port)
	return nil
}

// Exec writes one pass of agent output sections.
func (d *Diagnostics) Exec(ctx context.Context) error {
	info, err := d.hostInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to read host information: %w", err)
	}

	w := d.opts.Out
	fmt.Fprintln(w, "<<<check_mk>>>")
	fmt.Fprintf(w, "Version: %s\n", d.opts.Version)
	fmt.Fprintf(w, "AgentOS: %s\n", info.OS)
	fmt.Fprintf(w, "Hostname: %s\n", info.Hostname)
	fmt.Fprintf(w, "Architecture: %s\n", info.KernelArch)
	fmt.Fprintln(w, "<<<uptime>>>")
	fmt.Fprintf(w, "%d\n", info.Uptime)
	return nil
}
