//go:build linux

package install

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

const unitTemplate = `[Unit]
Description={{.Description}}
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={{.ExecStart}}
Restart=on-failure
RestartSec=10
KillSignal=SIGTERM
TimeoutStopSec=30

[Install]
WantedBy=multi-user.target
`

var unit = template.Must(template.New("unit").Parse(unitTemplate))

type runFunc func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s failed: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// systemdRegistrar installs a unit file under unitDir.
type systemdRegistrar struct {
	unitDir string
	run     runFunc
}

// NewRegistrar returns the systemd registrar.
func NewRegistrar() Registrar {
	return &systemdRegistrar{unitDir: "/etc/systemd/system", run: runCommand}
}

func (r *systemdRegistrar) unitPath(name string) string {
	return filepath.Join(r.unitDir, name+".service")
}

func (r *systemdRegistrar) Register(ctx context.Context, reg Registration) error {
	path := r.unitPath(reg.Name)
	if _, err := os.Stat(path); err == nil {
		return ErrAlreadyInstalled
	}

	words := make([]string, 0, len(reg.Args)+1)
	for _, w := range append([]string{reg.ExecPath}, reg.Args...) {
		if strings.ContainsAny(w, " \t\"") {
			w = strconv.Quote(w)
		}
		words = append(words, w)
	}
	execStart := strings.Join(words, " ")

	var buf bytes.Buffer
	if err := unit.Execute(&buf, struct{ Description, ExecStart string }{reg.Description, execStart}); err != nil {
		return fmt.Errorf("failed to render unit: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}

	// A unit that is not enabled must not survive, or the next install
	// would report it as already installed.
	err := r.run(ctx, "systemctl", "daemon-reload")
	if err == nil {
		err = r.run(ctx, "systemctl", "enable", reg.Name)
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr == nil {
			_ = r.run(ctx, "systemctl", "daemon-reload")
		}
		return err
	}
	return nil
}

func (r *systemdRegistrar) Unregister(ctx context.Context, name string) error {
	path := r.unitPath(name)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ErrNotInstalled
	}

	// stop and disable fail harmlessly on an inactive unit
	_ = r.run(ctx, "systemctl", "stop", name)
	_ = r.run(ctx, "systemctl", "disable", name)

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}
	return r.run(ctx, "systemctl", "daemon-reload")
}
