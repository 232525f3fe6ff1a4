//go:build linux

package legacy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// runFunc executes a command and returns stdout.
type runFunc func(ctx context.Context, name string, args ...string) (string, error)

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s %s failed: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// systemdController drives a systemd unit with systemctl.
type systemdController struct {
	unit string
	run  runFunc
}

// NewController returns the systemd controller for unit.
func NewController(unit string) Controller {
	return &systemdController{unit: unit, run: runCommand}
}

func (c *systemdController) Status(ctx context.Context) (Status, error) {
	out, err := c.run(ctx, "systemctl", "show", c.unit, "--property=LoadState,ActiveState")
	if err != nil {
		return StatusNotInstalled, err
	}
	return parseSystemdShow(out), nil
}

func (c *systemdController) Enable(ctx context.Context) error {
	_, err := c.run(ctx, "systemctl", "enable", c.unit)
	return err
}

func (c *systemdController) Disable(ctx context.Context) error {
	_, err := c.run(ctx, "systemctl", "disable", c.unit)
	return err
}

// systemctl start/stop block until the job completes.
func (c *systemdController) Start(ctx context.Context) error {
	_, err := c.run(ctx, "systemctl", "start", c.unit)
	return err
}

func (c *systemdController) Stop(ctx context.Context) error {
	_, err := c.run(ctx, "systemctl", "stop", c.unit)
	return err
}
