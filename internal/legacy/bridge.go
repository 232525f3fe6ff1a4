// Package legacy lets the agent coexist with the previous-generation agent:
// it stops or starts that agent's service and converts its INI
// configuration into the current YAML format.
package legacy

import (
	"context"
	"errors"
	"fmt"

	"cmkagent/internal/logger"
)

var (
	// ErrNotInstalled is returned when starting a legacy agent that is not registered.
	ErrNotInstalled = errors.New("legacy agent is not installed")
	// ErrNotSupported is returned on platforms without a service manager binding.
	ErrNotSupported = errors.New("legacy agent control is not supported on this platform")
)

// Status is the legacy agent's service state.
type Status int

const (
	StatusNotInstalled Status = iota
	StatusStopped
	StatusPending
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusNotInstalled:
		return "not installed"
	case StatusStopped:
		return "stopped"
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Controller is the service manager binding for one legacy service.
type Controller interface {
	Status(ctx context.Context) (Status, error)
	// Enable makes the service start at boot; Disable prevents it.
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	// Start and Stop return once the service reached the target state.
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Bridge owns the handle to the legacy agent. Every operation is safe to
// repeat.
type Bridge struct {
	ctl Controller
}

// NewBridge creates a Bridge around ctl.
func NewBridge(ctl Controller) *Bridge {
	return &Bridge{ctl: ctl}
}

// StopLegacy halts the legacy agent and keeps it from starting at boot.
// An absent or already stopped agent is success.
func (b *Bridge) StopLegacy(ctx context.Context) error {
	log := logger.WithComponent("legacy")

	st, err := b.ctl.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to query legacy agent: %w", err)
	}
	if st == StatusNotInstalled {
		log.Info().Msg("Legacy agent not installed, nothing to stop")
		return nil
	}

	if st != StatusStopped {
		if err := b.ctl.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop legacy agent: %w", err)
		}
	}
	if err := b.ctl.Disable(ctx); err != nil {
		return fmt.Errorf("failed to disable legacy agent: %w", err)
	}
	log.Info().Str("was", st.String()).Msg("Legacy agent stopped and disabled")
	return nil
}

// StartLegacy enables and starts the legacy agent. Meant for testing
// coexistence; an already running agent is success.
func (b *Bridge) StartLegacy(ctx context.Context) error {
	log := logger.WithComponent("legacy")

	st, err := b.ctl.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to query legacy agent: %w", err)
	}
	if st == StatusNotInstalled {
		return ErrNotInstalled
	}

	if err := b.ctl.Enable(ctx); err != nil {
		return fmt.Errorf("failed to enable legacy agent: %w", err)
	}
	if st == StatusRunning {
		log.Info().Msg("Legacy agent already running")
		return nil
	}
	if err := b.ctl.Start(ctx); err != nil {
		return fmt.Errorf("failed to start legacy agent: %w", err)
	}
	log.Info().Msg("Legacy agent enabled and started")
	return nil
}

// Convert runs a conversion job and returns the path written.
func (b *Bridge) Convert(job ConversionJob) (string, error) {
	return Convert(job)
}
