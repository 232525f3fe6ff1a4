//go:build windows

package legacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const (
	stateTimeout = 30 * time.Second
	pollInterval = 300 * time.Millisecond
)

// scmController drives a Windows service through the service control manager.
type scmController struct {
	name string
}

// NewController returns the SCM controller for the named service.
func NewController(name string) Controller {
	return &scmController{name: name}
}

// open connects to the SCM and opens the service. A nil service with a nil
// error means the service does not exist.
func (c *scmController) open() (*mgr.Mgr, *mgr.Service, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to service manager: %w", err)
	}
	s, err := m.OpenService(c.name)
	if err != nil {
		m.Disconnect()
		if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to open service %s: %w", c.name, err)
	}
	return m, s, nil
}

func (c *scmController) withService(fn func(s *mgr.Service) error) error {
	m, s, err := c.open()
	if err != nil {
		return err
	}
	if s == nil {
		return ErrNotInstalled
	}
	defer m.Disconnect()
	defer s.Close()
	return fn(s)
}

func (c *scmController) Status(ctx context.Context) (Status, error) {
	m, s, err := c.open()
	if err != nil {
		return StatusNotInstalled, err
	}
	if s == nil {
		return StatusNotInstalled, nil
	}
	defer m.Disconnect()
	defer s.Close()

	st, err := s.Query()
	if err != nil {
		return StatusNotInstalled, fmt.Errorf("failed to query service: %w", err)
	}
	return statusOf(st.State), nil
}

// statusOf maps an SCM state. A paused service still holds its process
// and must be stopped like a running one.
func statusOf(state svc.State) Status {
	switch state {
	case svc.Running, svc.Paused:
		return StatusRunning
	case svc.Stopped:
		return StatusStopped
	default:
		return StatusPending
	}
}

func (c *scmController) setStartType(startType uint32) error {
	return c.withService(func(s *mgr.Service) error {
		cfg, err := s.Config()
		if err != nil {
			return fmt.Errorf("failed to read service config: %w", err)
		}
		if cfg.StartType == startType {
			return nil
		}
		cfg.StartType = startType
		return s.UpdateConfig(cfg)
	})
}

func (c *scmController) Enable(ctx context.Context) error {
	return c.setStartType(mgr.StartAutomatic)
}

func (c *scmController) Disable(ctx context.Context) error {
	return c.setStartType(mgr.StartDisabled)
}

func (c *scmController) Start(ctx context.Context) error {
	return c.withService(func(s *mgr.Service) error {
		if err := s.Start(); err != nil && !errors.Is(err, windows.ERROR_SERVICE_ALREADY_RUNNING) {
			return fmt.Errorf("failed to start service: %w", err)
		}
		return waitFor(ctx, s, svc.Running)
	})
}

func (c *scmController) Stop(ctx context.Context) error {
	return c.withService(func(s *mgr.Service) error {
		if _, err := s.Control(svc.Stop); err != nil && !errors.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE) {
			return fmt.Errorf("failed to stop service: %w", err)
		}
		return waitFor(ctx, s, svc.Stopped)
	})
}

func waitFor(ctx context.Context, s *mgr.Service, want svc.State) error {
	deadline := time.Now().Add(stateTimeout)
	for {
		st, err := s.Query()
		if err != nil {
			return fmt.Errorf("failed to query service status: %w", err)
		}
		if st.State == want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for service state %d", want)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
