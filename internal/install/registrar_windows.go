//go:build windows

package install

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"

	"cmkagent/internal/logger"
)

type scmRegistrar struct{}

// NewRegistrar returns the service control manager registrar.
func NewRegistrar() Registrar {
	return scmRegistrar{}
}

func (scmRegistrar) Register(ctx context.Context, reg Registration) error {
	log := logger.WithComponent("install")

	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to service manager (run as Administrator): %w", err)
	}
	defer m.Disconnect()

	if s, err := m.OpenService(reg.Name); err == nil {
		s.Close()
		return ErrAlreadyInstalled
	}

	s, err := m.CreateService(reg.Name, reg.ExecPath, mgr.Config{
		DisplayName:  reg.DisplayName,
		Description:  reg.Description,
		StartType:    mgr.StartAutomatic,
		ErrorControl: mgr.ErrorNormal,
	}, reg.Args...)
	if errors.Is(err, windows.ERROR_SERVICE_EXISTS) {
		return ErrAlreadyInstalled
	}
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer s.Close()

	recovery := []mgr.RecoveryAction{
		{Type: mgr.ServiceRestart, Delay: 5 * time.Second},
		{Type: mgr.ServiceRestart, Delay: 10 * time.Second},
		{Type: mgr.ServiceRestart, Delay: 30 * time.Second},
	}
	if err := s.SetRecoveryActions(recovery, 3600); err != nil {
		log.Warn().Err(err).Msg("Failed to set recovery actions")
	}
	if err := eventlog.InstallAsEventCreate(reg.Name, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		log.Warn().Err(err).Msg("Failed to create event log source")
	}
	return nil
}

func (scmRegistrar) Unregister(ctx context.Context, name string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to service manager (run as Administrator): %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
		return ErrNotInstalled
	}
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer s.Close()

	if status, err := s.Query(); err == nil && status.State != svc.Stopped {
		_, _ = s.Control(svc.Stop)
		for i := 0; i < 30; i++ {
			status, err = s.Query()
			if err != nil || status.State == svc.Stopped {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}

	if err := s.Delete(); err != nil {
		if errors.Is(err, windows.ERROR_SERVICE_MARKED_FOR_DELETE) {
			return ErrNotInstalled
		}
		return fmt.Errorf("failed to delete service: %w", err)
	}
	_ = eventlog.Remove(name)
	return nil
}
