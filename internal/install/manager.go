// Package install registers the agent with the OS service manager and
// stages auxiliary install artifacts.
package install

import (
	"context"
	"errors"
	"fmt"

	"cmkagent/internal/logger"
	"cmkagent/internal/service"
)

var (
	// ErrAlreadyInstalled is returned by a Registrar when the service exists.
	ErrAlreadyInstalled = errors.New("service already installed")
	// ErrNotInstalled is returned by a Registrar when the service is absent.
	ErrNotInstalled = errors.New("service not installed")
	// ErrNotSupported is returned on platforms without a registrar.
	ErrNotSupported = errors.New("service registration is not supported on this platform")
)

// Registration describes the service entry to create.
type Registration struct {
	Name        string
	DisplayName string
	Description string
	ExecPath    string
	Args        []string
}

// Registrar is the OS service manager binding.
type Registrar interface {
	Register(ctx context.Context, reg Registration) error
	Unregister(ctx context.Context, name string) error
}

// Manager performs install-time operations. Install and remove are
// idempotent.
type Manager struct {
	registrar    Registrar
	registration Registration
	lifecycle    *service.Lifecycle
	sourceDir    string
	targetDir    string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLifecycle lets the manager record NotInstalled/Installed transitions.
func WithLifecycle(lc *service.Lifecycle) Option {
	return func(m *Manager) { m.lifecycle = lc }
}

// WithArtifactDirs sets where StageInstallArtifacts copies from and to.
func WithArtifactDirs(source, target string) Option {
	return func(m *Manager) {
		m.sourceDir = source
		m.targetDir = target
	}
}

// NewManager creates a Manager.
func NewManager(r Registrar, reg Registration, opts ...Option) *Manager {
	m := &Manager{registrar: r, registration: reg}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InstallService registers the service. An existing registration is success.
func (m *Manager) InstallService(ctx context.Context) error {
	log := logger.WithComponent("install")
	log.Info().Str("service", m.registration.Name).Msg("service to INSTALL")

	err := m.registrar.Register(ctx, m.registration)
	switch {
	case errors.Is(err, ErrAlreadyInstalled):
		log.Info().Str("service", m.registration.Name).Msg("Service already installed")
	case err != nil:
		return fmt.Errorf("failed to install service %s: %w", m.registration.Name, err)
	default:
		log.Info().Str("service", m.registration.Name).Msg("Service installed")
	}

	m.move(service.Installed, service.NotInstalled)
	return nil
}

// RemoveService unregisters the service. An absent registration is success.
func (m *Manager) RemoveService(ctx context.Context) error {
	log := logger.WithComponent("install")
	log.Info().Str("service", m.registration.Name).Msg("service to REMOVE")

	err := m.registrar.Unregister(ctx, m.registration.Name)
	switch {
	case errors.Is(err, ErrNotInstalled):
		log.Info().Str("service", m.registration.Name).Msg("Service not installed")
	case err != nil:
		return fmt.Errorf("failed to remove service %s: %w", m.registration.Name, err)
	default:
		log.Info().Str("service", m.registration.Name).Msg("Service removed")
	}

	m.move(service.NotInstalled, service.Installed, service.Stopped)
	return nil
}

// StageInstallArtifacts copies DefaultArtifacts between the configured dirs.
func (m *Manager) StageInstallArtifacts(ctx context.Context) (StageReport, error) {
	logger.WithComponent("install").Info().
		Str("source", m.sourceDir).
		Str("target", m.targetDir).
		Msg("Staging install artifacts")
	return StageInstallArtifacts(ctx, m.sourceDir, m.targetDir, DefaultArtifacts)
}

// move transitions the lifecycle to `to` when it is currently in one of from.
func (m *Manager) move(to service.State, from ...service.State) {
	if m.lifecycle == nil {
		return
	}
	cur := m.lifecycle.State()
	for _, f := range from {
		if cur == f {
			_ = m.lifecycle.Transition(to)
			return
		}
	}
}
