//go:build !windows

package service

import (
	"context"
	"os"

	"cmkagent/internal/logger"
)

type signalHost struct {
	name string
}

// NewHost creates the platform host. On POSIX systems the service manager
// (systemd, launchd, rc) delivers SIGTERM to stop the process.
func NewHost(name string) Host {
	return &signalHost{name: name}
}

func (h *signalHost) Run(ctx context.Context, fn RunFunc) error {
	logger.WithComponent("service").Info().
		Str("service", h.name).
		Bool("managed", h.IsService()).
		Msg("Service started")
	return runWithSignals(ctx, fn)
}

// IsService reports whether systemd started the process, falling back to
// the absence of a controlling terminal on stdin.
func (h *signalHost) IsService() bool {
	if os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}
