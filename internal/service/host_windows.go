//go:build windows

package service

import (
	"context"
	"time"

	"golang.org/x/sys/windows/svc"

	"cmkagent/internal/logger"
)

// stopWait bounds how long a stop request waits for the service body.
const stopWait = 30 * time.Second

type windowsHost struct {
	name string
}

// NewHost creates the platform host for the named Windows service.
func NewHost(name string) Host {
	return &windowsHost{name: name}
}

func (h *windowsHost) Run(ctx context.Context, fn RunFunc) error {
	if !h.IsService() {
		return runWithSignals(ctx, fn)
	}
	return svc.Run(h.name, &handler{ctx: ctx, fn: fn})
}

func (h *windowsHost) IsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

// handler adapts a RunFunc to the service control manager protocol.
type handler struct {
	ctx context.Context
	fn  RunFunc
}

// Execute implements svc.Handler.
func (h *handler) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	log := logger.WithComponent("windows-service")

	const accepted = svc.AcceptStop | svc.AcceptShutdown
	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- h.fn(ctx)
	}()

	changes <- svc.Status{State: svc.Running, Accepts: accepted}
	log.Info().Msg("Windows service running")

	for {
		select {
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
				// Respond twice as per documentation
				time.Sleep(100 * time.Millisecond)
				changes <- c.CurrentStatus

			case svc.Stop, svc.Shutdown:
				log.Info().Msg("Received stop request from service control manager")
				changes <- svc.Status{State: svc.StopPending, WaitHint: uint32(stopWait / time.Millisecond)}
				cancel()

				select {
				case <-done:
				case <-time.After(stopWait):
					log.Warn().Msg("Timeout waiting for service to stop")
				}
				changes <- svc.Status{State: svc.Stopped}
				return false, 0

			default:
				log.Warn().Int("cmd", int(c.Cmd)).Msg("Unexpected service control command")
			}

		case err := <-done:
			changes <- svc.Status{State: svc.Stopped}
			if err != nil {
				log.Error().Err(err).Msg("Service body exited with error")
				return true, 1
			}
			return false, 0
		}
	}
}
