package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cmkagent/internal/logger"
)

// runWithSignals runs fn until it returns or SIGINT/SIGTERM arrives. After
// the first signal fn gets a cancelled context; a second signal abandons it.
func runWithSignals(ctx context.Context, fn RunFunc) error {
	log := logger.WithComponent("service")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()

		select {
		case err := <-done:
			return err
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received second signal, forcing exit")
			return nil
		}

	case err := <-done:
		return err
	}
}
