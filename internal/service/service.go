// Package service runs the agent under the OS service manager and tracks
// its lifecycle.
package service

import "context"

// Host runs a RunFunc under the platform service manager, or interactively
// when the process was not launched by one. Run blocks until fn returns.
type Host interface {
	Run(ctx context.Context, fn RunFunc) error

	// IsService returns true if the process was launched by the OS service manager.
	IsService() bool
}

// RunFunc is the service body. It must return once ctx is cancelled.
type RunFunc func(ctx context.Context) error
