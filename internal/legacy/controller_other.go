//go:build !linux && !windows

package legacy

import "context"

type unsupportedController struct{}

// NewController returns a controller that reports the legacy agent as
// absent and refuses state changes.
func NewController(string) Controller {
	return unsupportedController{}
}

func (unsupportedController) Status(context.Context) (Status, error) { return StatusNotInstalled, nil }
func (unsupportedController) Enable(context.Context) error           { return ErrNotSupported }
func (unsupportedController) Disable(context.Context) error          { return ErrNotSupported }
func (unsupportedController) Start(context.Context) error            { return ErrNotSupported }
func (unsupportedController) Stop(context.Context) error             { return ErrNotSupported }
