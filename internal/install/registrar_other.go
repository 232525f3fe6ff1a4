//go:build !linux && !windows

package install

import "context"

type unsupportedRegistrar struct{}

// NewRegistrar returns a registrar that refuses every request.
func NewRegistrar() Registrar {
	return unsupportedRegistrar{}
}

func (unsupportedRegistrar) Register(context.Context, Registration) error { return ErrNotSupported }
func (unsupportedRegistrar) Unregister(context.Context, string) error     { return ErrNotSupported }
