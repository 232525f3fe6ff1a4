//go:build !windows

package diag

import (
	"context"
	"fmt"
)

// SkypeTest needs WMI and only runs on Windows.
func (d *Diagnostics) SkypeTest(context.Context) error {
	return fmt.Errorf("skype test: %w", ErrNotSupported)
}
