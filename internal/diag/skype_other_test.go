//go:build !windows

package diag

import (
	"context"
	"errors"
	"testing"
)

func TestSkypeTest_NotSupported(t *testing.T) {
	d, _ := newTestDiag(Options{})
	if err := d.SkypeTest(context.Background()); !errors.Is(err, ErrNotSupported) {
		t.Errorf("err = %v, want ErrNotSupported", err)
	}
}
