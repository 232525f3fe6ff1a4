//go:build windows

package legacy

import (
	"testing"

	"golang.org/x/sys/windows/svc"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		state svc.State
		want  Status
	}{
		{svc.Running, StatusRunning},
		{svc.Paused, StatusRunning},
		{svc.Stopped, StatusStopped},
		{svc.StartPending, StatusPending},
		{svc.StopPending, StatusPending},
		{svc.PausePending, StatusPending},
		{svc.ContinuePending, StatusPending},
	}

	for _, tt := range tests {
		if got := statusOf(tt.state); got != tt.want {
			t.Errorf("statusOf(%d) = %s, want %s", tt.state, got, tt.want)
		}
	}
}
