package updater

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestExecLauncher(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}

	tests := []struct {
		name    string
		argv    []string
		wantErr string
	}{
		{"success", []string{"sh", "-c", "exit 0"}, ""},
		{"non-zero exit carries output", []string{"sh", "-c", "echo dependency problem >&2; exit 3"}, "dependency problem"},
		{"missing binary", []string{"no-such-installer-binary"}, "no-such-installer-binary"},
		{"empty command", nil, "empty installer command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ExecLauncher{}.Launch(context.Background(), tt.argv)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("err = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExecLauncher_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	start := time.Now()
	err := ExecLauncher{Timeout: 50 * time.Millisecond}.Launch(context.Background(), []string{"sh", "-c", "exec sleep 5"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("timeout not enforced, took %s", time.Since(start))
	}
}
