package updater

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultInstallTimeout bounds a single installer run.
const DefaultInstallTimeout = 10 * time.Minute

// Launcher runs an installer command line and waits for it to exit.
type Launcher interface {
	Launch(ctx context.Context, argv []string) error
}

// ExecLauncher runs installers as child processes.
type ExecLauncher struct {
	Timeout time.Duration
}

// Launch runs argv and reports a non-zero exit together with the tail of
// its output.
func (l ExecLauncher) Launch(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty installer command")
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultInstallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	// installers may leave helpers holding the output pipe
	cmd.WaitDelay = 5 * time.Second
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", argv[0], err, tail(out, 512))
	}
	return nil
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}
