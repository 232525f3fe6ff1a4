// Package updater finds a pending self-update package and hands it to the
// platform installer.
package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"cmkagent/internal/logger"
)

var (
	// ErrUnexpectedKind is returned when the package is not of the expected kind.
	ErrUnexpectedKind = errors.New("unexpected update package kind")
	// ErrInstallerFailed wraps a failed installer run.
	ErrInstallerFailed = errors.New("installer failed")
)

// Outcome is the result of a successful CheckAndApply.
type Outcome int

const (
	NoUpdate Outcome = iota
	AlreadyApplied
	Applied
)

func (o Outcome) String() string {
	switch o {
	case NoUpdate:
		return "no update pending"
	case AlreadyApplied:
		return "already applied"
	case Applied:
		return "applied"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Descriptor says which file to look for and what it must be.
type Descriptor struct {
	FileName string
	Kind     Kind
}

// Checker polls for an update package and installs it. At most one
// installer runs at a time.
type Checker struct {
	launcher Launcher
	ledger   Ledger

	mu sync.Mutex
}

// NewChecker creates a Checker. A nil ledger disables the already-applied
// short-circuit.
func NewChecker(launcher Launcher, ledger Ledger) *Checker {
	return &Checker{launcher: launcher, ledger: ledger}
}

// CheckAndApply installs the package described by desc from dir, if one is
// present. force reinstalls even when the same package was already applied.
func (c *Checker) CheckAndApply(ctx context.Context, desc Descriptor, dir string, mode Mode, force bool) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := logger.WithComponent("updater")
	path := filepath.Join(dir, desc.FileName)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NoUpdate, nil
	}
	if err != nil {
		return NoUpdate, fmt.Errorf("failed to stat update file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return NoUpdate, fmt.Errorf("update path %s is not a regular file", path)
	}

	if kind, ok := KindFromPath(path); !ok || kind != desc.Kind {
		return NoUpdate, fmt.Errorf("%w: %s is not a %s package", ErrUnexpectedKind, desc.FileName, desc.Kind)
	}

	id, err := identity(path)
	if err != nil {
		return NoUpdate, err
	}
	if !force && c.ledger != nil && c.ledger.Applied(id) {
		log.Debug().Str("path", path).Msg("Update package already applied")
		return AlreadyApplied, nil
	}

	argv, err := InstallerCommand(desc.Kind, mode, path, force)
	if err != nil {
		return NoUpdate, err
	}

	log.Info().Str("path", path).Bool("force", force).Strs("command", argv).Msg("Starting installer")
	if err := c.launcher.Launch(ctx, argv); err != nil {
		return NoUpdate, fmt.Errorf("%w: %w", ErrInstallerFailed, err)
	}
	if c.ledger != nil {
		c.ledger.Record(id)
	}
	log.Info().Str("path", path).Msg("Update package applied")
	return Applied, nil
}

// identity hashes the package contents.
func identity(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open update file: %w", err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("failed to read update file: %w", err)
	}
	return h.Sum64(), nil
}
