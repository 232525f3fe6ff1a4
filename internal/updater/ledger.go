package updater

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"cmkagent/internal/logger"
)

// Ledger remembers which packages were installed successfully.
type Ledger interface {
	Applied(id uint64) bool
	Record(id uint64)
}

// MemoryLedger is a Ledger that lives as long as the process.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
}

// NewMemoryLedger returns an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[uint64]struct{})}
}

func (l *MemoryLedger) Applied(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[id]
	return ok
}

func (l *MemoryLedger) Record(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[id] = struct{}{}
}

// LedgerFileName is the FileLedger file kept in the update directory.
const LedgerFileName = ".applied"

// FileLedger is a Ledger persisted as one hex id per line, so a package
// installed before a restart is not installed again.
type FileLedger struct {
	path string

	mu     sync.Mutex
	memory *MemoryLedger
	loaded bool
}

// NewFileLedger returns a FileLedger stored at path. The file is read on
// first use; a missing file is an empty ledger.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path, memory: NewMemoryLedger()}
}

func (l *FileLedger) load() {
	if l.loaded {
		return
	}
	l.loaded = true

	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.WithComponent("updater").Warn().Err(err).Str("path", l.path).Msg("Failed to read applied ledger")
		}
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		if id, err := strconv.ParseUint(strings.TrimSpace(line), 16, 64); err == nil {
			l.memory.Record(id)
		}
	}
}

func (l *FileLedger) Applied(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.load()
	return l.memory.Applied(id)
}

// Record remembers id. A failed write is logged and the id is still kept
// for the lifetime of the process.
func (l *FileLedger) Record(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.load()
	l.memory.Record(id)

	if err := appendID(l.path, id); err != nil {
		logger.WithComponent("updater").Warn().Err(err).Str("path", l.path).Msg("Failed to persist applied ledger")
	}
}

func appendID(path string, id uint64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "%016x\n", id); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
