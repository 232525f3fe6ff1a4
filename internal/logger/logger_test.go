package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// blockingWriter simulates a console that stops accepting output.
type blockingWriter struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	blockCh chan struct{}
}

func newBlockingWriter() *blockingWriter {
	return &blockingWriter{blockCh: make(chan struct{})}
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.blockCh
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *blockingWriter) Unblock() { close(w.blockCh) }

func (w *blockingWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestAsyncWriter_DoesNotBlockCaller(t *testing.T) {
	bw := newBlockingWriter()
	aw := newAsyncWriter(bw, 100)

	done := make(chan struct{})
	go func() {
		aw.Write([]byte("hello"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write blocked - asyncWriter should return immediately")
	}

	bw.Unblock()
	aw.Close()
	if bw.String() != "hello" {
		t.Errorf("expected %q, got %q", "hello", bw.String())
	}
}

func TestAsyncWriter_DropsWhenBufferFull(t *testing.T) {
	bw := newBlockingWriter()
	aw := newAsyncWriter(bw, 2)
	defer func() {
		bw.Unblock()
		aw.Close()
	}()

	// drain holds one message, the channel holds two
	for i := 0; i < 4; i++ {
		aw.Write([]byte("msg"))
	}

	done := make(chan struct{})
	go func() {
		aw.Write([]byte("overflow"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write blocked on full buffer - should drop instead")
	}
}

func TestAsyncWriter_WriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	aw := newAsyncWriter(&buf, 10)
	aw.Write([]byte("a"))
	aw.Close()

	n, err := aw.Write([]byte("after-close"))
	if err != nil || n != len("after-close") {
		t.Errorf("Write after Close = (%d, %v)", n, err)
	}
	if buf.String() != "a" {
		t.Errorf("expected only pre-close data, got %q", buf.String())
	}
}

func TestInit_WritesFixedFormatFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "agent.log")

	if err := Init(Config{Level: "info", FilePath: logFile}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	log := WithComponent("install")
	log.Info().Str("service", "CheckMkService").Msg("service to INSTALL")
	log.Debug().Msg("below level")
	Close()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[INF] [install        ] service to INSTALL service=CheckMkService") {
		t.Errorf("unexpected log line: %q", content)
	}
	if strings.Contains(content, "below level") {
		t.Errorf("debug line written at info level: %q", content)
	}
}

func TestInit_ReInitKeepsAppending(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "agent.log")
	cfg := Config{Level: "info", FilePath: logFile}

	if err := Init(cfg); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	WithComponent("main").Info().Msg("first message")

	if err := Init(cfg); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	WithComponent("main").Info().Msg("second message")
	Close()

	data, _ := os.ReadFile(logFile)
	for _, want := range []string{"first message", "second message"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q", want)
		}
	}
}

func TestSetServiceMode_SuppressesConsole(t *testing.T) {
	SetServiceMode(true)
	defer SetServiceMode(false)

	if err := Init(Config{Level: "info", Console: true}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Close()

	if prevConsoleAsync != nil {
		t.Error("console writer created in service mode")
	}
}

func TestWithComponent_ChainsAndTags(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "agent.log")
	if err := Init(Config{Level: "info", FilePath: logFile}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	WithComponent("scheduler").Info().Str("task", "update-check").Msg("Scheduler started")
	WithComponent("updater").Warn().Msg("ledger unreadable")
	Close()

	data, _ := os.ReadFile(logFile)
	for _, want := range []string{"[scheduler      ] Scheduler started", "[updater        ] ledger unreadable"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q:\n%s", want, data)
		}
	}
}
