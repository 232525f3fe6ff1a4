package service

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteStartupErrorFile(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
		err  error
		want []string
	}{
		{
			name: "existing directory",
			dir:  func(t *testing.T) string { return t.TempDir() },
			err:  errors.New("invalid config cmkagent.yml: update.interval 10ms is below minimum 100ms"),
			want: []string{"CheckMkService STARTUP ERROR", "update.interval 10ms"},
		},
		{
			name: "creates nested directory",
			dir:  func(t *testing.T) string { return filepath.Join(t.TempDir(), "log", "nested") },
			err:  errors.New("test error"),
			want: []string{"test error"},
		},
		{
			name: "nil error",
			dir:  func(t *testing.T) string { return t.TempDir() },
			err:  nil,
			want: []string{"STARTUP ERROR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.dir(t)
			path := WriteStartupErrorFile(dir, "CheckMkService", tt.err)
			if path != filepath.Join(dir, StartupErrorFile) {
				t.Fatalf("path = %q", path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read %s: %v", StartupErrorFile, err)
			}
			for _, w := range tt.want {
				if !strings.Contains(string(data), w) {
					t.Errorf("file missing %q:\n%s", w, data)
				}
			}
		})
	}
}

func TestWriteStartupErrorFile_OverwritesPreviousFile(t *testing.T) {
	dir := t.TempDir()

	WriteStartupErrorFile(dir, "svc", errors.New("first error"))
	WriteStartupErrorFile(dir, "svc", errors.New("second error"))

	data, _ := os.ReadFile(filepath.Join(dir, StartupErrorFile))
	content := string(data)
	if strings.Contains(content, "first error") {
		t.Error("expected first error to be overwritten")
	}
	if !strings.Contains(content, "second error") {
		t.Errorf("expected second error in file, got: %s", content)
	}
}

func TestWriteStartupErrorFile_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	// a regular file cannot be used as a directory
	if got := WriteStartupErrorFile(filepath.Join(file, "log"), "svc", errors.New("x")); got != "" {
		t.Errorf("expected empty path, got %q", got)
	}
}
