package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StartupErrorFile is the name of the file WriteStartupErrorFile writes.
const StartupErrorFile = "startup-error.log"

// WriteStartupErrorFile records a startup failure next to the log file.
// Only the latest failure is kept. The returned path is empty when the
// file could not be written.
func WriteStartupErrorFile(logDir, serviceName string, err error) string {
	if mkErr := os.MkdirAll(logDir, 0755); mkErr != nil {
		return ""
	}

	path := filepath.Join(logDir, StartupErrorFile)
	body := fmt.Sprintf("[%s] %s STARTUP ERROR\n%v\n",
		time.Now().Format("2006-01-02 15:04:05"), serviceName, err)
	if wErr := os.WriteFile(path, []byte(body), 0644); wErr != nil {
		return ""
	}
	return path
}

// ReportStartup sends a startup failure to every available sink.
func ReportStartup(logDir, serviceName string, err error) {
	ReportStartupError(serviceName, err)
	WriteStartupErrorFile(logDir, serviceName, err)
}
