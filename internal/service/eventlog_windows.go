//go:build windows

package service

import (
	"fmt"

	"golang.org/x/sys/windows/svc/eventlog"
)

const (
	eventStartupFailed = 1
	eventTypes         = eventlog.Error | eventlog.Warning | eventlog.Info
)

// ReportStartupError writes a startup error to the Windows Event Log so
// that "net start" and Event Viewer show it even when logging never came up.
func ReportStartupError(serviceName string, err error) {
	// Registering an existing source fails harmlessly.
	_ = eventlog.InstallAsEventCreate(serviceName, eventTypes)

	elog, openErr := eventlog.Open(serviceName)
	if openErr != nil {
		return
	}
	defer elog.Close()

	_ = elog.Error(eventStartupFailed, fmt.Sprintf("%s failed to start: %v", serviceName, err))
}
