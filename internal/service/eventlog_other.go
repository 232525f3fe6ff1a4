//go:build !windows

package service

// ReportStartupError is a no-op on non-Windows platforms; the service
// manager's journal already captures stderr.
func ReportStartupError(serviceName string, err error) {}
