//go:build windows

package diag

import (
	"context"
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

type win32Service struct {
	Name  string
	State string
}

// SkypeTest lists the Skype for Business server services and their state.
func (d *Diagnostics) SkypeTest(ctx context.Context) error {
	var services []win32Service
	q := wmi.CreateQuery(&services, "WHERE Name LIKE 'RTC%'", "Win32_Service")
	if err := wmi.Query(q, &services); err != nil {
		return fmt.Errorf("wmi query failed: %w", err)
	}

	w := d.opts.Out
	fmt.Fprintln(w, "<<<skype>>>")
	for _, s := range services {
		fmt.Fprintf(w, "%s %s\n", s.Name, s.State)
	}
	if len(services) == 0 {
		fmt.Fprintln(w, "no Skype for Business services found")
	}
	return nil
}
