package legacy

import (
	"strings"
)

// parseSystemdShow maps "systemctl show --property=LoadState,ActiveState"
// output to a Status.
func parseSystemdShow(out string) Status {
	var activeState, loadState string
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ActiveState":
			activeState = strings.TrimSpace(value)
		case "LoadState":
			loadState = strings.TrimSpace(value)
		}
	}

	if loadState == "not-found" || loadState == "" {
		return StatusNotInstalled
	}
	switch activeState {
	case "active", "reloading":
		return StatusRunning
	case "activating", "deactivating":
		return StatusPending
	default:
		// inactive, failed
		return StatusStopped
	}
}
