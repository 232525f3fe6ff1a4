package updater

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the package format of an update file.
type Kind string

const (
	KindMSI Kind = "msi"
	KindDeb Kind = "deb"
	KindRPM Kind = "rpm"
)

// Mode selects how the platform installer interacts with the user.
type Mode string

const (
	ModeQuiet       Mode = "quiet"
	ModeInteractive Mode = "interactive"
)

// ParseKind validates a configured package kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindMSI, KindDeb, KindRPM:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnexpectedKind, s)
}

// ParseMode validates a configured installer mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeQuiet, ModeInteractive:
		return m, nil
	}
	return "", fmt.Errorf("unknown installer mode %q", s)
}

// KindFromPath infers the package kind from the file extension.
func KindFromPath(path string) (Kind, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	k, err := ParseKind(ext)
	return k, err == nil
}

// InstallerCommand builds the argv that installs path. force asks the
// installer to replace an identical installed version.
func InstallerCommand(kind Kind, mode Mode, path string, force bool) ([]string, error) {
	switch kind {
	case KindMSI:
		argv := []string{"msiexec", "/i", path}
		if mode == ModeQuiet {
			argv = append(argv, "/qn", "/norestart")
		}
		if force {
			argv = append(argv, "REINSTALL=ALL", "REINSTALLMODE=vamus")
		}
		return argv, nil

	case KindDeb:
		argv := []string{"dpkg"}
		if force {
			argv = append(argv, "--force-all")
		}
		return append(argv, "-i", path), nil

	case KindRPM:
		argv := []string{"rpm", "-U"}
		if mode == ModeInteractive {
			argv = append(argv, "-vh")
		} else {
			argv = append(argv, "--quiet")
		}
		if force {
			argv = append(argv, "--replacepkgs", "--force")
		}
		return append(argv, path), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnexpectedKind, kind)
}
