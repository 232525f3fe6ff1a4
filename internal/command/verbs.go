// Package command parses the agent's command line and dispatches it to
// exactly one handler.
package command

import (
	"context"
	"fmt"
	"strings"

	"cmkagent/internal/diag"
)

// Verb is the first command-line token.
type Verb string

const (
	VerbInstall     Verb = "install"
	VerbRemove      Verb = "remove"
	VerbTest        Verb = "test"
	VerbLegacyTest  Verb = "legacy-test"
	VerbExec        Verb = "exec"
	VerbSkypeTest   Verb = "skype-test"
	VerbStopLegacy  Verb = "stop-legacy"
	VerbStartLegacy Verb = "start-legacy"
	VerbCap         Verb = "cap"
	VerbUpgrade     Verb = "upgrade"
	VerbConvert     Verb = "convert"
	VerbHelp        Verb = "help"
)

// RunMode is decided once from the argument list.
type RunMode int

const (
	RunModeService RunMode = iota
	RunModeForeground
)

func (m RunMode) String() string {
	if m == RunModeService {
		return "service"
	}
	return "foreground"
}

// Command is a parsed verb with its trailing arguments.
type Command struct {
	Verb Verb
	args []string
}

// Args returns a copy of the trailing arguments.
func (c Command) Args() []string {
	return append([]string(nil), c.args...)
}

// Arg returns the i-th trailing argument or "".
func (c Command) Arg(i int) string {
	if i < len(c.args) {
		return c.args[i]
	}
	return ""
}

// Invocation is the outcome of parsing. Command is zero in service mode.
type Invocation struct {
	Mode    RunMode
	Command Command
}

// UsageError is a bad or missing verb or argument.
type UsageError struct {
	Token string
	Msg   string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// unbounded marks a verb that ignores surplus arguments.
const unbounded = -1

// handler runs a validated command.
type handler func(r *Router, ctx context.Context, cmd Command) error

// verbSpec declares a verb's handler, its arguments and its place in the
// usage text. help has no handler; the router answers it with usage.
type verbSpec struct {
	run      handler
	minArgs  int
	maxArgs  int
	validate func(args []string) error
	group    int
	synopsis string
	help     string
}

// Usage groups, in print order.
const (
	groupService = iota
	groupConvert
	groupLegacy
	groupUpgrade
	groupCap
)

var groupTitles = []string{
	groupService: "Usage:",
	groupConvert: "To Convert Legacy Agent Ini Files:",
	groupLegacy:  "To Activate/Deactivate Legacy Agent:",
	groupUpgrade: "To Upgrade:",
	groupCap:     "To Install Bakery Files, plugins.cap and check_mk.ini, in install folder:",
}

// verbOrder is the order verbs appear in usage and Verbs().
var verbOrder = []Verb{
	VerbInstall, VerbRemove, VerbLegacyTest, VerbTest, VerbHelp, VerbExec, VerbSkypeTest,
	VerbConvert,
	VerbStopLegacy, VerbStartLegacy,
	VerbUpgrade,
	VerbCap,
}

var specs = map[Verb]verbSpec{
	VerbInstall:    {run: (*Router).install, group: groupService, help: "install as a service"},
	VerbRemove:     {run: (*Router).remove, group: groupService, help: "remove service"},
	VerbLegacyTest: {run: (*Router).legacyTest, group: groupService, help: "legacy test"},
	VerbTest: {
		run:      (*Router).test,
		maxArgs:  1,
		validate: validateTestMode,
		group:    groupService,
		synopsis: "[legacy|port]",
		help:     "short test",
	},
	VerbHelp:      {maxArgs: unbounded, group: groupService, help: "usage"},
	VerbExec:      {run: (*Router).exec, group: groupService, help: "exec as app"},
	VerbSkypeTest: {run: (*Router).skypeTest, group: groupService, help: "test Skype for Business services"},
	VerbConvert: {
		run:      (*Router).convert,
		minArgs:  1,
		maxArgs:  2,
		group:    groupConvert,
		synopsis: "<inifile> [yamlfile]",
		help:     "convert INI file into the YML",
	},
	VerbStopLegacy:  {run: (*Router).stopLegacy, group: groupLegacy, help: "stop and deactivate legacy agent"},
	VerbStartLegacy: {run: (*Router).startLegacy, group: groupLegacy, help: "activate and start legacy agent (only for testing)"},
	VerbUpgrade: {
		run:      (*Router).upgrade,
		maxArgs:  1,
		group:    groupUpgrade,
		synopsis: "[force]",
		help:     "install a pending update package, force reinstalls it",
	},
	VerbCap: {run: (*Router).stage, group: groupCap, help: "install bakery files, plugins.cap and check_mk.ini"},
}

func validateTestMode(args []string) error {
	if len(args) == 1 && !diag.ValidMode(args[0]) {
		return fmt.Errorf("test mode %q is not allowed, use one of: legacy, port", args[0])
	}
	return nil
}

// Verbs returns the command set in usage order.
func Verbs() []Verb {
	return append([]Verb(nil), verbOrder...)
}

// Parse turns the arguments after the program name into an Invocation.
// No arguments selects service mode; anything else is a foreground command.
func Parse(args []string) (Invocation, error) {
	if len(args) == 0 {
		return Invocation{Mode: RunModeService}, nil
	}

	verb := Verb(args[0])
	rest := args[1:]
	spec, ok := specs[verb]
	if !ok {
		return Invocation{}, &UsageError{
			Token: args[0],
			Msg:   fmt.Sprintf("Provided Parameter %q is not allowed", args[0]),
		}
	}

	if len(rest) < spec.minArgs {
		return Invocation{}, &UsageError{
			Token: args[0],
			Msg:   fmt.Sprintf("%s requires %s", verb, spec.synopsis),
		}
	}
	if spec.maxArgs != unbounded && len(rest) > spec.maxArgs {
		return Invocation{}, &UsageError{
			Token: rest[spec.maxArgs],
			Msg:   fmt.Sprintf("%s does not accept %q", verb, strings.Join(rest[spec.maxArgs:], " ")),
		}
	}
	if spec.validate != nil {
		if err := spec.validate(rest); err != nil {
			return Invocation{}, &UsageError{Token: strings.Join(rest, " "), Msg: err.Error()}
		}
	}

	return Invocation{
		Mode:    RunModeForeground,
		Command: Command{Verb: verb, args: append([]string(nil), rest...)},
	}, nil
}
