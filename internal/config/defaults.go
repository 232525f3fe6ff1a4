package config

import (
	"os"
	"path/filepath"
	"runtime"

	"cmkagent/internal/updater"
)

const (
	// DefaultServiceName is the well-known name the service registers under.
	DefaultServiceName = "CheckMkService"
	// DefaultAgentPort is the TCP port the monitoring server polls.
	DefaultAgentPort = 6556
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "CMKAGENT_CONFIG"
)

// PlatformDefaults returns platform-specific default values
type PlatformDefaults struct {
	ConfigPath    string
	LogFile       string
	UpdateDir     string
	UpdateFile    string
	UpdateKind    string
	InstallSource string
	InstallTarget string
	LegacyService string
	AgentConfig   string
}

// GetPlatformDefaults returns platform-specific defaults based on runtime.GOOS
func GetPlatformDefaults() PlatformDefaults {
	switch runtime.GOOS {
	case "windows":
		data := windowsDir("ProgramData", `C:\ProgramData`)
		agent := filepath.Join(data, "checkmk", "agent")
		programs := windowsDir("ProgramFiles(x86)", `C:\Program Files (x86)`)
		return PlatformDefaults{
			ConfigPath:    filepath.Join(agent, "cmkagent.yml"),
			LogFile:       filepath.Join(agent, "log", "cmkagent.log"),
			UpdateDir:     filepath.Join(agent, "update"),
			UpdateFile:    "check_mk_agent.msi",
			UpdateKind:    string(updater.KindMSI),
			InstallSource: filepath.Join(programs, "checkmk", "service", "install"),
			InstallTarget: filepath.Join(agent, "install"),
			LegacyService: "Check_MK_Agent",
			AgentConfig:   filepath.Join(agent, "check_mk.user.yml"),
		}
	default:
		return PlatformDefaults{
			ConfigPath:    "/etc/cmkagent/cmkagent.yml",
			LogFile:       "/var/log/cmkagent/cmkagent.log",
			UpdateDir:     "/var/lib/cmkagent/update",
			UpdateFile:    "check-mk-agent.deb",
			UpdateKind:    string(updater.KindDeb),
			InstallSource: "/usr/share/cmkagent/install",
			InstallTarget: "/var/lib/cmkagent/install",
			LegacyService: "check_mk_agent.socket",
			AgentConfig:   "/etc/check_mk/check_mk.yml",
		}
	}
}

func windowsDir(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

// ResolvePath returns the config path from the environment or the platform default.
func ResolvePath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return GetPlatformDefaults().ConfigPath
}
