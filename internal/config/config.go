// Package config provides configuration management for the agent service.
package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cmkagent/internal/logger"
	"cmkagent/internal/updater"
)

// MinUpdateInterval is the shortest accepted scheduler period.
const MinUpdateInterval = 100 * time.Millisecond

// Config is the root configuration structure.
type Config struct {
	Logging logger.Config `mapstructure:"logging"`
	Service ServiceConfig `mapstructure:"service"`
	Update  UpdateConfig  `mapstructure:"update"`
	Install InstallConfig `mapstructure:"install"`
	Legacy  LegacyConfig  `mapstructure:"legacy"`
	Agent   AgentConfig   `mapstructure:"agent"`
}

// ServiceConfig describes the OS service registration.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	DisplayName string `mapstructure:"display_name"`
	Description string `mapstructure:"description"`
}

// UpdateConfig locates the self-update package polled in service mode.
type UpdateConfig struct {
	Directory string        `mapstructure:"directory"`
	FileName  string        `mapstructure:"file_name"`
	Kind      string        `mapstructure:"kind"`
	Mode      string        `mapstructure:"mode"`
	Interval  time.Duration `mapstructure:"interval"`
}

// InstallConfig holds the directories used when staging install artifacts.
type InstallConfig struct {
	SourceDir string `mapstructure:"source_dir"`
	TargetDir string `mapstructure:"target_dir"`
}

// LegacyConfig names the previous-generation agent registration.
type LegacyConfig struct {
	ServiceName string `mapstructure:"service_name"`
}

// AgentConfig holds settings of the monitoring agent this service fronts.
type AgentConfig struct {
	Port       int    `mapstructure:"port"`
	ConfigFile string `mapstructure:"config_file"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	d := GetPlatformDefaults()
	log := logger.DefaultConfig()
	log.FilePath = d.LogFile

	return &Config{
		Logging: log,
		Service: ServiceConfig{
			Name:        DefaultServiceName,
			DisplayName: "Checkmk Service",
			Description: "Checkmk monitoring agent service",
		},
		Update: UpdateConfig{
			Directory: d.UpdateDir,
			FileName:  d.UpdateFile,
			Kind:      d.UpdateKind,
			Mode:      string(updater.ModeQuiet),
			Interval:  time.Second,
		},
		Install: InstallConfig{
			SourceDir: d.InstallSource,
			TargetDir: d.InstallTarget,
		},
		Legacy: LegacyConfig{
			ServiceName: d.LegacyService,
		},
		Agent: AgentConfig{
			Port:       DefaultAgentPort,
			ConfigFile: d.AgentConfig,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	if c.Service.Name == "" {
		return fmt.Errorf("service.name must not be empty")
	}
	if c.Update.Interval < MinUpdateInterval {
		return fmt.Errorf("update.interval %s is below minimum %s", c.Update.Interval, MinUpdateInterval)
	}
	if _, err := updater.ParseKind(c.Update.Kind); err != nil {
		return fmt.Errorf("update.kind: %w", err)
	}
	if _, err := updater.ParseMode(c.Update.Mode); err != nil {
		return fmt.Errorf("update.mode: %w", err)
	}
	if c.Agent.Port <= 0 || c.Agent.Port > 65535 {
		return fmt.Errorf("agent.port %d out of range", c.Agent.Port)
	}
	return nil
}
