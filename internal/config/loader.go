package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/viper"

	"cmkagent/internal/logger"
)

// setDefaults registers every key so that partial files and env-free
// runs decode to a complete Config.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.FilePath)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
	v.SetDefault("logging.console", d.Logging.Console)

	v.SetDefault("service.name", d.Service.Name)
	v.SetDefault("service.display_name", d.Service.DisplayName)
	v.SetDefault("service.description", d.Service.Description)

	v.SetDefault("update.directory", d.Update.Directory)
	v.SetDefault("update.file_name", d.Update.FileName)
	v.SetDefault("update.kind", d.Update.Kind)
	v.SetDefault("update.mode", d.Update.Mode)
	v.SetDefault("update.interval", d.Update.Interval)

	v.SetDefault("install.source_dir", d.Install.SourceDir)
	v.SetDefault("install.target_dir", d.Install.TargetDir)

	v.SetDefault("legacy.service_name", d.Legacy.ServiceName)

	v.SetDefault("agent.port", d.Agent.Port)
	v.SetDefault("agent.config_file", d.Agent.ConfigFile)
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if path == "" {
		return v, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return v, nil
}

// Load reads the configuration file at path. A missing file yields the
// defaults; a malformed or invalid one is an error.
func Load(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadLogging reads only the logging section of the configuration file.
func LoadLogging(path string) (*logger.Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}

	var lc logger.Config
	if err := v.UnmarshalKey("logging", &lc); err != nil {
		return nil, fmt.Errorf("failed to decode logging config: %w", err)
	}
	return &lc, nil
}
