// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Timer  TimerConfig  `toml:"timer"`
	Alarm  AlarmConfig  `toml:"alarm"`
	Server ServerConfig `toml:"server"`
}

// TimerConfig maps timer-related settings.
type TimerConfig struct {
	FocusSeconds      *int  `toml:"focus"`
	ShortBreakSeconds *int  `toml:"short-break"`
	LongBreakSeconds  *int  `toml:"long-break"`
	AutoStart         *bool `toml:"auto-start"`
	AutoStartDelayMs  *int  `toml:"auto-start-delay-ms"`
	FallbackTicker    *bool `toml:"fallback-ticker"`
}

// AlarmConfig maps phase-completion alarm settings.
type AlarmConfig struct {
	Enabled    *bool   `toml:"enabled"`
	FocusSound *string `toml:"focus-sound"`
	BreakSound *string `toml:"break-sound"`
}

// ServerConfig maps REST server and sync-client settings.
type ServerConfig struct {
	Addr    *string `toml:"addr"`
	Token   *string `toml:"token"`
	SyncURL *string `toml:"sync-url"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
