// cmd/ervd/setup.go
package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tamzrod/erv-bridge/internal/config"
	"github.com/tamzrod/erv-bridge/internal/logging"
)

// loadConfig reads the config file (if any) and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if cfgFile != "" {
		loaded, err := config.Read(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if host != "" {
		cfg.Device.Host = host
	}
	if port != 0 {
		cfg.Device.Port = port
	}
	if unitID != 0 {
		cfg.Device.UnitID = unitID
	}
	if profile != "" {
		cfg.Device.Profile = profile
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if jsonOutput {
		cfg.Log.Format = "json"
	}

	config.Normalize(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
}

// loadRegistersConfig is loadConfig without device validation; listing
// the register table needs no reachable device.
func loadRegistersConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if cfgFile != "" {
		loaded, err := config.Read(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if profile != "" {
		cfg.Device.Profile = profile
	}
	return cfg, nil
}
