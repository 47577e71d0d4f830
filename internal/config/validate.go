// internal/config/validate.go
package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if _, base, _, maxEff := cfg.Derive.Resolved(); base > maxEff {
		return fmt.Errorf(
			"config: derive.base_efficiency %v exceeds max_efficiency %v",
			base,
			maxEff,
		)
	}

	if cfg.HTTP.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.HTTP.Listen); err != nil {
			return fmt.Errorf("config: http.listen %q: %w", cfg.HTTP.Listen, err)
		}
		if !strings.HasPrefix(cfg.HTTP.WSPath, "/") {
			return fmt.Errorf("config: http.ws_path %q must start with /", cfg.HTTP.WSPath)
		}
	}

	// ------------------------------------------------------------
	// REGISTER TABLE VALIDATION
	// ------------------------------------------------------------

	byAddr := make(map[uint16]string)
	byName := make(map[string]uint16)

	for _, r := range cfg.Registers {
		if prev, exists := byAddr[r.Address]; exists {
			return fmt.Errorf(
				"config: register address %d used by %q and %q",
				r.Address,
				prev,
				r.Name,
			)
		}
		if prev, exists := byName[r.Name]; exists {
			return fmt.Errorf(
				"config: register name %q used at addresses %d and %d",
				r.Name,
				prev,
				r.Address,
			)
		}
		byAddr[r.Address] = r.Name
		byName[r.Name] = r.Address

		if (r.Min == nil) != (r.Max == nil) {
			return fmt.Errorf("config: register %q: min and max must be set together", r.Name)
		}
		if r.Min != nil && *r.Min > *r.Max {
			return fmt.Errorf("config: register %q: min %v > max %v", r.Name, *r.Min, *r.Max)
		}
		if len(r.Bits) > 0 && r.Encoding != "bitfield" {
			return fmt.Errorf("config: register %q: bits require encoding bitfield", r.Name)
		}
		for pos, name := range r.Bits {
			if pos > 15 {
				return fmt.Errorf("config: register %q: bit %d out of range", r.Name, pos)
			}
			if name == "" {
				return fmt.Errorf("config: register %q: bit %d has no name", r.Name, pos)
			}
		}
	}

	return nil
}
