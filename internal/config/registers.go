// internal/config/registers.go
package config

import (
	"fmt"
	"sort"

	"github.com/tamzrod/erv-bridge/internal/registers"
)

// RegisterMap builds the active register table: the explicit list when
// present, otherwise the built-in profile.
func (c *Config) RegisterMap() (*registers.Map, error) {
	if len(c.Registers) == 0 {
		return registers.Profile(c.Device.Profile)
	}

	defs := make([]registers.RegisterDef, 0, len(c.Registers))
	for _, r := range c.Registers {
		def, err := r.def()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return registers.NewMap("custom", defs)
}

func (r RegisterConfig) def() (registers.RegisterDef, error) {
	access, err := registers.ParseAccess(r.Access)
	if err != nil {
		return registers.RegisterDef{}, fmt.Errorf("config: register %q: %w", r.Name, err)
	}
	enc, err := registers.ParseEncoding(r.Encoding)
	if err != nil {
		return registers.RegisterDef{}, fmt.Errorf("config: register %q: %w", r.Name, err)
	}
	scale, err := registers.ParseScale(r.Scale)
	if err != nil {
		return registers.RegisterDef{}, fmt.Errorf("config: register %q: %w", r.Name, err)
	}

	def := registers.RegisterDef{
		Address:     r.Address,
		Name:        r.Name,
		Description: r.Description,
		Access:      access,
		Encoding:    enc,
		Scale:       scale,
		Unit:        r.Unit,
	}
	def.Values = r.Values
	if len(def.Values) == 0 && (r.Name == registers.SupplyFanSpeed || r.Name == registers.ExhaustFanSpeed) {
		def.Values = registers.FanStepCodes()
	}
	if r.Min != nil && r.Max != nil {
		def.Range = &registers.Range{Min: *r.Min, Max: *r.Max}
	}

	positions := make([]int, 0, len(r.Bits))
	for pos := range r.Bits {
		positions = append(positions, int(pos))
	}
	sort.Ints(positions)
	for _, pos := range positions {
		def.Bits = append(def.Bits, registers.Bit{Position: uint8(pos), Name: r.Bits[uint8(pos)]})
	}

	return def, nil
}
