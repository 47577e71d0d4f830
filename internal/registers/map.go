// internal/registers/map.go
package registers

import (
	"errors"
	"fmt"
	"sort"
)

// Logical names the telemetry service relies on.
const (
	SystemPower        = "systemPower"
	SupplyFanSpeed     = "supplyFanSpeed"
	ExhaustFanSpeed    = "exhaustFanSpeed"
	SystemStatusBits   = "systemStatusBits"
	ErrorBitsName      = "errorBits"
	SupplyTemperature  = "supplyTemperature"
	ExhaustTemperature = "exhaustTemperature"
	SupplyHumidity     = "supplyHumidity"
	ExhaustHumidity    = "exhaustHumidity"
	OutdoorTemperature = "outdoorTemperature"
	RoomTemperature    = "roomTemperature"
)

// Map is an immutable register table indexed by name and address.
type Map struct {
	profile string
	defs    []RegisterDef
	byName  map[string]int
	byAddr  map[uint16]int
}

// NewMap validates defs and builds a Map.
// Names and addresses must be unique.
func NewMap(profile string, defs []RegisterDef) (*Map, error) {
	if len(defs) == 0 {
		return nil, errors.New("registers: empty register table")
	}

	m := &Map{
		profile: profile,
		defs:    make([]RegisterDef, 0, len(defs)),
		byName:  make(map[string]int, len(defs)),
		byAddr:  make(map[uint16]int, len(defs)),
	}

	for _, d := range defs {
		if err := checkDef(d); err != nil {
			return nil, err
		}
		if i, dup := m.byName[d.Name]; dup {
			return nil, fmt.Errorf("registers: duplicate name %q (addresses %d and %d)", d.Name, m.defs[i].Address, d.Address)
		}
		if i, dup := m.byAddr[d.Address]; dup {
			return nil, fmt.Errorf("registers: duplicate address %d (%q and %q)", d.Address, m.defs[i].Name, d.Name)
		}

		d.Bits = append([]Bit(nil), d.Bits...)
		if d.Range != nil {
			r := *d.Range
			d.Range = &r
		}

		m.byName[d.Name] = len(m.defs)
		m.byAddr[d.Address] = len(m.defs)
		m.defs = append(m.defs, d)
	}

	sort.SliceStable(m.defs, func(i, j int) bool { return m.defs[i].Address < m.defs[j].Address })
	for i, d := range m.defs {
		m.byName[d.Name] = i
		m.byAddr[d.Address] = i
	}

	return m, nil
}

func checkDef(d RegisterDef) error {
	if d.Name == "" {
		return fmt.Errorf("registers: address %d has no name", d.Address)
	}
	if d.Access < ReadOnly || d.Access > ReadWrite {
		return fmt.Errorf("registers: %s: invalid access", d.Name)
	}
	if d.Encoding < UInt16 || d.Encoding > Bitfield {
		return fmt.Errorf("registers: %s: invalid encoding", d.Name)
	}
	if !d.Scale.valid() {
		return fmt.Errorf("registers: %s: scale must be a positive ratio", d.Name)
	}
	if d.Range != nil && d.Range.Min > d.Range.Max {
		return fmt.Errorf("registers: %s: range min %v > max %v", d.Name, d.Range.Min, d.Range.Max)
	}
	if len(d.Values) > 0 && (d.Encoding == Bool || d.Encoding == Bitfield) {
		return fmt.Errorf("registers: %s: values given for %s register", d.Name, d.Encoding)
	}
	if len(d.Bits) > 0 && d.Encoding != Bitfield {
		return fmt.Errorf("registers: %s: bits given for %s register", d.Name, d.Encoding)
	}
	seen := make(map[uint8]bool, len(d.Bits))
	for _, b := range d.Bits {
		if b.Position > 15 {
			return fmt.Errorf("registers: %s: bit position %d out of range", d.Name, b.Position)
		}
		if seen[b.Position] {
			return fmt.Errorf("registers: %s: duplicate bit position %d", d.Name, b.Position)
		}
		seen[b.Position] = true
	}
	return nil
}

func (m *Map) Profile() string { return m.profile }

// Lookup returns the definition for a logical name.
func (m *Map) Lookup(name string) (RegisterDef, error) {
	i, ok := m.byName[name]
	if !ok {
		return RegisterDef{}, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
	}
	return m.defs[i], nil
}

func (m *Map) Has(name string) bool {
	_, ok := m.byName[name]
	return ok
}

// At returns the definition at a device address.
func (m *Map) At(addr uint16) (RegisterDef, bool) {
	i, ok := m.byAddr[addr]
	if !ok {
		return RegisterDef{}, false
	}
	return m.defs[i], true
}

// Defs returns all definitions ordered by address.
func (m *Map) Defs() []RegisterDef {
	return append([]RegisterDef(nil), m.defs...)
}
