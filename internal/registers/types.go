// internal/registers/types.go
package registers

import (
	"fmt"
	"math/big"
	"strings"
)

// Access is the register access mode as documented by the device.
type Access uint8

const (
	ReadOnly Access = iota + 1
	WriteOnly
	ReadWrite
)

func (a Access) Readable() bool { return a == ReadOnly || a == ReadWrite }
func (a Access) Writable() bool { return a == WriteOnly || a == ReadWrite }

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "read"
	case WriteOnly:
		return "write"
	case ReadWrite:
		return "readwrite"
	default:
		return fmt.Sprintf("access(%d)", uint8(a))
	}
}

// ParseAccess accepts the names used in register tables.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read", "r", "ro", "readonly":
		return ReadOnly, nil
	case "write", "w", "wo", "writeonly":
		return WriteOnly, nil
	case "readwrite", "rw":
		return ReadWrite, nil
	}
	return 0, fmt.Errorf("registers: unknown access %q", s)
}

// Encoding is how the raw 16 bits are interpreted.
type Encoding uint8

const (
	UInt16 Encoding = iota + 1
	Int16
	Bool
	Bitfield
)

func (e Encoding) String() string {
	switch e {
	case UInt16:
		return "uint16"
	case Int16:
		return "int16"
	case Bool:
		return "bool"
	case Bitfield:
		return "bitfield"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uint16", "u16":
		return UInt16, nil
	case "int16", "i16":
		return Int16, nil
	case "bool":
		return Bool, nil
	case "bitfield", "bits":
		return Bitfield, nil
	}
	return 0, fmt.Errorf("registers: unknown encoding %q", s)
}

// Scale is a rational factor applied to the raw integer: physical = raw * Num / Den.
type Scale struct {
	Num int64
	Den int64
}

// Unity leaves raw values unscaled.
var Unity = Scale{Num: 1, Den: 1}

// Tenth is the fixed-point scale used for temperatures.
var Tenth = Scale{Num: 1, Den: 10}

// ParseScale accepts "1/10", "0.1" or "10". Empty means Unity.
func ParseScale(s string) (Scale, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unity, nil
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok || r.Sign() <= 0 {
		return Scale{}, fmt.Errorf("registers: invalid scale %q", s)
	}
	if !r.Num().IsInt64() || !r.Denom().IsInt64() {
		return Scale{}, fmt.Errorf("registers: scale %q out of range", s)
	}
	return Scale{Num: r.Num().Int64(), Den: r.Denom().Int64()}, nil
}

func (s Scale) valid() bool { return s.Num > 0 && s.Den > 0 }

func (s Scale) String() string {
	if s.Den == 1 {
		return fmt.Sprintf("%d", s.Num)
	}
	return fmt.Sprintf("%d/%d", s.Num, s.Den)
}

// Range is an inclusive valid range in physical units.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Bit names one bit position of a Bitfield register.
type Bit struct {
	Position uint8
	Name     string
}

// RegisterDef is one entry of the register map. Immutable after construction.
type RegisterDef struct {
	Address     uint16
	Name        string
	Description string
	Access      Access
	Encoding    Encoding
	Scale       Scale
	Unit        string
	Range       *Range
	Bits        []Bit

	// Values, when set, lists the only valid physical values.
	Values []float64
}

func (d RegisterDef) String() string {
	return fmt.Sprintf("%s@%d", d.Name, d.Address)
}
