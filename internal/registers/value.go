// internal/registers/value.go
package registers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Flags is a decoded bitfield: bit name -> set.
type Flags map[string]bool

// Value is a decoded physical value. Which field is meaningful depends on Kind.
type Value struct {
	Kind   Encoding
	Number float64 // UInt16, Int16
	On     bool    // Bool
	Flags  Flags   // Bitfield
}

func Number(v float64) Value { return Value{Kind: UInt16, Number: v} }
func Switch(on bool) Value   { return Value{Kind: Bool, On: on} }
func FlagSet(f Flags) Value  { return Value{Kind: Bitfield, Flags: f} }

// Float returns the numeric view of the value (Bool maps to 0/1).
func (v Value) Float() float64 {
	switch v.Kind {
	case Bool:
		if v.On {
			return 1
		}
		return 0
	case Bitfield:
		return 0
	default:
		return v.Number
	}
}

func (v Value) String() string {
	switch v.Kind {
	case Bool:
		return strconv.FormatBool(v.On)
	case Bitfield:
		names := make([]string, 0, len(v.Flags))
		for n, set := range v.Flags {
			if set {
				names = append(names, n)
			}
		}
		sort.Strings(names)
		return "{" + strings.Join(names, ",") + "}"
	default:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
}

// MarshalJSON renders the natural JSON form: number, bool or object.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case Bool:
		return []byte(strconv.FormatBool(v.On)), nil
	case Bitfield:
		names := make([]string, 0, len(v.Flags))
		for n := range v.Flags {
			names = append(names, n)
		}
		sort.Strings(names)
		var b strings.Builder
		b.WriteByte('{')
		for i, n := range names {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%q:%t", n, v.Flags[n])
		}
		b.WriteByte('}')
		return []byte(b.String()), nil
	default:
		return []byte(strconv.FormatFloat(v.Number, 'f', -1, 64)), nil
	}
}

// ParseValue interprets text input (CLI, MQTT payloads) for the given register.
func ParseValue(def RegisterDef, s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch def.Encoding {
	case Bool:
		switch strings.ToLower(s) {
		case "1", "on", "true", "yes":
			return Switch(true), nil
		case "0", "off", "false", "no":
			return Switch(false), nil
		}
		return Value{}, fmt.Errorf("registers: %s expects on/off, got %q", def.Name, s)
	case Bitfield:
		f := Flags{}
		if s == "" {
			return FlagSet(f), nil
		}
		for _, n := range strings.Split(s, ",") {
			f[strings.TrimSpace(n)] = true
		}
		return FlagSet(f), nil
	default:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("registers: %s expects a number, got %q", def.Name, s)
		}
		return Number(n), nil
	}
}
