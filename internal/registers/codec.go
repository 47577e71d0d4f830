// internal/registers/codec.go
package registers

import (
	"fmt"
	"math"
)

// Decode maps a raw register value to its physical value.
// Int16 registers are two's-complement; unknown bits of a bitfield are ignored.
func Decode(def RegisterDef, raw uint16) Value {
	switch def.Encoding {
	case Bool:
		return Switch(raw != 0)
	case Bitfield:
		f := make(Flags, len(def.Bits))
		for _, b := range def.Bits {
			f[b.Name] = raw&(1<<b.Position) != 0
		}
		return FlagSet(f)
	case Int16:
		return Value{Kind: Int16, Number: scaled(float64(int16(raw)), def.Scale)}
	default:
		return Value{Kind: UInt16, Number: scaled(float64(raw), def.Scale)}
	}
}

// Encode is the inverse of Decode. Numeric values are checked against the
// register's valid range (physical units) and against what the encoding can hold.
func Encode(def RegisterDef, v Value) (uint16, error) {
	switch def.Encoding {
	case Bool:
		on := v.On
		if v.Kind != Bool {
			n := v.Float()
			if n != 0 && n != 1 {
				return 0, &RangeError{Register: def.Name, Value: n, Min: 0, Max: 1}
			}
			on = n == 1
		}
		if on {
			return 1, nil
		}
		return 0, nil

	case Bitfield:
		var raw uint16
		for name, set := range v.Flags {
			pos, ok := bitPosition(def, name)
			if !ok {
				return 0, fmt.Errorf("registers: %s has no bit %q", def.Name, name)
			}
			if set {
				raw |= 1 << pos
			}
		}
		return raw, nil
	}

	n := v.Float()
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("registers: %s value is not finite", def.Name)
	}
	if def.Range != nil && !def.Range.Contains(n) {
		return 0, &RangeError{Register: def.Name, Value: n, Min: def.Range.Min, Max: def.Range.Max}
	}

	if len(def.Values) > 0 && !allowed(def.Values, n) {
		re := &RangeError{Register: def.Name, Value: n, Min: def.Values[0], Max: def.Values[len(def.Values)-1]}
		if def.Range != nil {
			re.Min, re.Max = def.Range.Min, def.Range.Max
		}
		return 0, re
	}

	raw := math.Round(unscaled(n, def.Scale))

	if def.Encoding == Int16 {
		if raw < math.MinInt16 || raw > math.MaxInt16 {
			return 0, &RangeError{
				Register: def.Name,
				Value:    n,
				Min:      scaled(math.MinInt16, def.Scale),
				Max:      scaled(math.MaxInt16, def.Scale),
			}
		}
		return uint16(int16(raw)), nil
	}

	if raw < 0 || raw > math.MaxUint16 {
		return 0, &RangeError{
			Register: def.Name,
			Value:    n,
			Min:      0,
			Max:      scaled(math.MaxUint16, def.Scale),
		}
	}
	return uint16(raw), nil
}

func scaled(raw float64, s Scale) float64 {
	if !s.valid() {
		return raw
	}
	return raw * float64(s.Num) / float64(s.Den)
}

func unscaled(v float64, s Scale) float64 {
	if !s.valid() {
		return v
	}
	return v * float64(s.Den) / float64(s.Num)
}

func bitPosition(def RegisterDef, name string) (uint8, bool) {
	for _, b := range def.Bits {
		if b.Name == name {
			return b.Position, true
		}
	}
	return 0, false
}

func allowed(values []float64, v float64) bool {
	for _, a := range values {
		if a == v {
			return true
		}
	}
	return false
}
