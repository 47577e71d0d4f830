// internal/registers/codec_test.go
package registers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_SupplyTemperatureFixedPoint(t *testing.T) {
	def, err := ERV().Lookup(SupplyTemperature)
	require.NoError(t, err)

	v := Decode(def, 0x00E6)
	assert.Equal(t, Int16, v.Kind)
	assert.Equal(t, 23.0, v.Number)
}

func TestDecode_Int16Negative(t *testing.T) {
	def, err := ERV().Lookup(SupplyTemperature)
	require.NoError(t, err)

	// 0xFF9C = -100 -> -10.0 °C
	assert.Equal(t, -10.0, Decode(def, 0xFF9C).Number)
	assert.Equal(t, -0.1, Decode(def, 0xFFFF).Number)
}

func TestDecode_UInt16NotSignExtended(t *testing.T) {
	def := RegisterDef{Name: "x", Access: ReadOnly, Encoding: UInt16, Scale: Unity}
	assert.Equal(t, 65535.0, Decode(def, 0xFFFF).Number)
}

func TestDecode_Bool(t *testing.T) {
	def, err := ERV().Lookup(SystemPower)
	require.NoError(t, err)

	assert.True(t, Decode(def, 1).On)
	assert.False(t, Decode(def, 0).On)
}

func TestDecode_StatusBits(t *testing.T) {
	def, err := ERV().Lookup(SystemStatusBits)
	require.NoError(t, err)

	v := Decode(def, 0x0009)
	assert.Equal(t, Flags{
		BitFireAlarm:  true,
		BitBypassOn:   false,
		BitBypassOff:  false,
		BitDefrosting: true,
	}, v.Flags)
	assert.Equal(t, SystemStatus{FireAlarm: true, Defrosting: true}, SystemStatusFrom(v.Flags))
}

func TestDecode_BitfieldIgnoresUnknownBits(t *testing.T) {
	def, err := ERV().Lookup(ErrorBitsName)
	require.NoError(t, err)

	// bits 0,1 and 15 are not in the table; bit 5 is EEPROM.
	v := Decode(def, 0x8023)
	assert.Len(t, v.Flags, 4)
	assert.Equal(t, ErrorStatus{EEPROM: true}, ErrorStatusFrom(v.Flags))
}

func TestEncode_RangeError(t *testing.T) {
	def, err := Holtop().Lookup("bypassOpeningTemp")
	require.NoError(t, err)

	_, err = Encode(def, Number(31))
	var re *RangeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "bypassOpeningTemp", re.Register)
	assert.Equal(t, 5.0, re.Min)
	assert.Equal(t, 30.0, re.Max)

	raw, err := Encode(def, Number(19))
	require.NoError(t, err)
	assert.Equal(t, uint16(19), raw)
}

func TestEncode_Int16Negative(t *testing.T) {
	def, err := Holtop().Lookup("defrostingEnterTemp")
	require.NoError(t, err)

	raw, err := Encode(def, Number(-1))
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFFF), raw)
}

func TestEncode_NotRepresentable(t *testing.T) {
	def := RegisterDef{Name: "t", Access: ReadWrite, Encoding: Int16, Scale: Tenth}

	_, err := Encode(def, Number(4000))
	var re *RangeError
	assert.True(t, errors.As(err, &re))
}

func TestEncode_BitfieldUnknownName(t *testing.T) {
	def, err := ERV().Lookup(SystemStatusBits)
	require.NoError(t, err)

	_, err = Encode(def, FlagSet(Flags{"nope": true}))
	assert.Error(t, err)

	raw, err := Encode(def, FlagSet(Flags{BitFireAlarm: true, BitDefrosting: true}))
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0009), raw)
}

func TestCodec_RoundTripWithinRange(t *testing.T) {
	for _, m := range []*Map{ERV(), Holtop()} {
		for _, def := range m.Defs() {
			for _, v := range sampleValues(def) {
				raw, err := Encode(def, v)
				require.NoError(t, err, "%s %v", def.Name, v)

				got := Decode(def, raw)
				switch def.Encoding {
				case Bool:
					assert.Equal(t, v.On, got.On, def.Name)
				case Bitfield:
					assert.Equal(t, v.Flags, got.Flags, def.Name)
				default:
					assert.Equal(t, v.Number, got.Number, "%s raw=%d", def.Name, raw)
				}
			}
		}
	}
}

// sampleValues picks grid values inside the register's valid range.
func sampleValues(def RegisterDef) []Value {
	switch def.Encoding {
	case Bool:
		return []Value{Switch(true), Switch(false)}
	case Bitfield:
		all := Flags{}
		none := Flags{}
		for _, b := range def.Bits {
			all[b.Name] = true
			none[b.Name] = false
		}
		return []Value{FlagSet(all), FlagSet(none)}
	}
	if len(def.Values) > 0 {
		out := make([]Value, len(def.Values))
		for i, v := range def.Values {
			out[i] = Number(v)
		}
		return out
	}

	lo, hi := 0.0, 100.0
	if def.Encoding == Int16 {
		lo = -40
	}
	if def.Range != nil {
		lo, hi = def.Range.Min, def.Range.Max
	}

	var out []Value
	for raw := -400; raw <= 20000; raw++ {
		v := scaled(float64(raw), def.Scale)
		if v < lo || v > hi {
			continue
		}
		if def.Encoding != Int16 && raw < 0 {
			continue
		}
		out = append(out, Number(v))
	}
	return out
}

func TestParseScale(t *testing.T) {
	s, err := ParseScale("0.1")
	require.NoError(t, err)
	assert.Equal(t, Tenth, s)

	s, err = ParseScale("1/10")
	require.NoError(t, err)
	assert.Equal(t, Tenth, s)

	s, err = ParseScale("")
	require.NoError(t, err)
	assert.Equal(t, Unity, s)

	_, err = ParseScale("-2")
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	m := ERV()

	power, _ := m.Lookup(SystemPower)
	v, err := ParseValue(power, "on")
	require.NoError(t, err)
	assert.True(t, v.On)

	temp, _ := m.Lookup(SupplyTemperature)
	v, err = ParseValue(temp, "21.5")
	require.NoError(t, err)
	assert.Equal(t, 21.5, v.Number)

	_, err = ParseValue(temp, "warm")
	assert.Error(t, err)
}

func TestEncode_FanAcceptsOnlyStepCodes(t *testing.T) {
	for _, m := range []*Map{ERV(), Holtop()} {
		def, err := m.Lookup(SupplyFanSpeed)
		require.NoError(t, err)

		for _, code := range []float64{1, 4, 6, 7} {
			_, err := Encode(def, Number(code))
			var re *RangeError
			require.True(t, errors.As(err, &re), "%s code %v: %v", m.Profile(), code, err)
			assert.Equal(t, code, re.Value)
		}
		for _, s := range FanSteps() {
			raw, err := Encode(def, Number(float64(s.Code)))
			require.NoError(t, err, "%s code %d", m.Profile(), s.Code)
			assert.Equal(t, s.Code, raw)
		}
	}
}

func TestNewMap_ValuesOnBoolRejected(t *testing.T) {
	_, err := NewMap("t", []RegisterDef{
		{Address: 1, Name: "p", Access: ReadWrite, Encoding: Bool, Scale: Unity, Values: []float64{0, 1}},
	})
	assert.Error(t, err)
}

func TestDecode_CO2ThresholdScale(t *testing.T) {
	def, err := Holtop().Lookup("co2SensorThreshold")
	require.NoError(t, err)

	assert.InDelta(t, 392.0, Decode(def, 0x28).Number, 1e-9)
	assert.InDelta(t, 1960.0, Decode(def, 0xC8).Number, 1e-9)
	assert.InDelta(t, 999.6, Decode(def, 0x66).Number, 1e-9)

	raw, err := Encode(def, Number(1960))
	require.NoError(t, err)
	assert.Equal(t, uint16(0xC8), raw)
}
