// internal/registers/map_test.go
package registers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMap_DuplicateAddress(t *testing.T) {
	_, err := NewMap("x", []RegisterDef{
		{Address: 1, Name: "a", Access: ReadOnly, Encoding: UInt16, Scale: Unity},
		{Address: 1, Name: "b", Access: ReadOnly, Encoding: UInt16, Scale: Unity},
	})
	assert.Error(t, err)
}

func TestNewMap_DuplicateName(t *testing.T) {
	_, err := NewMap("x", []RegisterDef{
		{Address: 1, Name: "a", Access: ReadOnly, Encoding: UInt16, Scale: Unity},
		{Address: 2, Name: "a", Access: ReadOnly, Encoding: UInt16, Scale: Unity},
	})
	assert.Error(t, err)
}

func TestNewMap_RejectsBadDefs(t *testing.T) {
	bad := []RegisterDef{
		{Address: 1, Name: "", Access: ReadOnly, Encoding: UInt16, Scale: Unity},
		{Address: 1, Name: "a", Encoding: UInt16, Scale: Unity},
		{Address: 1, Name: "a", Access: ReadOnly, Encoding: UInt16},
		{Address: 1, Name: "a", Access: ReadOnly, Encoding: UInt16, Scale: Unity, Range: &Range{Min: 2, Max: 1}},
		{Address: 1, Name: "a", Access: ReadOnly, Encoding: UInt16, Scale: Unity, Bits: []Bit{{Position: 0, Name: "x"}}},
		{Address: 1, Name: "a", Access: ReadOnly, Encoding: Bitfield, Scale: Unity, Bits: []Bit{{Position: 16, Name: "x"}}},
	}
	for i, d := range bad {
		_, err := NewMap("x", []RegisterDef{d})
		assert.Error(t, err, "case %d", i)
	}
}

func TestMap_LookupAndAt(t *testing.T) {
	m := ERV()

	def, err := m.Lookup(SupplyTemperature)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0064), def.Address)

	at, ok := m.At(0x0064)
	require.True(t, ok)
	assert.Equal(t, SupplyTemperature, at.Name)

	_, err = m.Lookup("nope")
	assert.True(t, errors.Is(err, ErrUnknownRegister))
}

func TestMap_DefsOrderedByAddress(t *testing.T) {
	defs := Holtop().Defs()
	for i := 1; i < len(defs); i++ {
		assert.Less(t, defs[i-1].Address, defs[i].Address)
	}
}

func TestProfile(t *testing.T) {
	m, err := Profile("")
	require.NoError(t, err)
	assert.Equal(t, ProfileERV, m.Profile())

	m, err = Profile(ProfileHoltop)
	require.NoError(t, err)
	assert.True(t, m.Has(SystemPower))

	_, err = Profile("other")
	assert.Error(t, err)
}
