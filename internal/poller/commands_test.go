// internal/poller/commands_test.go
package poller

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/erv-bridge/internal/modbus"
	"github.com/tamzrod/erv-bridge/internal/registers"
)

func TestSetFanSpeed_WritesNearestStep(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)
	_, err := s.PollOnce(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.SetFanSpeed(context.Background(), Supply, 45))

	require.Len(t, c.writes, 1)
	assert.Equal(t, write{addr: 0x0001, value: 8}, c.writes[0])
}

func TestSetFanSpeed_OptimisticSnapshot(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)
	before, err := s.PollOnce(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.SetFanSpeed(context.Background(), Exhaust, 100))

	after := s.Snapshot()
	assert.Equal(t, 100, after.ExhaustFan)
	assert.Equal(t, before.SupplyFan, after.SupplyFan)
	assert.Equal(t, before.Seq+1, after.Seq)
	assert.InDelta(t, 0.7*1500, after.Airflow, 1e-9)
	assert.Equal(t, before.SupplyTemperature, after.SupplyTemperature)
}

func TestSetFanSpeed_OutOfRange(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)

	for _, pct := range []int{-1, 101} {
		err := s.SetFanSpeed(context.Background(), Supply, pct)
		var re *registers.RangeError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, registers.SupplyFanSpeed, re.Register)
	}
	assert.Empty(t, c.writes)
}

func TestSetFanSpeed_WriteFailureDoesNotMutate(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)
	before, err := s.PollOnce(context.Background())
	require.NoError(t, err)

	c.set(func(f *fakeClient) { f.writeErr = &modbus.ProtocolException{Function: 0x06, Code: 0x03} })

	err = s.SetFanSpeed(context.Background(), Supply, 100)
	var pe *modbus.ProtocolException
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, byte(0x03), pe.Code)

	assert.Equal(t, before, s.Snapshot())
}

func TestSetSystemPower(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)
	_, err := s.PollOnce(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.SetSystemPower(context.Background(), false))
	assert.Equal(t, []write{{addr: 0x0000, value: 0}}, c.writes)
	assert.False(t, s.Snapshot().Running)

	require.NoError(t, s.SetSystemPower(context.Background(), true))
	assert.Equal(t, write{addr: 0x0000, value: 1}, c.writes[1])
	assert.True(t, s.Snapshot().Running)
}

func TestWriteRegister_NotWritable(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)

	err := s.WriteRegister(context.Background(), registers.SupplyTemperature, registers.Number(20))
	assert.ErrorIs(t, err, registers.ErrNotWritable)
	assert.Empty(t, c.writes)
}

func TestWriteRegister_Unknown(t *testing.T) {
	s := newService(t, newFakeClient())

	err := s.WriteRegister(context.Background(), "turbo", registers.Number(1))
	assert.ErrorIs(t, err, registers.ErrUnknownRegister)

	_, _, err = s.ReadRegister(context.Background(), "turbo")
	assert.ErrorIs(t, err, registers.ErrUnknownRegister)
}

func TestWriteRegister_RangeChecked(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)

	err := s.WriteRegister(context.Background(), registers.SupplyFanSpeed, registers.Number(15))
	var re *registers.RangeError
	require.ErrorAs(t, err, &re)
	assert.Empty(t, c.writes)
}

func TestWriteRegister_FanRejectsCodeBetweenSteps(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)
	before, err := s.PollOnce(context.Background())
	require.NoError(t, err)

	err = s.WriteRegister(context.Background(), registers.SupplyFanSpeed, registers.Number(4))
	var re *registers.RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 4.0, re.Value)
	assert.Empty(t, c.writes)
	assert.Equal(t, before, s.Snapshot())

	require.NoError(t, s.WriteRegister(context.Background(), registers.SupplyFanSpeed, registers.Number(5)))
	assert.Equal(t, []write{{addr: 0x0001, value: 5}}, c.writes)
	assert.Equal(t, 30, s.Snapshot().SupplyFan)
}

func TestReadRegister(t *testing.T) {
	s := newService(t, newFakeClient())

	raw, v, err := s.ReadRegister(context.Background(), registers.ExhaustTemperature)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFF6), raw)
	assert.InDelta(t, -1.0, v.Float(), 1e-9)
}

func TestReadRegister_Failure(t *testing.T) {
	c := newFakeClient()
	c.failAddr[0x0066] = errors.New("boom")
	s := newService(t, c)

	_, _, err := s.ReadRegister(context.Background(), registers.SupplyHumidity)
	assert.Error(t, err)
}
