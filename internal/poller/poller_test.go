// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/erv-bridge/internal/modbus"
	"github.com/tamzrod/erv-bridge/internal/registers"
	"github.com/tamzrod/erv-bridge/internal/status"
)

type write struct {
	addr, value uint16
}

type fakeClient struct {
	mu sync.Mutex

	regs       map[uint16]uint16
	failAddr   map[uint16]error
	writeErr   error
	connectErr error

	writes   []write
	connects int
	resets   int
	closed   bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		regs: map[uint16]uint16{
			0x0000: 1,      // on
			0x0001: 8,      // 40 %
			0x0002: 9,      // 50 %
			0x0012: 0x0009, // fire alarm + defrosting
			0x0014: 0x0004, // OA sensor error
			0x0064: 0x00E6, // 23.0
			0x0065: 0xFFF6, // -1.0
			0x0066: 45,
			0x0067: 50,
		},
		failAddr: map[uint16]error{},
	}
}

func (f *fakeClient) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeClient) ReadHoldingRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.failAddr[addr]; err != nil {
		return nil, err
	}
	return []uint16{f.regs[addr]}, nil
}

func (f *fakeClient) WriteSingleRegister(ctx context.Context, addr, value uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, write{addr, value})
	f.regs[addr] = value
	return nil
}

func (f *fakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) set(fn func(f *fakeClient)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

var testDerive = Derive{MaxAirflow: 1500, BaseEfficiency: 70, EfficiencyGain: 20, MaxEfficiency: 95}

func newService(t *testing.T, c Client) *Service {
	t.Helper()
	s, err := New(Config{Interval: time.Second, Derive: testDerive}, c, registers.ERV(), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestNew_RequiresCoreRegisters(t *testing.T) {
	m, err := registers.NewMap("custom", []registers.RegisterDef{
		{Address: 1, Name: registers.SupplyFanSpeed, Access: registers.ReadWrite, Encoding: registers.UInt16, Scale: registers.Unity},
		{Address: 2, Name: registers.ExhaustFanSpeed, Access: registers.ReadWrite, Encoding: registers.UInt16, Scale: registers.Unity},
	})
	require.NoError(t, err)

	_, err = New(Config{Interval: time.Second}, newFakeClient(), m, zerolog.Nop())
	assert.ErrorIs(t, err, registers.ErrUnknownRegister)
}

func TestNew_PolledRegisterMustBeReadable(t *testing.T) {
	m, err := registers.NewMap("custom", []registers.RegisterDef{
		{Address: 0, Name: registers.SystemPower, Access: registers.WriteOnly, Encoding: registers.Bool, Scale: registers.Unity},
		{Address: 1, Name: registers.SupplyFanSpeed, Access: registers.ReadWrite, Encoding: registers.UInt16, Scale: registers.Unity},
		{Address: 2, Name: registers.ExhaustFanSpeed, Access: registers.ReadWrite, Encoding: registers.UInt16, Scale: registers.Unity},
	})
	require.NoError(t, err)

	_, err = New(Config{Interval: time.Second}, newFakeClient(), m, zerolog.Nop())
	assert.ErrorIs(t, err, registers.ErrNotReadable)
}

func TestNew_RejectsZeroInterval(t *testing.T) {
	_, err := New(Config{}, newFakeClient(), registers.ERV(), zerolog.Nop())
	assert.Error(t, err)
}

func TestPollOnce_Success(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)
	assert.Equal(t, status.Disconnected, s.State())

	snap, err := s.PollOnce(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.Connected)
	assert.True(t, snap.Running)
	assert.Equal(t, uint64(1), snap.Seq)
	assert.InDelta(t, 23.0, snap.SupplyTemperature, 1e-9)
	assert.InDelta(t, -1.0, snap.ExhaustTemperature, 1e-9)
	assert.Equal(t, 45.0, snap.SupplyHumidity)
	assert.Equal(t, 50.0, snap.ExhaustHumidity)
	assert.Equal(t, 40, snap.SupplyFan)
	assert.Equal(t, 50, snap.ExhaustFan)
	assert.InDelta(t, 675.0, snap.Airflow, 1e-9)
	assert.InDelta(t, 79.0, snap.Efficiency, 1e-9)
	assert.Equal(t, registers.SystemStatus{FireAlarm: true, Defrosting: true}, snap.Status)
	assert.Equal(t, registers.ErrorStatus{OATemperature: true}, snap.Errors)

	assert.Equal(t, status.Polling, s.State())
	assert.True(t, s.Connected())
	assert.Equal(t, 1, c.connects)
	assert.Equal(t, snap, s.Snapshot())
}

func TestPollOnce_ConnectsOnlyWhenNotPolling(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)

	for i := 0; i < 3; i++ {
		_, err := s.PollOnce(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, c.connects)
	assert.Equal(t, uint64(3), s.Snapshot().Seq)
}

func TestPollOnce_OneFailedReadKeepsSnapshot(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)

	before, err := s.PollOnce(context.Background())
	require.NoError(t, err)

	c.set(func(f *fakeClient) {
		f.regs[0x0064] = 0x0100 // would change the temperature
		f.failAddr[0x0066] = fmt.Errorf("%w: no response", modbus.ErrTimeout)
	})

	_, err = s.PollOnce(context.Background())
	require.ErrorIs(t, err, modbus.ErrTimeout)

	after := s.Snapshot()
	assert.False(t, after.Connected)
	assert.False(t, s.Connected())

	after.Connected = true
	assert.Equal(t, before, after)

	link := s.Link()
	assert.Equal(t, status.Disconnected, link.State)
	assert.Equal(t, status.CodeTimeout, link.LastErrorCode)
	assert.Equal(t, uint32(1), link.ConsecutiveFailures)
	assert.Equal(t, 1, c.resets)
}

func TestPollOnce_ReconnectsOnNextCycle(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)

	_, err := s.PollOnce(context.Background())
	require.NoError(t, err)

	c.set(func(f *fakeClient) { f.failAddr[0x0000] = &modbus.ConnectionError{Op: "read", Err: errors.New("reset")} })
	_, err = s.PollOnce(context.Background())
	require.Error(t, err)

	c.set(func(f *fakeClient) { delete(f.failAddr, 0x0000) })
	snap, err := s.PollOnce(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.Connected)
	assert.Equal(t, 2, c.connects)
	assert.Equal(t, uint32(0), s.Link().ConsecutiveFailures)
}

func TestPollOnce_ConnectFailure(t *testing.T) {
	c := newFakeClient()
	c.connectErr = &modbus.ConnectionError{Op: "dial", Err: errors.New("refused")}
	s := newService(t, c)

	snap, err := s.PollOnce(context.Background())
	var ce *modbus.ConnectionError
	require.ErrorAs(t, err, &ce)

	assert.False(t, snap.Connected)
	assert.Equal(t, uint64(0), snap.Seq)
	assert.Equal(t, status.CodeConnection, s.Link().LastErrorCode)
}

func TestPollOnce_AbortedCycleIsNotAFailure(t *testing.T) {
	c := newFakeClient()
	s := newService(t, c)
	before, err := s.PollOnce(context.Background())
	require.NoError(t, err)

	events, _ := s.Subscribe(8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.PollOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)

	link := s.Link()
	assert.Equal(t, status.Polling, link.State)
	assert.True(t, link.Connected)
	assert.Zero(t, link.ConsecutiveFailures)
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, 1, c.resets)

	select {
	case ev := <-events:
		t.Fatalf("unexpected %s event", ev.Kind)
	default:
	}
}

func TestPollOnce_ExceptionCode(t *testing.T) {
	c := newFakeClient()
	c.failAddr[0x0012] = &modbus.ProtocolException{Function: 0x03, Code: 0x02}
	s := newService(t, c)

	_, err := s.PollOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, uint16(0x02), s.Link().LastErrorCode)
}

func TestDerive_EfficiencyCapped(t *testing.T) {
	d := Derive{MaxAirflow: 1000, BaseEfficiency: 70, EfficiencyGain: 40, MaxEfficiency: 95}
	snap := TelemetrySnapshot{SupplyFan: 100, ExhaustFan: 100}
	d.apply(&snap)

	assert.Equal(t, 1000.0, snap.Airflow)
	assert.Equal(t, 95.0, snap.Efficiency)
}

func TestDerive_Monotonic(t *testing.T) {
	prevAir, prevEff := -1.0, -1.0
	for pct := 0; pct <= 100; pct += 10 {
		snap := TelemetrySnapshot{SupplyFan: pct, ExhaustFan: pct}
		testDerive.apply(&snap)
		assert.GreaterOrEqual(t, snap.Airflow, prevAir)
		assert.GreaterOrEqual(t, snap.Efficiency, prevEff)
		prevAir, prevEff = snap.Airflow, snap.Efficiency
	}
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide("Supply")
	require.NoError(t, err)
	assert.Equal(t, Supply, s)

	s, err = ParseSide("exhaust")
	require.NoError(t, err)
	assert.Equal(t, Exhaust, s)

	_, err = ParseSide("return")
	assert.Error(t, err)
}
