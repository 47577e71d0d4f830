// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/erv-bridge/internal/metrics"
	"github.com/tamzrod/erv-bridge/internal/registers"
	"github.com/tamzrod/erv-bridge/internal/status"
)

// Client abstracts the Modbus operations the service needs.
// *modbus.Client satisfies it.
type Client interface {
	Connect(ctx context.Context) error
	ReadHoldingRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error)
	WriteSingleRegister(ctx context.Context, addr, value uint16) error
	Reset()
	Close() error
}

// Config is the minimal runtime config the service needs.
type Config struct {
	Interval time.Duration
	Derive   Derive
}

// Registers every cycle must read.
var requiredRegisters = []string{
	registers.SystemPower,
	registers.SupplyFanSpeed,
	registers.ExhaustFanSpeed,
}

// Registers read when the active table has them.
var optionalRegisters = []string{
	registers.SystemStatusBits,
	registers.ErrorBitsName,
	registers.SupplyTemperature,
	registers.ExhaustTemperature,
	registers.OutdoorTemperature,
	registers.RoomTemperature,
	registers.SupplyHumidity,
	registers.ExhaustHumidity,
}

// Service is the single logical owner of one device link.
// Poll cycles and commands are serialized; the published snapshot
// only ever changes as a whole.
type Service struct {
	cfg     Config
	client  Client
	regs    *registers.Map
	polled  []registers.RegisterDef
	log     zerolog.Logger
	tracker *status.Tracker
	now     func() time.Time

	// link is held for a whole cycle or command.
	link sync.Mutex

	mu   sync.RWMutex
	snap TelemetrySnapshot

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int
	closed  bool

	runMu   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// New creates a service with immutable config. No I/O happens here.
func New(cfg Config, client Client, regs *registers.Map, log zerolog.Logger) (*Service, error) {
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	if regs == nil {
		return nil, errors.New("poller: register map required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}

	var polled []registers.RegisterDef
	for _, name := range requiredRegisters {
		def, err := regs.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("poller: %w", err)
		}
		if !def.Access.Readable() {
			return nil, fmt.Errorf("poller: %s: %w", name, registers.ErrNotReadable)
		}
		polled = append(polled, def)
	}
	for _, name := range optionalRegisters {
		def, err := regs.Lookup(name)
		if err != nil {
			continue
		}
		if !def.Access.Readable() {
			return nil, fmt.Errorf("poller: %s: %w", name, registers.ErrNotReadable)
		}
		polled = append(polled, def)
	}

	return &Service{
		cfg:     cfg,
		client:  client,
		regs:    regs,
		polled:  polled,
		log:     log.With().Str("component", "poller").Str("profile", regs.Profile()).Logger(),
		tracker: status.NewTracker(),
		now:     time.Now,
		subs:    make(map[int]chan Event),
	}, nil
}

// Registers returns the active register table.
func (s *Service) Registers() *registers.Map { return s.regs }

// Snapshot returns the last published snapshot. Connected reflects the
// link at the time of the call; all other fields are exactly what the
// last successful cycle (or command) published.
func (s *Service) Snapshot() TelemetrySnapshot {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	snap.Connected = s.tracker.Link().Connected
	return snap
}

func (s *Service) Connected() bool { return s.tracker.Link().Connected }

func (s *Service) State() status.State { return s.tracker.Link().State }

// Link returns the full link health record.
func (s *Service) Link() status.Link { return s.tracker.Link() }

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any failed read aborts the cycle and the previous
// snapshot stays published.
func (s *Service) PollOnce(ctx context.Context) (TelemetrySnapshot, error) {
	s.link.Lock()
	defer s.link.Unlock()

	if s.tracker.Link().State != status.Polling {
		s.linkChanged(s.tracker.Connecting())
		if err := s.client.Connect(ctx); err != nil {
			return s.fail(ctx, err)
		}
	}

	values := make(map[string]registers.Value, len(s.polled))
	for _, def := range s.polled {
		raw, err := s.read(ctx, def)
		if err != nil {
			return s.fail(ctx, fmt.Errorf("read %s: %w", def.Name, err))
		}
		values[def.Name] = registers.Decode(def, raw)
	}

	// Commit only if all reads succeeded
	s.linkChanged(s.tracker.Success())
	snap := s.assemble(values)
	s.publish(func(*TelemetrySnapshot) TelemetrySnapshot { return snap })

	metrics.PollCycles.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.SetConnected(true)
	s.observe(snap)

	return s.Snapshot(), nil
}

func (s *Service) read(ctx context.Context, def registers.RegisterDef) (uint16, error) {
	start := time.Now()
	regs, err := s.client.ReadHoldingRegisters(ctx, def.Address, 1)
	metrics.RequestDuration.WithLabelValues(metrics.FunctionRead).Observe(time.Since(start).Seconds())
	metrics.Requests.WithLabelValues(metrics.FunctionRead, metrics.Result(err)).Inc()
	if err != nil {
		return 0, err
	}
	return regs[0], nil
}

func (s *Service) fail(ctx context.Context, err error) (TelemetrySnapshot, error) {
	s.client.Reset()

	// An aborted cycle says nothing about the device.
	if ctx.Err() != nil {
		s.log.Debug().Err(err).Msg("poll cycle aborted")
		return s.Snapshot(), err
	}

	metrics.PollCycles.WithLabelValues(metrics.Result(err)).Inc()
	metrics.SetConnected(false)

	link, changed := s.tracker.Failure(err)
	s.log.Warn().
		Err(err).
		Uint32("consecutive_failures", link.ConsecutiveFailures).
		Msg("poll cycle failed")
	s.linkChanged(link, changed)

	return s.Snapshot(), err
}

func (s *Service) assemble(values map[string]registers.Value) TelemetrySnapshot {
	var snap TelemetrySnapshot

	number := func(name string) float64 {
		if v, ok := values[name]; ok {
			return v.Float()
		}
		return 0
	}

	snap.Running = values[registers.SystemPower].On
	snap.SupplyFan = registers.StepToPercent(uint16(number(registers.SupplyFanSpeed)))
	snap.ExhaustFan = registers.StepToPercent(uint16(number(registers.ExhaustFanSpeed)))
	snap.SupplyTemperature = number(registers.SupplyTemperature)
	snap.ExhaustTemperature = number(registers.ExhaustTemperature)
	snap.OutdoorTemperature = number(registers.OutdoorTemperature)
	snap.RoomTemperature = number(registers.RoomTemperature)
	snap.SupplyHumidity = number(registers.SupplyHumidity)
	snap.ExhaustHumidity = number(registers.ExhaustHumidity)
	snap.Status = registers.SystemStatusFrom(values[registers.SystemStatusBits].Flags)
	snap.Errors = registers.ErrorStatusFrom(values[registers.ErrorBitsName].Flags)

	s.cfg.Derive.apply(&snap)
	return snap
}

// publish replaces the snapshot with next(current), stamps it and
// notifies subscribers.
func (s *Service) publish(next func(cur *TelemetrySnapshot) TelemetrySnapshot) {
	s.mu.Lock()
	cur := s.snap
	snap := next(&cur)
	snap.Seq = s.snap.Seq + 1
	snap.At = s.now()
	snap.Connected = s.tracker.Link().Connected
	s.snap = snap
	s.mu.Unlock()

	s.emit(Event{Kind: SnapshotEvent, Snapshot: &snap})
}

func (s *Service) observe(snap TelemetrySnapshot) {
	metrics.Temperature.WithLabelValues("supply").Set(snap.SupplyTemperature)
	metrics.Temperature.WithLabelValues("exhaust").Set(snap.ExhaustTemperature)
	metrics.Humidity.WithLabelValues("supply").Set(snap.SupplyHumidity)
	metrics.Humidity.WithLabelValues("exhaust").Set(snap.ExhaustHumidity)
	metrics.FanSpeed.WithLabelValues("supply").Set(float64(snap.SupplyFan))
	metrics.FanSpeed.WithLabelValues("exhaust").Set(float64(snap.ExhaustFan))
}

func (s *Service) linkChanged(link status.Link, changed bool) {
	if !changed {
		return
	}
	s.log.Info().
		Stringer("state", link.State).
		Bool("connected", link.Connected).
		Uint16("last_error_code", link.LastErrorCode).
		Msg("link state changed")
	s.emit(Event{Kind: LinkEvent, Link: &link})
}
