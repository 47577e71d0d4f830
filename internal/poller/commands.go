// internal/poller/commands.go
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/tamzrod/erv-bridge/internal/metrics"
	"github.com/tamzrod/erv-bridge/internal/registers"
)

// SetFanSpeed writes the step closest to pct (0..100) for one fan.
func (s *Service) SetFanSpeed(ctx context.Context, side Side, pct int) error {
	name := side.register()
	if pct < 0 || pct > 100 {
		err := &registers.RangeError{Register: name, Value: float64(pct), Min: 0, Max: 100}
		metrics.Commands.WithLabelValues("fan_"+side.String(), metrics.Result(err)).Inc()
		return err
	}

	code := registers.PercentToStep(pct)
	err := s.WriteRegister(ctx, name, registers.Number(float64(code)))
	metrics.Commands.WithLabelValues("fan_"+side.String(), metrics.Result(err)).Inc()
	return err
}

// SetSystemPower switches the unit on or off.
func (s *Service) SetSystemPower(ctx context.Context, on bool) error {
	err := s.WriteRegister(ctx, registers.SystemPower, registers.Switch(on))
	metrics.Commands.WithLabelValues("power", metrics.Result(err)).Inc()
	return err
}

// ReadRegister reads one logical register outside the poll cycle.
func (s *Service) ReadRegister(ctx context.Context, name string) (uint16, registers.Value, error) {
	def, err := s.regs.Lookup(name)
	if err != nil {
		return 0, registers.Value{}, err
	}
	if !def.Access.Readable() {
		return 0, registers.Value{}, fmt.Errorf("%s: %w", name, registers.ErrNotReadable)
	}

	s.link.Lock()
	defer s.link.Unlock()

	raw, err := s.read(ctx, def)
	if err != nil {
		return 0, registers.Value{}, err
	}
	return raw, registers.Decode(def, raw), nil
}

// WriteRegister encodes v for the named register and writes it.
// On success the published snapshot reflects the write immediately;
// on failure nothing is published.
func (s *Service) WriteRegister(ctx context.Context, name string, v registers.Value) error {
	def, err := s.regs.Lookup(name)
	if err != nil {
		return err
	}
	if !def.Access.Writable() {
		return fmt.Errorf("%s: %w", name, registers.ErrNotWritable)
	}
	raw, err := registers.Encode(def, v)
	if err != nil {
		return err
	}

	s.link.Lock()
	defer s.link.Unlock()

	start := time.Now()
	err = s.client.WriteSingleRegister(ctx, def.Address, raw)
	metrics.RequestDuration.WithLabelValues(metrics.FunctionWrite).Observe(time.Since(start).Seconds())
	metrics.Requests.WithLabelValues(metrics.FunctionWrite, metrics.Result(err)).Inc()
	if err != nil {
		s.log.Warn().Err(err).Str("register", name).Uint16("raw", raw).Msg("write failed")
		return fmt.Errorf("write %s: %w", name, err)
	}

	s.log.Info().Str("register", name).Uint16("raw", raw).Stringer("value", registers.Decode(def, raw)).Msg("register written")
	s.applyWrite(def, raw)
	return nil
}

// applyWrite folds a confirmed write into the published snapshot when
// the register backs a snapshot field.
func (s *Service) applyWrite(def registers.RegisterDef, raw uint16) {
	var update func(*TelemetrySnapshot)
	switch def.Name {
	case registers.SupplyFanSpeed:
		update = func(snap *TelemetrySnapshot) { snap.SupplyFan = registers.StepToPercent(raw) }
	case registers.ExhaustFanSpeed:
		update = func(snap *TelemetrySnapshot) { snap.ExhaustFan = registers.StepToPercent(raw) }
	case registers.SystemPower:
		update = func(snap *TelemetrySnapshot) { snap.Running = registers.Decode(def, raw).On }
	default:
		return
	}

	s.publish(func(cur *TelemetrySnapshot) TelemetrySnapshot {
		update(cur)
		s.cfg.Derive.apply(cur)
		return *cur
	})
}
