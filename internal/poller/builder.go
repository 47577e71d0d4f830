// internal/poller/builder.go
package poller

import (
	"github.com/rs/zerolog"

	"github.com/tamzrod/erv-bridge/internal/config"
	"github.com/tamzrod/erv-bridge/internal/modbus"
)

// Build constructs the Modbus client and the Service from a loaded config.
// The connection is opened lazily by the first poll cycle or command.
func Build(c *config.Config, log zerolog.Logger) (*Service, error) {
	regs, err := c.RegisterMap()
	if err != nil {
		return nil, err
	}

	client, err := modbus.New(modbus.Config{
		Endpoint:        c.Device.Endpoint(),
		UnitID:          c.Device.UnitID,
		Timeout:         c.Device.Timeout(),
		TransactionSeed: c.Device.TransactionSeed,
		Logger:          log,
	})
	if err != nil {
		return nil, err
	}

	maxAirflow, base, gain, maxEff := c.Derive.Resolved()
	return New(
		Config{
			Interval: c.Poll.Interval(),
			Derive: Derive{
				MaxAirflow:     maxAirflow,
				BaseEfficiency: base,
				EfficiencyGain: gain,
				MaxEfficiency:  maxEff,
			},
		},
		client,
		regs,
		log,
	)
}
