// internal/config/normalize.go
package config

import "github.com/tamzrod/erv-bridge/internal/modbus"

const (
	DefaultPollIntervalMs = 2000
	DefaultWSPath         = "/ws"
	DefaultTopicPrefix    = "erv"

	DefaultMaxAirflow     = 1500.0
	DefaultBaseEfficiency = 70.0
	DefaultEfficiencyGain = 20.0
	DefaultMaxEfficiency  = 95.0
)

// Normalize fills defaults for unset fields.
// It is allowed to mutate configuration and runs before Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	d := &cfg.Device
	if d.Port == 0 {
		d.Port = modbus.DefaultPort
	}
	if d.UnitID == 0 {
		d.UnitID = modbus.DefaultUnitID
	}
	if d.TimeoutMs == 0 {
		d.TimeoutMs = int(modbus.DefaultTimeout.Milliseconds())
	}

	if cfg.Poll.IntervalMs == 0 {
		cfg.Poll.IntervalMs = DefaultPollIntervalMs
	}

	maxAirflow, base, gain, maxEff := cfg.Derive.Resolved()
	cfg.Derive = DeriveConfig{
		MaxAirflow:     &maxAirflow,
		BaseEfficiency: &base,
		EfficiencyGain: &gain,
		MaxEfficiency:  &maxEff,
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if cfg.HTTP.WSPath == "" {
		cfg.HTTP.WSPath = DefaultWSPath
	}

	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = DefaultTopicPrefix
	}
}
