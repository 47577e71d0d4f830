// internal/config/config.go
package config

import (
	"net"
	"strconv"
	"time"
)

type Config struct {
	Device    DeviceConfig     `yaml:"device"`
	Poll      PollConfig       `yaml:"poll"`
	Derive    DeriveConfig     `yaml:"derive"`
	Registers []RegisterConfig `yaml:"registers" validate:"dive"`
	Log       LogConfig        `yaml:"log"`
	HTTP      HTTPConfig       `yaml:"http"`
	MQTT      MQTTConfig       `yaml:"mqtt"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Host      string `yaml:"host" validate:"required"`
	Port      int    `yaml:"port" validate:"min=1,max=65535"`
	UnitID    uint8  `yaml:"unit_id" validate:"min=1,max=247"`
	TimeoutMs int    `yaml:"timeout_ms" validate:"min=1,max=60000"`

	// First request carries transaction_seed+1.
	TransactionSeed uint16 `yaml:"transaction_seed"`

	// Built-in register table; ignored when registers are listed explicitly.
	Profile string `yaml:"profile" validate:"omitempty,oneof=erv holtop"`
}

func (d DeviceConfig) Endpoint() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

func (d DeviceConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms" validate:"min=10"`
}

func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// ---- DERIVED VALUES ----

// DeriveConfig parameterizes airflow and efficiency as functions of the
// average fan percentage. Unset fields take their defaults independently,
// so an explicit 0 stays 0.
type DeriveConfig struct {
	MaxAirflow     *float64 `yaml:"max_airflow" validate:"omitempty,gte=0"`
	BaseEfficiency *float64 `yaml:"base_efficiency" validate:"omitempty,gte=0,lte=100"`
	EfficiencyGain *float64 `yaml:"efficiency_gain" validate:"omitempty,gte=0,lte=100"`
	MaxEfficiency  *float64 `yaml:"max_efficiency" validate:"omitempty,gte=0,lte=100"`
}

// Resolved returns the four parameters, substituting defaults for unset fields.
func (d DeriveConfig) Resolved() (maxAirflow, baseEfficiency, efficiencyGain, maxEfficiency float64) {
	return valueOr(d.MaxAirflow, DefaultMaxAirflow),
		valueOr(d.BaseEfficiency, DefaultBaseEfficiency),
		valueOr(d.EfficiencyGain, DefaultEfficiencyGain),
		valueOr(d.MaxEfficiency, DefaultMaxEfficiency)
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// ---- REGISTER TABLE OVERRIDE ----

type RegisterConfig struct {
	Address     uint16           `yaml:"address"`
	Name        string           `yaml:"name" validate:"required"`
	Description string           `yaml:"description"`
	Access      string           `yaml:"access" validate:"required,oneof=read write readwrite"`
	Encoding    string           `yaml:"encoding" validate:"required,oneof=uint16 int16 bool bitfield"`
	Scale       string           `yaml:"scale"` // "1/10", "0.1"; empty = 1
	Unit        string           `yaml:"unit"`
	Min         *float64         `yaml:"min"`
	Max         *float64         `yaml:"max"`
	Bits        map[uint8]string `yaml:"bits"` // bit position -> name
	Values      []float64        `yaml:"values"` // discrete valid values; fan registers default to the step codes
}

// ---- LOGGING ----

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

// ---- INBOUND API ----

type HTTPConfig struct {
	Listen string `yaml:"listen"` // empty disables the API
	WSPath string `yaml:"ws_path"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker      string `yaml:"broker" validate:"omitempty,url"` // empty disables MQTT
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos" validate:"max=2"`
	Commands    bool   `yaml:"commands"`
}
