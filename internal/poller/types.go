// internal/poller/types.go
package poller

import (
	"fmt"
	"strings"
	"time"

	"github.com/tamzrod/erv-bridge/internal/registers"
	"github.com/tamzrod/erv-bridge/internal/status"
)

// Side selects one of the two fans.
type Side uint8

const (
	Supply Side = iota
	Exhaust
)

func (s Side) String() string {
	if s == Exhaust {
		return "exhaust"
	}
	return "supply"
}

// register returns the logical register that holds this fan's step code.
func (s Side) register() string {
	if s == Exhaust {
		return registers.ExhaustFanSpeed
	}
	return registers.SupplyFanSpeed
}

func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "supply":
		return Supply, nil
	case "exhaust":
		return Exhaust, nil
	}
	return 0, fmt.Errorf("poller: unknown fan side %q", s)
}

// TelemetrySnapshot is one consistent set of decoded values.
// Value type; a copy handed out is never modified afterwards.
type TelemetrySnapshot struct {
	Seq       uint64    `json:"seq"`
	At        time.Time `json:"at"`
	Connected bool      `json:"connected"`
	Running   bool      `json:"running"`

	SupplyTemperature  float64 `json:"supplyTemperature"`
	ExhaustTemperature float64 `json:"exhaustTemperature"`
	OutdoorTemperature float64 `json:"outdoorTemperature,omitempty"`
	RoomTemperature    float64 `json:"roomTemperature,omitempty"`
	SupplyHumidity     float64 `json:"supplyHumidity"`
	ExhaustHumidity    float64 `json:"exhaustHumidity"`

	// Fan speeds as step percentages.
	SupplyFan  int `json:"supplyFanSpeed"`
	ExhaustFan int `json:"exhaustFanSpeed"`

	Airflow    float64 `json:"airflow"`
	Efficiency float64 `json:"efficiency"`

	Status registers.SystemStatus `json:"status"`
	Errors registers.ErrorStatus  `json:"errors"`
}

// EventKind tags what an Event carries.
type EventKind uint8

const (
	SnapshotEvent EventKind = iota + 1
	LinkEvent
)

func (k EventKind) String() string {
	switch k {
	case SnapshotEvent:
		return "snapshot"
	case LinkEvent:
		return "link"
	default:
		return "unknown"
	}
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Event is delivered to subscribers. Exactly one of Snapshot or Link is set.
type Event struct {
	Kind     EventKind          `json:"type"`
	Snapshot *TelemetrySnapshot `json:"snapshot,omitempty"`
	Link     *status.Link       `json:"link,omitempty"`
}

// Derive parameterizes the secondary quantities computed from the
// average fan percentage.
type Derive struct {
	MaxAirflow     float64
	BaseEfficiency float64
	EfficiencyGain float64
	MaxEfficiency  float64
}

// apply fills Airflow and Efficiency from the fan percentages.
func (d Derive) apply(s *TelemetrySnapshot) {
	avg := float64(s.SupplyFan+s.ExhaustFan) / 2 / 100
	s.Airflow = avg * d.MaxAirflow
	s.Efficiency = d.BaseEfficiency + avg*d.EfficiencyGain
	if s.Efficiency > d.MaxEfficiency {
		s.Efficiency = d.MaxEfficiency
	}
}
