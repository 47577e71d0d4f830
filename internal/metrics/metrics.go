// internal/metrics/metrics.go
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tamzrod/erv-bridge/internal/modbus"
	"github.com/tamzrod/erv-bridge/internal/registers"
)

var (
	// Counters
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erv_modbus_requests_total",
		Help: "Modbus requests issued, by function and outcome",
	}, []string{"function", "result"})

	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erv_poll_cycles_total",
		Help: "Poll cycles, by outcome",
	}, []string{"result"})

	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erv_commands_total",
		Help: "Control commands, by command and outcome",
	}, []string{"command", "result"})

	// Gauges
	Connected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "erv_connected",
		Help: "1 while the last poll cycle succeeded",
	})

	Temperature = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "erv_temperature_celsius",
		Help: "Decoded air temperatures",
	}, []string{"side"})

	Humidity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "erv_humidity_percent",
		Help: "Decoded relative humidity",
	}, []string{"side"})

	FanSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "erv_fan_speed_percent",
		Help: "Fan speed as step percentage",
	}, []string{"side"})

	// Histograms
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "erv_modbus_request_duration_seconds",
		Help:    "Modbus request round trip time",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"function"})
)

// Function labels
const (
	FunctionRead  = "read_holding_registers"
	FunctionWrite = "write_single_register"
)

// Result labels
const (
	ResultSuccess    = "success"
	ResultTimeout    = "timeout"
	ResultConnection = "connection"
	ResultException  = "exception"
	ResultDecode     = "decode"
	ResultRange      = "range"
	ResultFailed     = "failed"
)

// Result classifies an error into a result label.
func Result(err error) string {
	if err == nil {
		return ResultSuccess
	}

	var ce *modbus.ConnectionError
	var pe *modbus.ProtocolException
	var de *modbus.DecodeError
	var re *registers.RangeError
	switch {
	case errors.Is(err, modbus.ErrTimeout):
		return ResultTimeout
	case errors.As(err, &ce):
		return ResultConnection
	case errors.As(err, &pe):
		return ResultException
	case errors.As(err, &de):
		return ResultDecode
	case errors.As(err, &re):
		return ResultRange
	}
	return ResultFailed
}

// SetConnected mirrors the connectivity flag.
func SetConnected(ok bool) {
	if ok {
		Connected.Set(1)
		return
	}
	Connected.Set(0)
}
