// internal/status/code.go
package status

import (
	"errors"

	"github.com/tamzrod/erv-bridge/internal/modbus"
)

// Code extracts a best-effort uint16 code from an error.
// Device exception codes pass through; transport classes map to reserved codes.
func Code(err error) uint16 {
	if err == nil {
		return CodeNone
	}

	type coder interface{ ModbusCode() uint16 }
	var c coder
	if errors.As(err, &c) {
		return c.ModbusCode()
	}

	var ce *modbus.ConnectionError
	var de *modbus.DecodeError
	switch {
	case errors.Is(err, modbus.ErrTimeout):
		return CodeTimeout
	case errors.As(err, &ce):
		return CodeConnection
	case errors.As(err, &de):
		return CodeDecode
	}

	return CodeGeneric
}
