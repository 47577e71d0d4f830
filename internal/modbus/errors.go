// internal/modbus/errors.go
package modbus

import (
	"context"
	"errors"
	"fmt"

	gmodbus "github.com/goburrow/modbus"
)

// ErrTimeout is returned (wrapped) when no correctly tagged response
// arrives before the request deadline.
var ErrTimeout = errors.New("modbus: timeout")

// ConnectionError is a socket-level failure: dial, write, read or reset.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("modbus: connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolException is a Modbus exception response from the device.
type ProtocolException struct {
	Function byte
	Code     byte
}

func (e *ProtocolException) Error() string {
	return fmt.Sprintf("modbus: exception %d (%s) for function 0x%02X", e.Code, exceptionName(e.Code), e.Function)
}

// ModbusCode exposes the exception byte to the status layer.
func (e *ProtocolException) ModbusCode() uint16 { return uint16(e.Code) }

// DecodeError is a malformed or short response frame.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "modbus: bad response: " + e.Reason }

func decodeErrorf(format string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

func exceptionName(code byte) string {
	switch code {
	case gmodbus.ExceptionCodeIllegalFunction:
		return "illegal function"
	case gmodbus.ExceptionCodeIllegalDataAddress:
		return "illegal data address"
	case gmodbus.ExceptionCodeIllegalDataValue:
		return "illegal data value"
	case gmodbus.ExceptionCodeServerDeviceFailure:
		return "server device failure"
	case gmodbus.ExceptionCodeAcknowledge:
		return "acknowledge"
	case gmodbus.ExceptionCodeServerDeviceBusy:
		return "server device busy"
	case gmodbus.ExceptionCodeMemoryParityError:
		return "memory parity error"
	case gmodbus.ExceptionCodeGatewayPathUnavailable:
		return "gateway path unavailable"
	case gmodbus.ExceptionCodeGatewayTargetDeviceFailedToRespond:
		return "gateway target device failed to respond"
	default:
		return "unknown"
	}
}

// classify maps whatever the goburrow client returned onto our taxonomy.
// Errors raised by our own handler pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var me *gmodbus.ModbusError
	if errors.As(err, &me) {
		return &ProtocolException{Function: me.FunctionCode &^ 0x80, Code: me.ExceptionCode}
	}

	var ce *ConnectionError
	var de *DecodeError
	switch {
	case errors.As(err, &ce), errors.As(err, &de), errors.Is(err, ErrTimeout):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}

	// goburrow validates byte counts and write echoes with plain errors.
	return &DecodeError{Reason: err.Error()}
}
