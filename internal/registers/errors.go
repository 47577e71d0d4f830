// internal/registers/errors.go
package registers

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrUnknownRegister = errors.New("registers: unknown register")
	ErrNotWritable     = errors.New("registers: register is not writable")
	ErrNotReadable     = errors.New("registers: register is not readable")
)

// RangeError reports a value outside a register's valid range
// or outside what its encoding can represent.
type RangeError struct {
	Register string
	Value    float64
	Min      float64
	Max      float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("registers: %s value %s out of range [%s, %s]",
		e.Register, fmtNum(e.Value), fmtNum(e.Min), fmtNum(e.Max))
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
