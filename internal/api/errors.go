// internal/api/errors.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tamzrod/erv-bridge/internal/modbus"
	"github.com/tamzrod/erv-bridge/internal/registers"
)

// badRequest marks client input errors.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var br badRequest
	var re *registers.RangeError
	var pe *modbus.ProtocolException
	var ce *modbus.ConnectionError
	var de *modbus.DecodeError

	switch {
	case errors.As(err, &br), errors.As(err, &re):
		return http.StatusBadRequest
	case errors.Is(err, registers.ErrUnknownRegister):
		return http.StatusNotFound
	case errors.Is(err, registers.ErrNotWritable), errors.Is(err, registers.ErrNotReadable):
		return http.StatusMethodNotAllowed
	case errors.Is(err, modbus.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &pe), errors.As(err, &de):
		return http.StatusBadGateway
	case errors.As(err, &ce):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}
