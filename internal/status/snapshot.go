// internal/status/snapshot.go
package status

import "time"

// Link is the externally visible health of one device link.
// Value type; copies are independent.
type Link struct {
	State               State     `json:"state"`
	Connected           bool      `json:"connected"`
	LastErrorCode       uint16    `json:"lastErrorCode"`
	LastError           string    `json:"lastError,omitempty"`
	ConsecutiveFailures uint32    `json:"consecutiveFailures"`
	Since               time.Time `json:"since"`
}
