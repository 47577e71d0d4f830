// internal/status/constants.go
package status

// State is the link state of one device.
//
//	Disconnected -> Connecting -> Polling -> (Disconnected on failure)
type State uint8

const (
	Disconnected State = iota
	Connecting
	Polling
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Polling:
		return "polling"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ---- LAST ERROR CODES ----

// CodeNone means the last cycle succeeded.
const CodeNone uint16 = 0

// Modbus exception codes (1..255) are passed through verbatim.

// CodeDecode is a malformed response.
const CodeDecode uint16 = 0xFFFC

// CodeConnection is a transport failure.
const CodeConnection uint16 = 0xFFFD

// CodeTimeout is a missing or late response.
const CodeTimeout uint16 = 0xFFFE

// CodeGeneric is any other error.
const CodeGeneric uint16 = 0xFFFF
