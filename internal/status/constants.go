// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a cycle where every field decoded.
const HealthOK uint16 = 1

// HealthError represents a cycle where no field decoded.
const HealthError uint16 = 2

// HealthDegraded represents a partial cycle.
const HealthDegraded uint16 = 3

// HealthName is the text form of a health code.
func HealthName(code uint16) string {
	switch code {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// ---- ERROR CODES ----

// Last error codes. 0 means no error.
const (
	ErrorNone      uint16 = 0
	ErrorGeneric   uint16 = 1
	ErrorTimeout   uint16 = 2
	ErrorTransport uint16 = 3
	ErrorLinkDown  uint16 = 4
	ErrorPublish   uint16 = 5
)

// ---- LIMITS ----

// MaxSecondsInError caps the error duration counter; it MUST NOT wrap.
const MaxSecondsInError = 65535
