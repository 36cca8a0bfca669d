// Package wireerr defines the error taxonomy shared by the codec and
// translator packages.  None of these are fatal: a decoder that returns one
// of them has left its caller free to keep reading the stream.
package wireerr

import "errors"

// Kind identifies which of the documented failure categories an error
// belongs to, so that callers can switch on it with errors.Is.
type Kind int

const (
	// NeedMoreBytes means the framer cannot complete with the bytes it has.
	NeedMoreBytes Kind = iota
	// InvalidMessage means a bit-bounds overflow, length mismatch or
	// impossible field combination was found.
	InvalidMessage
	// CrcMismatch means the framing CRC failed to verify.
	CrcMismatch
	// MessageTypeMismatch means a decoder was invoked for the wrong type.
	MessageTypeMismatch
	// UnsupportedCode means a signal uses a code this module cannot map.
	UnsupportedCode
	// BufferFull means an output FIFO would overflow.
	BufferFull
	// TimeUnknown means emission needs absolute time that isn't available.
	TimeUnknown
	// ConfigError means the caller asked for a state that can't be granted.
	ConfigError
)

func (k Kind) String() string {
	switch k {
	case NeedMoreBytes:
		return "NeedMoreBytes"
	case InvalidMessage:
		return "InvalidMessage"
	case CrcMismatch:
		return "CrcMismatch"
	case MessageTypeMismatch:
		return "MessageTypeMismatch"
	case UnsupportedCode:
		return "UnsupportedCode"
	case BufferFull:
		return "BufferFull"
	case TimeUnknown:
		return "TimeUnknown"
	case ConfigError:
		return "ConfigError"
	default:
		return "Unknown"
	}
}

// Error is a Kind carrying a message, satisfying the error interface.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Msg }

// New creates an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Is lets errors.Is(err, wireerr.Sentinel(wireerr.NeedMoreBytes)) work by
// comparing Kind values wrapped as sentinel errors below.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// Sentinel returns a zero-message Error of the given kind, suitable for use
// with errors.Is as the target.
func Sentinel(kind Kind) error { return &Error{Kind: kind} }
