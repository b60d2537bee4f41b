package protocol

import (
	"encoding/json"
	"time"
)

// Envelope wraps every message exchanged with a client.
type Envelope struct {
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// ErrorPayload is the payload of an "error" envelope.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Machine readable error codes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeRateLimited  = "RATE_LIMITED"
)

// Client facing error messages shared by the dispatcher.
const (
	MsgInvalidFormat  = "Invalid message format"
	MsgUnknownType    = "Unknown message type"
	MsgInternal       = "Internal server error"
	MsgInvalidSession = "Invalid or expired session"
	MsgRateLimited    = "Rate limit exceeded"
)

// Now returns the envelope timestamp for the current instant.
func Now() int64 {
	return time.Now().UnixMilli()
}

// Marshal serializes an envelope of the given type, stamping it with the
// current time. The returned bytes are immutable and may be fanned out as is.
func Marshal(typ Type, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: typ, Payload: raw, Timestamp: Now()})
}

// MarshalError serializes an error envelope.
func MarshalError(message, code string) ([]byte, error) {
	return Marshal(TypeError, ErrorPayload{Message: message, Code: code})
}
