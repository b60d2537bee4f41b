package dispatch

import "github.com/tablesync/tablesync/pkg/protocol"

// Error is a handler failure that is safe to show to the client. Err is the
// underlying cause and is only logged.
type Error struct {
	Message string
	Code    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Fail wraps cause with a client facing message.
func Fail(message string, cause error) *Error {
	return &Error{Message: message, Err: cause}
}

// Unauthorized is the failure for a rejected session.
func Unauthorized() *Error {
	return &Error{Message: protocol.MsgInvalidSession, Code: protocol.CodeUnauthorized}
}
