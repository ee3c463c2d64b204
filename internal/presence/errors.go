package presence

import "errors"

// Failure classes. None of these crosses the Connection boundary; they are
// logged and their text lands in the Store's error field.
var (
	ErrHandshakeTimeout = errors.New("presence: handshake timed out")
	ErrTransport        = errors.New("presence: connection failed")
	ErrAbnormalClosure  = errors.New("presence: connection closed abnormally")
	ErrMalformedMessage = errors.New("presence: malformed message")
	ErrConfiguration    = errors.New("presence: subscriber id not configured")
)
