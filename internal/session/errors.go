package session

import "errors"

// ErrNotReady is returned by any command issued while a session is
// not in the Ready state.
var ErrNotReady = errors.New("session: not ready")

// ErrAlreadyActive is returned by connect() when the session is
// already Connecting, ServicesDiscovering, or Ready.
var ErrAlreadyActive = errors.New("session: already active")
