package transport

import (
	"errors"
	"fmt"
	"strings"
)

// ConnState names the specific connection-failure kind a ConnError carries.
type ConnState string

const (
	NotConnected     ConnState = "not_connected"
	AlreadyConnected ConnState = "already_connected"
	BluetoothOff     ConnState = "bluetooth_off"
)

// ConnError represents a connection-lifecycle failure. Compare with
// errors.Is against the ErrXxx sentinels below; two ConnErrors are
// equal per Is if their State matches.
type ConnError struct {
	State ConnState
	Msg   string
}

func (e *ConnError) Error() string {
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

func (e *ConnError) Is(target error) bool {
	t, ok := target.(*ConnError)
	if !ok {
		return false
	}
	return e.State == t.State
}

var (
	ErrNotConnected     = &ConnError{State: NotConnected}
	ErrAlreadyConnected = &ConnError{State: AlreadyConnected}
	ErrBluetoothOff     = &ConnError{State: BluetoothOff}
	ErrTimeout          = errors.New("transport: timeout")
)

// NormalizeError maps known BLE-stack error strings onto the
// sentinel ConnErrors above so callers can use errors.Is regardless
// of which platform backend produced the error.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "bluetooth is turned off"), strings.Contains(msg, "is bluetooth turned on"):
		return fmt.Errorf("%w: %v", ErrBluetoothOff, err)
	case strings.Contains(msg, "not connected"), strings.Contains(msg, "disconnected"):
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	case strings.Contains(msg, "already connected"):
		return fmt.Errorf("%w: %v", ErrAlreadyConnected, err)
	default:
		return err
	}
}
