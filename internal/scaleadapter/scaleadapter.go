// Package scaleadapter defines the vendor-agnostic scale capability
// contract and the built-in adapters the bridge ships. Each vendor's
// wire format lives in its own file; the bridge core only ever talks
// to the Adapter interface.
package scaleadapter

import "fmt"

// EventKind distinguishes the payload carried by an Event.
type EventKind int

const (
	EventNone EventKind = iota
	EventWeight
	EventFlowHint
	EventBattery
	EventButton
)

// Event is the decoded result of a single scale notification. Only
// the field matching Kind is meaningful.
type Event struct {
	Kind      EventKind
	WeightG   float64
	StableT   bool // stability flag attached to a weight sample, when the vendor reports one
	FlowGPS   float64
	BatteryPC uint8
	ButtonID  string
}

// Adapter is the capability set every vendor-specific scale driver
// implements. The core never branches on vendor; it only calls these
// methods.
type Adapter interface {
	// Vendor is the human-readable vendor name, matching what the
	// classifier returns.
	Vendor() string
	// ParseNotification decodes one BLE notification arriving on uuid
	// into an Event. Bytes the adapter cannot parse return
	// ErrUnrecognizedFrame; a frame it understands but has nothing to
	// report returns Event{Kind: EventNone}.
	ParseNotification(uuid string, data []byte) (Event, error)
	// TareCommand returns the (characteristic uuid, payload) pair to
	// write in order to zero the scale.
	TareCommand() (string, []byte)
	// PrimaryServiceUUID is the GATT service this adapter expects.
	PrimaryServiceUUID() string
	// SubscriptionUUIDs are the characteristics the session must
	// subscribe to once connected.
	SubscriptionUUIDs() []string
}

// ErrUnrecognizedFrame is returned by an adapter that was handed bytes
// it cannot make sense of, as distinct from simply returning EventNone
// for a frame it understands but has nothing to report.
var ErrUnrecognizedFrame = fmt.Errorf("scaleadapter: unrecognized frame")

// registry maps a classifier vendor string to a constructor. Vendors
// without a wire-format implementation in this package fall back to
// the generic weight-only adapter at the bridge's call site.
var registry = map[string]func() Adapter{
	"Decent": func() Adapter { return NewDecentScale() },
	"Acaia":  func() Adapter { return NewAcaiaScale() },
}

// ForVendor returns the built-in adapter for vendor, or ok=false if
// this package ships no dedicated driver for it.
func ForVendor(vendor string) (Adapter, bool) {
	ctor, ok := registry[vendor]
	if !ok {
		return nil, false
	}
	return ctor(), true
}
