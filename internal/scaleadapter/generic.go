package scaleadapter

// GenericWeight is the fallback adapter used when the classifier
// identifies a scale vendor this package has no dedicated driver for
// (Felicita, Skale, Eureka, DiFluid, Hiroia, Varia, SmartChef,
// Bookoo-as-scale). It assumes the Bluetooth SIG Weight Scale service
// and treats every notification on the measurement characteristic as
// a flags byte followed by a little-endian uint16 in 5 g units. Vendors that deviate from the SIG profile will need their
// own adapter; this keeps an unimplemented vendor usable rather than
// silently dropped.
type GenericWeight struct {
	vendor string
}

// NewGenericWeight constructs a fallback adapter for vendor.
func NewGenericWeight(vendor string) *GenericWeight {
	return &GenericWeight{vendor: vendor}
}

func (g *GenericWeight) Vendor() string { return g.vendor }

func (g *GenericWeight) PrimaryServiceUUID() string {
	return "0000181d-0000-1000-8000-00805f9b34fb" // Weight Scale service
}

func (g *GenericWeight) SubscriptionUUIDs() []string {
	return []string{"00002a9d-0000-1000-8000-00805f9b34fb"} // Weight Measurement
}

func (g *GenericWeight) TareCommand() (string, []byte) {
	// The SIG profile defines no tare write; callers relying on this
	// adapter must tare physically on the device.
	return "", nil
}

func (g *GenericWeight) ParseNotification(uuid string, data []byte) (Event, error) {
	if len(data) < 3 {
		return Event{}, ErrUnrecognizedFrame
	}
	// byte 0 is flags; bytes 1-2 are a uint16 in units of 5 g per the
	// SIG Weight Scale spec.
	raw := uint16(data[1]) | uint16(data[2])<<8
	return Event{Kind: EventWeight, WeightG: float64(raw) * 5.0}, nil
}
