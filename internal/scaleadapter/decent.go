package scaleadapter

// DecentScale speaks the single custom GATT service the Decent Scale
// exposes: one write characteristic for commands, one notify
// characteristic for weight frames. Weight frames are 7 bytes:
// [0]=0x03 [1]=flags [2:4]=weight int16 BE, 0.1 g units [4]=unit
// [5:7]=xor checksum pair.
type DecentScale struct{}

// NewDecentScale constructs a Decent Scale adapter.
func NewDecentScale() *DecentScale { return &DecentScale{} }

func (d *DecentScale) Vendor() string { return "Decent" }

func (d *DecentScale) PrimaryServiceUUID() string {
	return "0000fff0-0000-1000-8000-00805f9b34fb"
}

func (d *DecentScale) SubscriptionUUIDs() []string {
	return []string{"0000fff4-0000-1000-8000-00805f9b34fb"}
}

const decentCmdUUID = "0000fff2-0000-1000-8000-00805f9b34fb"

func (d *DecentScale) TareCommand() (string, []byte) {
	return decentCmdUUID, decentFrame(0x0F, [5]byte{})
}

func (d *DecentScale) ParseNotification(uuid string, data []byte) (Event, error) {
	if len(data) < 7 {
		return Event{}, ErrUnrecognizedFrame
	}
	if data[0] != 0x03 {
		return Event{Kind: EventNone}, nil
	}
	flags := data[1]
	raw := int16(uint16(data[2])<<8 | uint16(data[3]))
	weight := float64(raw) / 10.0
	stable := flags&0x01 != 0

	if flags&0x04 != 0 {
		// button press event rides on the same channel.
		id := "tare"
		if flags&0x08 != 0 {
			id = "unit"
		}
		return Event{Kind: EventButton, ButtonID: id}, nil
	}

	return Event{Kind: EventWeight, WeightG: weight, StableT: stable}, nil
}

// decentFrame builds the 7-byte command frame: [0x03][cmd][5 arg bytes][xor checksum].
func decentFrame(cmd byte, args [5]byte) []byte {
	frame := make([]byte, 7)
	frame[0] = 0x03
	frame[1] = cmd
	copy(frame[2:], args[:])
	frame[6] = xorChecksum(frame[:6])
	return frame
}

func xorChecksum(b []byte) byte {
	var c byte
	for _, v := range b {
		c ^= v
	}
	return c
}
