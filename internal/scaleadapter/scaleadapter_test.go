package scaleadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForVendorKnown(t *testing.T) {
	a, ok := ForVendor("Decent")
	require.True(t, ok)
	assert.Equal(t, "Decent", a.Vendor())

	a, ok = ForVendor("Acaia")
	require.True(t, ok)
	assert.Equal(t, "Acaia", a.Vendor())
}

func TestForVendorUnknown(t *testing.T) {
	_, ok := ForVendor("Felicita")
	assert.False(t, ok)
}

func TestGenericWeightFallbackUsable(t *testing.T) {
	a := NewGenericWeight("Felicita")
	assert.Equal(t, "Felicita", a.Vendor())
	ev, err := a.ParseNotification(a.SubscriptionUUIDs()[0], []byte{0x00, 0x64, 0x00})
	require.NoError(t, err)
	assert.Equal(t, EventWeight, ev.Kind)
	assert.InDelta(t, 500.0, ev.WeightG, 1e-9)
}

func TestDecentScaleWeightFrame(t *testing.T) {
	d := NewDecentScale()
	// 123.4 g => raw = 1234 = 0x04D2
	frame := []byte{0x03, 0x01, 0x04, 0xD2, 0x00, 0x00, 0x00}
	ev, err := d.ParseNotification(d.SubscriptionUUIDs()[0], frame)
	require.NoError(t, err)
	assert.Equal(t, EventWeight, ev.Kind)
	assert.InDelta(t, 123.4, ev.WeightG, 1e-9)
	assert.True(t, ev.StableT)
}

func TestDecentScaleButtonFrame(t *testing.T) {
	d := NewDecentScale()
	frame := []byte{0x03, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00}
	ev, err := d.ParseNotification(d.SubscriptionUUIDs()[0], frame)
	require.NoError(t, err)
	assert.Equal(t, EventButton, ev.Kind)
	assert.Equal(t, "tare", ev.ButtonID)
}

func TestDecentScaleTareCommandShape(t *testing.T) {
	d := NewDecentScale()
	uuid, payload := d.TareCommand()
	assert.Equal(t, decentCmdUUID, uuid)
	require.Len(t, payload, 7)
	assert.Equal(t, byte(0x03), payload[0])
	assert.Equal(t, byte(0x0F), payload[1])
}

func TestAcaiaWeightFrame(t *testing.T) {
	a := NewAcaiaScale()
	// command 12, msgType 5 (weight), raw=1000 (LE), unit=2 (divisor 100) -> 10.00 g, positive sign
	payload := []byte{0xE8, 0x03, 0x00, 0x00, 0x02, 0x00}
	frame := []byte{0xEF, 0xDD, 12, byte(len(payload) + 2), 5}
	frame = append(frame, payload...)
	frame = append(frame, 0x00, 0x00) // checksum bytes, unchecked by the decoder

	ev, err := a.ParseNotification(a.SubscriptionUUIDs()[0], frame)
	require.NoError(t, err)
	assert.Equal(t, EventWeight, ev.Kind)
	assert.InDelta(t, 10.0, ev.WeightG, 1e-9)
}

func TestAcaiaUnrecognizedFrame(t *testing.T) {
	a := NewAcaiaScale()
	_, err := a.ParseNotification("uuid", []byte{0x00, 0x01})
	assert.ErrorIs(t, err, ErrUnrecognizedFrame)
}
