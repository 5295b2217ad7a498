package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/de1bridge/internal/scaleadapter"
	"github.com/srg/de1bridge/pkg/events"
)

type fakeScaleAdapter struct {
	vendor      string
	nextEvent   scaleadapter.Event
	nextErr     error
	tareUUID    string
	tarePayload []byte
	tareCalls   int
}

func (a *fakeScaleAdapter) Vendor() string { return a.vendor }
func (a *fakeScaleAdapter) ParseNotification(uuid string, data []byte) (scaleadapter.Event, error) {
	return a.nextEvent, a.nextErr
}
func (a *fakeScaleAdapter) TareCommand() (string, []byte) { return a.tareUUID, a.tarePayload }
func (a *fakeScaleAdapter) PrimaryServiceUUID() string    { return "svc" }
func (a *fakeScaleAdapter) SubscriptionUUIDs() []string   { return []string{"weight-uuid"} }

func TestScaleHandlerWeightEventDerivesFlow(t *testing.T) {
	a := &fakeScaleAdapter{vendor: "Test"}
	h := newScaleHandler(a, 1.0, newTestLogger())

	a.nextEvent = scaleadapter.Event{Kind: scaleadapter.EventWeight, WeightG: 10.0}
	ev, ok := h.HandleNotification("weight-uuid", nil)
	require.True(t, ok)
	assert.Equal(t, 10.0, ev.Scale.WeightG)
}

func TestScaleHandlerBatteryEventUpdatesPointerButNoEmit(t *testing.T) {
	a := &fakeScaleAdapter{vendor: "Test", nextEvent: scaleadapter.Event{Kind: scaleadapter.EventBattery, BatteryPC: 77}}
	h := newScaleHandler(a, 1.0, newTestLogger())

	_, ok := h.HandleNotification("weight-uuid", nil)
	assert.False(t, ok)
	require.NotNil(t, h.snapshot.BatteryPct)
	assert.Equal(t, uint8(77), *h.snapshot.BatteryPct)
}

func TestScaleHandlerUnrecognizedFrameIsSwallowed(t *testing.T) {
	a := &fakeScaleAdapter{vendor: "Test", nextErr: scaleadapter.ErrUnrecognizedFrame}
	h := newScaleHandler(a, 1.0, newTestLogger())

	_, ok := h.HandleNotification("weight-uuid", nil)
	assert.False(t, ok)
}

func TestScaleSessionTareNoopWhenAdapterHasNoTareCommand(t *testing.T) {
	p := newFakePeripheral("scale-addr")
	tr := &fakeTransport{peripheral: p}
	a := &fakeScaleAdapter{vendor: "Generic"}
	out := make(chan events.SessionEvent, 16)
	s := NewScaleSession("scale-addr", a, 1.0, tr, out, newTestLogger())

	require.NoError(t, s.Connect(context.Background()))
	waitForState(t, s.Session, Ready, time.Second)

	assert.NoError(t, s.Tare(context.Background()))
}

func TestScaleSessionTareRequiresReady(t *testing.T) {
	tr := &fakeTransport{peripheral: newFakePeripheral("scale-addr")}
	a := &fakeScaleAdapter{vendor: "Decent", tareUUID: "tare-uuid", tarePayload: []byte{1}}
	out := make(chan events.SessionEvent, 16)
	s := NewScaleSession("scale-addr", a, 1.0, tr, out, newTestLogger())

	assert.ErrorIs(t, s.Tare(context.Background()), ErrNotReady)
}
