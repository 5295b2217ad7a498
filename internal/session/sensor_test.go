package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/de1bridge/internal/sensoradapter"
	"github.com/srg/de1bridge/pkg/events"
)

func TestSensorIDFormat(t *testing.T) {
	assert.Equal(t, "bookoomonitor_aabbccddeeff", sensorID("BookooMonitor", "aa:bb:cc:dd:ee:ff"))
}

func TestSensorHandlerAccumulatesChannels(t *testing.T) {
	adapter := sensoradapter.NewBookooMonitor()
	h := newSensorHandler("bookoomonitor_aabb", adapter, newTestLogger())

	ev, ok := h.HandleNotification("0000ffe1-0000-1000-8000-00805f9b34fb", []byte{0x00, 0x5A})
	require.True(t, ok)
	assert.Equal(t, 9.0, ev.Sensor.Channels["pressure"])
	assert.Equal(t, "bookoomonitor_aabb", ev.Sensor.ID)
}

func TestSensorSessionConnectsAndSubscribes(t *testing.T) {
	p := newFakePeripheral("aa:bb:cc:dd:ee:ff")
	tr := &fakeTransport{peripheral: p}
	adapter := sensoradapter.NewBookooMonitor()
	out := make(chan events.SessionEvent, 16)
	s := NewSensorSession("aa:bb:cc:dd:ee:ff", adapter, tr, out, newTestLogger())

	require.Equal(t, "bookoomonitor_aabbccddeeff", s.ID())
	require.NoError(t, s.Connect(context.Background()))
	waitForState(t, s.Session, Ready, time.Second)
	assert.Equal(t, []string{"0000ffe1-0000-1000-8000-00805f9b34fb"}, p.subscribed)
}
