package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/de1bridge/internal/settingsstore"
	"github.com/srg/de1bridge/internal/transport"
)

type fakePeripheral struct {
	addr   string
	events chan transport.Event
}

func newFakePeripheral(addr string) *fakePeripheral {
	return &fakePeripheral{addr: addr, events: make(chan transport.Event, 16)}
}

func (f *fakePeripheral) Addr() string                               { return f.addr }
func (f *fakePeripheral) DiscoverServices(ctx context.Context) error { return nil }
func (f *fakePeripheral) Subscribe(ctx context.Context, uuid string) error { return nil }
func (f *fakePeripheral) Read(ctx context.Context, uuid string) ([]byte, error) {
	return nil, nil
}
func (f *fakePeripheral) Write(ctx context.Context, uuid string, data []byte) error { return nil }
func (f *fakePeripheral) Disconnect() error {
	close(f.events)
	return nil
}
func (f *fakePeripheral) Events() <-chan transport.Event { return f.events }

type fakeTransport struct {
	peripherals map[string]*fakePeripheral
	adsCh       chan transport.Advertisement
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{peripherals: map[string]*fakePeripheral{}}
}

func (f *fakeTransport) Scan(ctx context.Context, timeout time.Duration) (<-chan transport.Advertisement, error) {
	if f.adsCh == nil {
		f.adsCh = make(chan transport.Advertisement)
		close(f.adsCh)
	}
	return f.adsCh, nil
}

func (f *fakeTransport) Connect(ctx context.Context, addr string) (transport.Peripheral, error) {
	p, ok := f.peripherals[addr]
	if !ok {
		p = newFakePeripheral(addr)
		f.peripherals[addr] = p
	}
	return p, nil
}

func newTestStore(t *testing.T) *settingsstore.Store {
	t.Helper()
	s, err := settingsstore.Load("")
	require.NoError(t, err)
	return s
}

func waitUntil(t *testing.T, cond func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, cond())
}

func TestBridgeAutoConnectsDE1FromAdvertisement(t *testing.T) {
	tr := newFakeTransport()
	store := newTestStore(t)
	b := New(tr, store, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Run(ctx)

	b.OnAdvertisement(ctx, transport.Advertisement{Name: "DE1Pro AB", Addr: "de1:addr"})

	waitUntil(t, func() bool { return b.DE1() != nil }, time.Second)
	assert.Equal(t, "de1:addr", b.DE1().Address)
}

func TestBridgeDoesNotDoubleConnectDE1(t *testing.T) {
	tr := newFakeTransport()
	store := newTestStore(t)
	b := New(tr, store, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Run(ctx)

	b.OnAdvertisement(ctx, transport.Advertisement{Name: "DE1Pro AB", Addr: "de1:addr"})
	waitUntil(t, func() bool { return b.DE1() != nil }, time.Second)
	first := b.DE1()

	b.OnAdvertisement(ctx, transport.Advertisement{Name: "DE1Pro AB", Addr: "de1:addr"})
	assert.Same(t, first, b.DE1())
}

func TestBridgeAutoConnectsSensor(t *testing.T) {
	tr := newFakeTransport()
	store := newTestStore(t)
	b := New(tr, store, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Run(ctx)

	b.OnAdvertisement(ctx, transport.Advertisement{Name: "BOOKOO_EM_01", Addr: "sensor:addr"})
	waitUntil(t, func() bool { return len(b.Sensors()) == 1 }, time.Second)
}

func TestBridgeIgnoresScaleWithoutAutoConnectScale(t *testing.T) {
	tr := newFakeTransport()
	store := newTestStore(t)
	b := New(tr, store, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Run(ctx)

	b.OnAdvertisement(ctx, transport.Advertisement{Name: "Decent Scale AB", Addr: "scale:addr"})
	time.Sleep(50 * time.Millisecond)
	assert.Nil(t, b.Scale())
}

func TestBridgeConnectScaleRejectsWhenAlreadyReady(t *testing.T) {
	tr := newFakeTransport()
	store := newTestStore(t)
	b := New(tr, store, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Run(ctx)

	require.NoError(t, b.ConnectScale(ctx, "scale:addr", "Decent"))
	waitUntil(t, func() bool { return b.Scale() != nil && b.Scale().State().String() == "Ready" }, time.Second)

	err := b.ConnectScale(ctx, "scale:addr2", "Decent")
	assert.Error(t, err)
}

func TestBridgeDevicesSummary(t *testing.T) {
	tr := newFakeTransport()
	store := newTestStore(t)
	b := New(tr, store, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Run(ctx)

	require.NoError(t, b.ConnectScale(ctx, "scale:addr", "Decent"))
	waitUntil(t, func() bool { return len(b.Devices()) == 1 }, time.Second)
	assert.Equal(t, "Scale", b.Devices()[0].Type)
}

func TestBridgeTareScaleRequiresActiveScale(t *testing.T) {
	tr := newFakeTransport()
	store := newTestStore(t)
	b := New(tr, store, nil, nil)

	err := b.TareScale(context.Background())
	assert.Error(t, err)
}

func TestBridgeDiscoveredDevicesIncludesClassification(t *testing.T) {
	tr := newFakeTransport()
	store := newTestStore(t)
	b := New(tr, store, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Run(ctx)

	b.OnAdvertisement(ctx, transport.Advertisement{Name: "acaia Lunar", Addr: "acaia:addr"})
	waitUntil(t, func() bool { return len(b.DiscoveredDevices()) == 1 }, time.Second)
	d := b.DiscoveredDevices()[0]
	assert.Equal(t, "Scale", d.Type)
	assert.Equal(t, "Acaia", d.ScaleType)
}
