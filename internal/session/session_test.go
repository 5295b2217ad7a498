package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/de1bridge/internal/transport"
	"github.com/srg/de1bridge/pkg/events"
)

type fakePeripheral struct {
	addr       string
	events     chan transport.Event
	discoverErr error
	readData   map[string][]byte
	readErr    error
	subscribed []string
}

func newFakePeripheral(addr string) *fakePeripheral {
	return &fakePeripheral{
		addr:     addr,
		events:   make(chan transport.Event, 16),
		readData: map[string][]byte{},
	}
}

func (f *fakePeripheral) Addr() string { return f.addr }
func (f *fakePeripheral) DiscoverServices(ctx context.Context) error { return f.discoverErr }
func (f *fakePeripheral) Subscribe(ctx context.Context, uuid string) error {
	f.subscribed = append(f.subscribed, uuid)
	return nil
}
func (f *fakePeripheral) Read(ctx context.Context, uuid string) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.readData[uuid], nil
}
func (f *fakePeripheral) Write(ctx context.Context, uuid string, data []byte) error { return nil }
func (f *fakePeripheral) Disconnect() error {
	close(f.events)
	return nil
}
func (f *fakePeripheral) Events() <-chan transport.Event { return f.events }

type fakeTransport struct {
	peripheral *fakePeripheral
	connectErr error
}

func (f *fakeTransport) Scan(ctx context.Context, timeout time.Duration) (<-chan transport.Advertisement, error) {
	ch := make(chan transport.Advertisement)
	close(ch)
	return ch, nil
}
func (f *fakeTransport) Connect(ctx context.Context, addr string) (transport.Peripheral, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return f.peripheral, nil
}

type fakeHandler struct {
	notifyUUIDs []string
	readUUIDs   []string
}

func (h *fakeHandler) ServiceUUID() string                { return "svc" }
func (h *fakeHandler) NotifyCharacteristics() []string     { return h.notifyUUIDs }
func (h *fakeHandler) InitialReadCharacteristics() []string { return h.readUUIDs }
func (h *fakeHandler) HandleNotification(uuid string, data []byte) (events.SessionEvent, bool) {
	return events.SessionEvent{Kind: events.SessionMachineUpdated}, true
}
func (h *fakeHandler) HandleReadResult(uuid string, data []byte) (events.SessionEvent, bool) {
	return events.SessionEvent{Kind: events.SessionMachineUpdated}, true
}

func waitForState(t *testing.T, s *Session, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, want, s.State())
}

func TestSessionConnectReachesReady(t *testing.T) {
	p := newFakePeripheral("aa:bb")
	tr := &fakeTransport{peripheral: p}
	h := &fakeHandler{notifyUUIDs: []string{"notify-uuid"}}
	out := make(chan events.SessionEvent, 16)
	s := New("aa:bb", events.RoleDE1, tr, h, out, nil)

	require.Equal(t, Idle, s.State())
	require.NoError(t, s.Connect(context.Background()))
	waitForState(t, s, Ready, time.Second)
	assert.Equal(t, []string{"notify-uuid"}, p.subscribed)
}

func TestSessionConnectFailurePropagates(t *testing.T) {
	tr := &fakeTransport{connectErr: errors.New("boom")}
	h := &fakeHandler{}
	out := make(chan events.SessionEvent, 16)
	s := New("aa:bb", events.RoleScale, tr, h, out, nil)

	require.NoError(t, s.Connect(context.Background()))
	waitForState(t, s, Failed, time.Second)

	select {
	case ev := <-out:
		assert.Equal(t, events.SessionFailed, ev.Kind)
		assert.Error(t, ev.Err)
	default:
		t.Fatal("expected a SessionFailed event")
	}
}

func TestSessionConnectAlreadyActive(t *testing.T) {
	p := newFakePeripheral("aa:bb")
	tr := &fakeTransport{peripheral: p}
	h := &fakeHandler{}
	out := make(chan events.SessionEvent, 16)
	s := New("aa:bb", events.RoleDE1, tr, h, out, nil)

	require.NoError(t, s.Connect(context.Background()))
	waitForState(t, s, Ready, time.Second)
	assert.ErrorIs(t, s.Connect(context.Background()), ErrAlreadyActive)
}

func TestSessionWriteBeforeReadyIsRejected(t *testing.T) {
	tr := &fakeTransport{peripheral: newFakePeripheral("aa:bb")}
	h := &fakeHandler{}
	out := make(chan events.SessionEvent, 16)
	s := New("aa:bb", events.RoleDE1, tr, h, out, nil)

	_, err := s.Read(context.Background(), "uuid")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestSessionNotificationEmitsEvent(t *testing.T) {
	p := newFakePeripheral("aa:bb")
	tr := &fakeTransport{peripheral: p}
	h := &fakeHandler{}
	out := make(chan events.SessionEvent, 16)
	s := New("aa:bb", events.RoleDE1, tr, h, out, nil)

	require.NoError(t, s.Connect(context.Background()))
	waitForState(t, s, Ready, time.Second)

	// Drain the StateChanged event emitted on reaching Ready.
	<-out

	p.events <- transport.Event{Kind: transport.EventNotification, UUID: "x", Data: []byte{1}}
	select {
	case ev := <-out:
		assert.Equal(t, events.SessionMachineUpdated, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a notification-derived event")
	}
}

func TestSessionDisconnectTransitionsState(t *testing.T) {
	p := newFakePeripheral("aa:bb")
	tr := &fakeTransport{peripheral: p}
	h := &fakeHandler{}
	out := make(chan events.SessionEvent, 16)
	s := New("aa:bb", events.RoleDE1, tr, h, out, nil)

	require.NoError(t, s.Connect(context.Background()))
	waitForState(t, s, Ready, time.Second)

	s.Disconnect()
	waitForState(t, s, Disconnected, time.Second)
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, Disconnected.Terminal())
	assert.True(t, Failed.Terminal())
	assert.False(t, Ready.Terminal())
}
