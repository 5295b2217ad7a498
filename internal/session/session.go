// Package session implements the per-device connection state machine
// every DE1, scale, and sensor link runs through: Idle → Connecting →
// ServicesDiscovering → Ready, with Disconnected/Failed as terminal
// states. Exactly one goroutine per session mutates its state and
// snapshot; everything else only reads through Snapshot()/State().
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/de1bridge/internal/groutine"
	"github.com/srg/de1bridge/internal/transport"
	"github.com/srg/de1bridge/pkg/events"
)

// ConnectTimeout bounds how long a connect attempt may take before
// the session is force-failed.
const ConnectTimeout = 15 * time.Second

// Handler decodes one role's wire format on top of the generic state
// machine. DE1Session, ScaleSession, and SensorSession each supply one.
type Handler interface {
	ServiceUUID() string
	NotifyCharacteristics() []string
	InitialReadCharacteristics() []string
	HandleNotification(uuid string, data []byte) (events.SessionEvent, bool)
	HandleReadResult(uuid string, data []byte) (events.SessionEvent, bool)
}

// Session is the generic per-device state machine. Role-specific
// types embed it and add typed command methods that call Write/Read
// guarded by the Ready check.
type Session struct {
	Address string
	Role    events.Role

	transport transport.Transport
	handler   Handler
	logger    *logrus.Logger

	mu         sync.RWMutex
	state      State
	peripheral transport.Peripheral

	out chan events.SessionEvent

	cancel context.CancelFunc
}

// New constructs a Session in the Idle state. out is the channel the
// Bridge drains session events from; it must be read continuously or
// sessions will stall emitting to it.
func New(address string, role events.Role, t transport.Transport, h Handler, out chan events.SessionEvent, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	return &Session{
		Address:   address,
		Role:      role,
		transport: t,
		handler:   h,
		logger:    logger,
		state:     Idle,
		out:       out,
	}
}

// State returns the session's current state. Safe for concurrent use.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) emit(ev events.SessionEvent) {
	ev.Address = s.Address
	ev.Role = s.Role
	ev.At = time.Now()
	select {
	case s.out <- ev:
	default:
		s.logger.WithField("address", s.Address).Warn("session event dropped, bridge not draining fast enough")
	}
}

// Connect dials the device and drives the state machine through to
// Ready (or Failed) in a dedicated goroutine. Returns ErrAlreadyActive
// if a connect is already in flight or the session is already Ready.
func (s *Session) Connect(parentCtx context.Context) error {
	s.mu.Lock()
	if s.state == Connecting || s.state == ServicesDiscovering || s.state == Ready {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.state = Connecting
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel
	s.mu.Unlock()

	groutine.Go(context.Background(), "session-"+s.Address, func(_ context.Context) {
		s.run(ctx)
	})
	return nil
}

func (s *Session) run(parentCtx context.Context) {
	connectCtx, cancelConnect := context.WithTimeout(parentCtx, ConnectTimeout)
	defer cancelConnect()

	p, err := s.transport.Connect(connectCtx, s.Address)
	if err != nil {
		s.fail(err)
		return
	}
	s.mu.Lock()
	s.peripheral = p
	s.state = ServicesDiscovering
	s.mu.Unlock()

	if err := p.DiscoverServices(connectCtx); err != nil {
		s.fail(err)
		return
	}

	for _, uuid := range s.handler.NotifyCharacteristics() {
		if err := p.Subscribe(connectCtx, uuid); err != nil {
			s.fail(err)
			return
		}
	}
	for _, uuid := range s.handler.InitialReadCharacteristics() {
		data, err := p.Read(connectCtx, uuid)
		if err != nil {
			// A failed best-effort initial read does not abort bring-up;
			// the characteristic's notify subscription will catch up.
			s.logger.WithFields(logrus.Fields{"address": s.Address, "uuid": uuid}).Debug("initial read failed")
			continue
		}
		if sev, ok := s.handler.HandleReadResult(uuid, data); ok {
			s.emit(sev)
		}
	}

	s.setState(Ready)
	s.emit(events.SessionEvent{Kind: events.SessionStateChanged})

	s.drain(parentCtx, p)
}

func (s *Session) drain(ctx context.Context, p transport.Peripheral) {
	for {
		select {
		case <-ctx.Done():
			s.teardown(p)
			return
		case ev, ok := <-p.Events():
			if !ok {
				s.setState(Disconnected)
				s.emit(events.SessionEvent{Kind: events.SessionDisconnected})
				return
			}
			switch ev.Kind {
			case transport.EventNotification:
				if sev, ok := s.handler.HandleNotification(ev.UUID, ev.Data); ok {
					s.emit(sev)
				}
			case transport.EventReadResult:
				if sev, ok := s.handler.HandleReadResult(ev.UUID, ev.Data); ok {
					s.emit(sev)
				}
			case transport.EventDisconnected:
				s.setState(Disconnected)
				s.emit(events.SessionEvent{Kind: events.SessionDisconnected})
				return
			case transport.EventError:
				s.fail(ev.Err)
				return
			}
		}
	}
}

func (s *Session) fail(err error) {
	s.setState(Failed)
	s.emit(events.SessionEvent{Kind: events.SessionFailed, Err: err})
}

func (s *Session) teardown(p transport.Peripheral) {
	if p != nil {
		_ = p.Disconnect()
	}
	s.setState(Disconnected)
	s.emit(events.SessionEvent{Kind: events.SessionDisconnected})
}

// Disconnect tears down the BLE link. Safe to call from any state; if
// never connected it only sets the state to Disconnected. Cancelling the
// run goroutine's context is
// enough to drive it through teardown(), which closes the peripheral;
// calling peripheral.Disconnect() here too would double-close it.
func (s *Session) Disconnect() {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
		return
	}
	s.setState(Disconnected)
}

// Write issues a characteristic write, failing with ErrNotReady
// unless the session is currently Ready.
func (s *Session) Write(ctx context.Context, uuid string, data []byte) error {
	s.mu.RLock()
	if s.state != Ready {
		s.mu.RUnlock()
		return ErrNotReady
	}
	p := s.peripheral
	s.mu.RUnlock()
	return p.Write(ctx, uuid, data)
}

// Read issues a characteristic read, failing with ErrNotReady unless
// the session is currently Ready.
func (s *Session) Read(ctx context.Context, uuid string) ([]byte, error) {
	s.mu.RLock()
	if s.state != Ready {
		s.mu.RUnlock()
		return nil, ErrNotReady
	}
	p := s.peripheral
	s.mu.RUnlock()
	return p.Read(ctx, uuid)
}
