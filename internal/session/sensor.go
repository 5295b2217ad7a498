package session

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/de1bridge/internal/sensoradapter"
	"github.com/srg/de1bridge/internal/transport"
	"github.com/srg/de1bridge/pkg/events"
)

// sensorID derives a SensorSnapshot's id from its vendor type and
// address, per the "<type>_<address-without-colons>" convention.
func sensorID(vendor, addr string) string {
	return strings.ToLower(vendor) + "_" + strings.ReplaceAll(addr, ":", "")
}

// sensorHandler's snapshot.Channels map is mutated on the session's
// drain goroutine and read via Snapshot() from other goroutines; mu
// guards it the same way de1Handler and scaleHandler guard theirs.
type sensorHandler struct {
	logger   *logrus.Logger
	adapter  sensoradapter.Adapter
	mu       sync.RWMutex
	snapshot events.SensorSnapshot
}

func newSensorHandler(id string, adapter sensoradapter.Adapter, logger *logrus.Logger) *sensorHandler {
	return &sensorHandler{
		logger:   logger,
		adapter:  adapter,
		snapshot: events.SensorSnapshot{ID: id, Channels: map[string]float64{}},
	}
}

func (h *sensorHandler) ServiceUUID() string { return h.adapter.PrimaryServiceUUID() }

func (h *sensorHandler) NotifyCharacteristics() []string { return h.adapter.SubscriptionUUIDs() }

func (h *sensorHandler) InitialReadCharacteristics() []string { return nil }

func (h *sensorHandler) HandleNotification(uuid string, data []byte) (events.SessionEvent, bool) {
	channels, ok := h.adapter.ParseNotification(uuid, data)
	if !ok {
		return events.SessionEvent{}, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for k, v := range channels {
		h.snapshot.Channels[k] = v
	}
	h.snapshot.Timestamp = time.Now()

	snapshotCopy := events.SensorSnapshot{
		ID:        h.snapshot.ID,
		Channels:  make(map[string]float64, len(h.snapshot.Channels)),
		Timestamp: h.snapshot.Timestamp,
	}
	for k, v := range h.snapshot.Channels {
		snapshotCopy.Channels[k] = v
	}
	return events.SessionEvent{Kind: events.SessionSensorUpdated, Sensor: &snapshotCopy}, true
}

func (h *sensorHandler) HandleReadResult(uuid string, data []byte) (events.SessionEvent, bool) {
	return events.SessionEvent{}, false
}

// SensorSession is a Session specialized for a generic vendor sensor
// adapter (pressure pucks, auxiliary monitors, etc).
type SensorSession struct {
	*Session
	handler *sensorHandler
}

// NewSensorSession constructs a SensorSession for addr using adapter.
// Its SensorSnapshot.ID is derived from adapter.Vendor() and addr.
func NewSensorSession(addr string, adapter sensoradapter.Adapter, t transport.Transport, out chan events.SessionEvent, logger *logrus.Logger) *SensorSession {
	id := sensorID(adapter.Vendor(), addr)
	h := newSensorHandler(id, adapter, logger)
	return &SensorSession{
		Session: New(addr, events.RoleSensor, t, h, out, logger),
		handler: h,
	}
}

// ID returns this sensor's SensorSnapshot id. Immutable after
// construction, so no lock is needed to read it.
func (s *SensorSession) ID() string { return s.handler.snapshot.ID }

// Snapshot returns the handler's current accumulated SensorSnapshot.
// Channels is deep-copied under the lock: the field is a map, and a
// shallow struct copy would let the caller's json.Marshal race the
// drain goroutine's writes into the live map.
func (s *SensorSession) Snapshot() events.SensorSnapshot {
	s.handler.mu.RLock()
	defer s.handler.mu.RUnlock()
	snap := s.handler.snapshot
	snap.Channels = make(map[string]float64, len(s.handler.snapshot.Channels))
	for k, v := range s.handler.snapshot.Channels {
		snap.Channels[k] = v
	}
	return snap
}
