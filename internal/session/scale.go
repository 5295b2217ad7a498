package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/de1bridge/internal/scaleadapter"
	"github.com/srg/de1bridge/internal/scaleflow"
	"github.com/srg/de1bridge/internal/transport"
	"github.com/srg/de1bridge/pkg/events"
)

// scaleHandler translates one vendor's ParseNotification output into
// ScaleSnapshot deltas, deriving flow for adapters that only report
// weight. HandleNotification runs on the session's drain goroutine;
// Snapshot and Tare's estimator Reset are called from other
// goroutines (bridge/httpapi), so mu guards both snapshot and
// estimator since scaleflow.Estimator is not safe for concurrent use.
type scaleHandler struct {
	logger    *logrus.Logger
	adapter   scaleadapter.Adapter
	mu        sync.Mutex
	estimator *scaleflow.Estimator
	snapshot  events.ScaleSnapshot
}

func newScaleHandler(adapter scaleadapter.Adapter, flowMultiplier float64, logger *logrus.Logger) *scaleHandler {
	return &scaleHandler{
		logger:    logger,
		adapter:   adapter,
		estimator: scaleflow.NewEstimator(flowMultiplier),
	}
}

func (h *scaleHandler) ServiceUUID() string { return h.adapter.PrimaryServiceUUID() }

func (h *scaleHandler) NotifyCharacteristics() []string { return h.adapter.SubscriptionUUIDs() }

func (h *scaleHandler) InitialReadCharacteristics() []string { return nil }

func (h *scaleHandler) HandleNotification(uuid string, data []byte) (events.SessionEvent, bool) {
	ev, err := h.adapter.ParseNotification(uuid, data)
	if err != nil {
		h.logger.WithError(err).Debug("scale notification decode failed")
		return events.SessionEvent{}, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	switch ev.Kind {
	case scaleadapter.EventWeight:
		h.snapshot.WeightG = ev.WeightG
		if ev.FlowGPS != 0 {
			h.snapshot.FlowGPS = ev.FlowGPS
		} else {
			h.snapshot.FlowGPS = h.estimator.Sample(ev.WeightG, now)
		}
	case scaleadapter.EventFlowHint:
		h.snapshot.FlowGPS = ev.FlowGPS
	case scaleadapter.EventBattery:
		pct := ev.BatteryPC
		h.snapshot.BatteryPct = &pct
		return events.SessionEvent{}, false
	case scaleadapter.EventButton:
		// Button presses are not reflected in the cached snapshot; the
		// bridge may still want the raw event in a future extension.
		return events.SessionEvent{}, false
	default:
		return events.SessionEvent{}, false
	}

	h.snapshot.Timestamp = now
	snapshot := h.snapshot
	return events.SessionEvent{Kind: events.SessionScaleUpdated, Scale: &snapshot}, true
}

func (h *scaleHandler) HandleReadResult(uuid string, data []byte) (events.SessionEvent, bool) {
	return events.SessionEvent{}, false
}

// ScaleSession is a Session specialized for a vendor scale adapter.
type ScaleSession struct {
	*Session
	handler *scaleHandler
}

// NewScaleSession constructs a ScaleSession for addr using adapter.
// flowMultiplier is the configured weight_flow_multiplier correction
// applied to the derived flow estimate.
func NewScaleSession(addr string, adapter scaleadapter.Adapter, flowMultiplier float64, t transport.Transport, out chan events.SessionEvent, logger *logrus.Logger) *ScaleSession {
	h := newScaleHandler(adapter, flowMultiplier, logger)
	return &ScaleSession{
		Session: New(addr, events.RoleScale, t, h, out, logger),
		handler: h,
	}
}

// Tare issues the adapter's tare command. Adapters with no tare write
// (e.g. the generic SIG fallback) return a no-op success.
func (s *ScaleSession) Tare(ctx context.Context) error {
	uuid, payload := s.handler.adapter.TareCommand()
	if uuid == "" {
		return nil
	}
	if err := s.Write(ctx, uuid, payload); err != nil {
		return err
	}
	s.handler.mu.Lock()
	s.handler.estimator.Reset()
	s.handler.mu.Unlock()
	return nil
}

// Snapshot returns the handler's current accumulated ScaleSnapshot.
func (s *ScaleSession) Snapshot() events.ScaleSnapshot {
	s.handler.mu.Lock()
	defer s.handler.mu.Unlock()
	return s.handler.snapshot
}

// WeightHistory drains the estimator's raw weight-sample diagnostic
// log since the last call, oldest first.
func (s *ScaleSession) WeightHistory() []scaleflow.WeightSample {
	s.handler.mu.Lock()
	defer s.handler.mu.Unlock()
	return s.handler.estimator.DrainHistory()
}
