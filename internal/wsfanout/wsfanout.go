// Package wsfanout maintains the per-channel WebSocket subscriber
// registry and broadcasts JSON payloads to it. Delivery is best
// effort: a subscriber that falls behind or whose connection has
// died is dropped without blocking broadcast to the rest.
package wsfanout

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// writeTimeout bounds how long a subscriber's own writer goroutine may
// block on a single network write before that subscriber is dropped.
// This never blocks Broadcast itself, since delivery to the writer
// goroutine is a non-blocking channel send.
const writeTimeout = 2 * time.Second

// outboxSize is how many unsent payloads a subscriber may queue
// before Broadcast considers it too slow and drops it.
const outboxSize = 8

// immediateSnapshotChannels mirrors the channel names the Bridge
// broadcasts machine/scale snapshots on; a new subscriber to one of
// these receives the last known payload immediately, per spec.
var immediateSnapshotChannels = map[string]bool{
	"machine/snapshot": true,
	"scale/snapshot":   true,
}

// subscriber owns a dedicated writer goroutine draining outbox, so a
// slow or dead connection never makes Broadcast itself block: sending
// into outbox is a non-blocking select, and a full outbox marks the
// subscriber dead immediately rather than waiting on the network.
type subscriber struct {
	id     uint64
	conn   *websocket.Conn
	outbox chan []byte
	dead   atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

func newSubscriber(id uint64, conn *websocket.Conn) *subscriber {
	s := &subscriber{
		id:     id,
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		done:   make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

func (s *subscriber) writeLoop() {
	for {
		select {
		case data, ok := <-s.outbox:
			if !ok {
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.dead.Store(true)
				return
			}
		case <-s.done:
			return
		}
	}
}

// enqueue offers data to the subscriber's outbox without blocking.
// Returns false if the subscriber is dead or already backed up,
// meaning the caller should drop it.
func (s *subscriber) enqueue(data []byte) bool {
	if s.dead.Load() {
		return false
	}
	select {
	case s.outbox <- data:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Subscription is the handle returned by Subscribe; call Close to
// unregister the subscriber from its channel.
type Subscription struct {
	fanout  *Fanout
	channel string
	id      uint64
}

// Close unsubscribes the peer and stops its writer goroutine. Safe to
// call more than once.
func (s *Subscription) Close() {
	subs := s.fanout.channelMap(s.channel)
	if sub, ok := subs.Get(s.id); ok {
		sub.close()
	}
	subs.Del(s.id)
}

// Fanout is the channel-keyed subscriber registry.
type Fanout struct {
	logger *logrus.Logger

	mu       sync.RWMutex
	channels map[string]*hashmap.Map[uint64, *subscriber]

	snapshotsMu sync.RWMutex
	snapshots   map[string][]byte

	nextID uint64
}

// New constructs an empty Fanout.
func New(logger *logrus.Logger) *Fanout {
	if logger == nil {
		logger = logrus.New()
	}
	return &Fanout{
		logger:    logger,
		channels:  map[string]*hashmap.Map[uint64, *subscriber]{},
		snapshots: map[string][]byte{},
	}
}

func (f *Fanout) channelMap(channel string) *hashmap.Map[uint64, *subscriber] {
	f.mu.RLock()
	m, ok := f.channels[channel]
	f.mu.RUnlock()
	if ok {
		return m
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.channels[channel]; ok {
		return m
	}
	m = hashmap.New[uint64, *subscriber]()
	f.channels[channel] = m
	return m
}

// Subscribe registers conn against channel. If channel carries a
// cached snapshot (machine/scale), it is sent immediately.
func (f *Fanout) Subscribe(channel string, conn *websocket.Conn) *Subscription {
	id := atomic.AddUint64(&f.nextID, 1)
	sub := newSubscriber(id, conn)
	f.channelMap(channel).Set(id, sub)

	if immediateSnapshotChannels[channel] {
		f.snapshotsMu.RLock()
		last, ok := f.snapshots[channel]
		f.snapshotsMu.RUnlock()
		if ok && !sub.enqueue(last) {
			f.logger.WithField("channel", channel).Debug("initial snapshot enqueue failed")
		}
	}

	return &Subscription{fanout: f, channel: channel, id: id}
}

// Broadcast marshals payload to JSON and hands it to every
// subscriber's own writer goroutine without blocking: each enqueue is
// a non-blocking channel send, so one slow or dead subscriber never
// delays delivery to the rest. A subscriber whose outbox is full or
// whose writer goroutine has already seen a write error is dropped
// and its connection closed.
func (f *Fanout) Broadcast(channel string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		f.logger.WithError(err).WithField("channel", channel).Warn("broadcast payload marshal failed")
		return
	}

	f.snapshotsMu.Lock()
	f.snapshots[channel] = data
	f.snapshotsMu.Unlock()

	subs := f.channelMap(channel)
	var dead []uint64
	subs.Range(func(id uint64, sub *subscriber) bool {
		if !sub.enqueue(data) {
			dead = append(dead, id)
		}
		return true
	})
	for _, id := range dead {
		if sub, ok := subs.Get(id); ok {
			sub.close()
		}
		subs.Del(id)
	}
}

// SubscriberCount returns how many peers are registered on channel,
// for diagnostics.
func (f *Fanout) SubscriberCount(channel string) int {
	return int(f.channelMap(channel).Len())
}
