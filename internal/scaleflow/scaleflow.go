// Package scaleflow derives a flow rate from a stream of weight
// samples for scales that only report weight. It mirrors the signal
// the DE1's own flow sensor would emit so the bridge can treat
// weight-only and flow-capable scales identically downstream.
package scaleflow

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/smallnest/ringbuffer"
)

// timeConstant is the exponential weighting time constant; ≈ 250 ms
// balances responsiveness against the jitter typical of consumer
// scale BLE notification rates (5-10 Hz).
const timeConstant = 250 * time.Millisecond

// historyCapacity bounds the raw-sample diagnostic log in bytes; each
// sample is encoded as 16 bytes (UnixNano timestamp + weight), so this
// holds roughly the last 100 samples.
const historyCapacity = 1600

// Estimator derives flow_g_s from successive weight samples using an
// exponentially weighted derivative. It is not safe for concurrent
// use; the owning session serializes calls.
type Estimator struct {
	multiplier float64
	haveLast   bool
	lastWeight float64
	lastAt     time.Time
	flow       float64
	history    *ringbuffer.RingBuffer
}

// NewEstimator builds an Estimator. multiplier scales the derived
// flow (settings.weight_flow_multiplier); pass 1.0 for no correction.
func NewEstimator(multiplier float64) *Estimator {
	if multiplier == 0 {
		multiplier = 1.0
	}
	return &Estimator{
		multiplier: multiplier,
		history:    ringbuffer.New(historyCapacity),
	}
}

// Sample feeds a new weight reading (grams) observed at "at" and
// returns the current flow estimate in g/s.
func (e *Estimator) Sample(weightG float64, at time.Time) float64 {
	e.recordHistory(weightG, at)

	if !e.haveLast {
		e.haveLast = true
		e.lastWeight = weightG
		e.lastAt = at
		return e.flow * e.multiplier
	}

	dt := at.Sub(e.lastAt)
	if dt <= 0 {
		return e.flow * e.multiplier
	}
	instant := (weightG - e.lastWeight) / dt.Seconds()

	alpha := 1 - math.Exp(-dt.Seconds()/timeConstant.Seconds())
	e.flow += alpha * (instant - e.flow)

	e.lastWeight = weightG
	e.lastAt = at
	return e.flow * e.multiplier
}

// Reset zeroes the estimator's state. Called after a tare, since the
// weight discontinuity a tare introduces is not a real flow event.
func (e *Estimator) Reset() {
	e.haveLast = false
	e.lastWeight = 0
	e.flow = 0
}

// FlowGPS returns the most recently computed flow estimate without
// consuming a new sample.
func (e *Estimator) FlowGPS() float64 {
	return e.flow * e.multiplier
}

func (e *Estimator) recordHistory(weightG float64, at time.Time) {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(at.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(weightG))
	// Best-effort diagnostic log; under WithBlocking(false) (the
	// default) a full ring rejects the write with ErrIsFull and keeps
	// the oldest bytes, so once full we silently drop the newest
	// samples until DrainHistory frees space. Fine for a diagnostic.
	_, _ = e.history.Write(buf)
}

// DrainHistory reads and decodes every (timestamp, weight) pair
// pushed to the diagnostic ring since the last call, oldest first.
// Intended for a low-frequency diagnostics poller, not the hot path.
func (e *Estimator) DrainHistory() []WeightSample {
	avail := e.history.Length()
	count := avail / 16
	if count == 0 {
		return nil
	}
	buf := make([]byte, count*16)
	n, _ := e.history.Read(buf)
	buf = buf[:n-(n%16)]

	samples := make([]WeightSample, 0, len(buf)/16)
	for i := 0; i+16 <= len(buf); i += 16 {
		chunk := buf[i : i+16]
		ts := int64(binary.BigEndian.Uint64(chunk[0:8]))
		w := math.Float64frombits(binary.BigEndian.Uint64(chunk[8:16]))
		samples = append(samples, WeightSample{At: time.Unix(0, ts), WeightG: w})
	}
	return samples
}

// WeightSample is one entry of the estimator's diagnostic history.
type WeightSample struct {
	At      time.Time
	WeightG float64
}
