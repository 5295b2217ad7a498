package scaleflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimatorFirstSampleHasNoFlow(t *testing.T) {
	e := NewEstimator(1.0)
	flow := e.Sample(10.0, time.Unix(0, 0))
	assert.Equal(t, 0.0, flow)
}

func TestEstimatorConvergesTowardSteadyFlow(t *testing.T) {
	e := NewEstimator(1.0)
	start := time.Unix(0, 0)
	e.Sample(0.0, start)

	// 2 g/s steady pour, sampled every 50ms for 3 seconds - well past
	// the 250ms time constant, so flow should converge near 2.0.
	var flow float64
	weight := 0.0
	for i := 1; i <= 60; i++ {
		weight += 0.1 // 0.1g every 50ms == 2 g/s
		at := start.Add(time.Duration(i) * 50 * time.Millisecond)
		flow = e.Sample(weight, at)
	}
	assert.InDelta(t, 2.0, flow, 0.1)
}

func TestEstimatorResetZeroesFlow(t *testing.T) {
	e := NewEstimator(1.0)
	start := time.Unix(0, 0)
	e.Sample(0.0, start)
	e.Sample(5.0, start.Add(100*time.Millisecond))
	assert.NotEqual(t, 0.0, e.FlowGPS())

	e.Reset()
	assert.Equal(t, 0.0, e.FlowGPS())
}

func TestEstimatorAppliesMultiplier(t *testing.T) {
	e := NewEstimator(2.0)
	start := time.Unix(0, 0)
	e.Sample(0.0, start)
	flow := e.Sample(10.0, start.Add(1*time.Second))

	ref := NewEstimator(1.0)
	ref.Sample(0.0, start)
	base := ref.Sample(10.0, start.Add(1*time.Second))
	assert.InDelta(t, 2*base, flow, 1e-9)
}

func TestEstimatorIgnoresNonPositiveDelta(t *testing.T) {
	e := NewEstimator(1.0)
	start := time.Unix(0, 0)
	e.Sample(0.0, start)
	flow := e.Sample(10.0, start) // same timestamp, dt == 0
	assert.Equal(t, 0.0, flow)
}

func TestDrainHistoryReturnsRecordedSamples(t *testing.T) {
	e := NewEstimator(1.0)
	start := time.Unix(1000, 0)
	e.Sample(1.0, start)
	e.Sample(2.0, start.Add(time.Second))

	samples := e.DrainHistory()
	if assert.Len(t, samples, 2) {
		assert.InDelta(t, 1.0, samples[0].WeightG, 1e-9)
		assert.InDelta(t, 2.0, samples[1].WeightG, 1e-9)
	}

	assert.Empty(t, e.DrainHistory())
}
