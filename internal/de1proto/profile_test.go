package de1proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeHeaderAndFrame(t *testing.T) {
	p := Profile{
		TargetVolume: 36,
		Steps: []ProfileStep{
			{Pump: "flow", Transition: "smooth", Flow: 2.0, TemperatureC: 93.0, Seconds: 30.0},
		},
	}

	header := EncodeHeader(p)
	assert.Equal(t, uint8(1), header[0])
	assert.Equal(t, uint8(1), header[1])
	assert.Equal(t, []byte{0x00, 0x24}, header[2:4])

	frame := EncodeFrame(0, p.Steps[0])
	assert.Equal(t, uint8(0), frame[0])
	assert.Equal(t, uint8(FrameFlagCtrlF|FrameFlagInterpolate), frame[1])
	assert.Equal(t, uint8(0), frame[2]) // no pressure target set
	assert.Equal(t, uint8(0x20), frame[3])
	assert.Equal(t, uint8(0xBA), frame[4])
	assert.Equal(t, uint8(0x1E), frame[5]) // F8_1_7(30) -> hi-bit clear, mantissa 30
	assert.Equal(t, uint8(0), frame[6])
	assert.Equal(t, uint8(0), frame[7])
}

func TestEncodeFramesOrdering(t *testing.T) {
	p := Profile{Steps: []ProfileStep{
		{Pump: "pressure", Pressure: 9.0, TemperatureC: 92, Seconds: 5},
		{Pump: "flow", Flow: 2.0, TemperatureC: 92, Seconds: 25},
	}}
	frames := EncodeFrames(p)
	assert.Len(t, frames, 2)
	assert.Equal(t, uint8(0), frames[0][0])
	assert.Equal(t, uint8(1), frames[1][0])
}
