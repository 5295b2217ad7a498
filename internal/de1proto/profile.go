package de1proto

import "github.com/srg/de1bridge/internal/codec"

// Frame flag bits for the profile FRAME_WRITE payload.
const (
	FrameFlagCtrlF      uint8 = 0x20
	FrameFlagInterpolate uint8 = 0x10
)

// ExitCondition is an optional per-frame exit trigger.
type ExitCondition struct {
	Kind  uint8 `json:"kind"`
	Value uint8 `json:"value"`
}

// ProfileStep is one frame of a brew profile, in the source document's
// semi-structured shape.
type ProfileStep struct {
	Pump         string         `json:"pump"`       // "pressure" | "flow"
	Transition   string         `json:"transition"`  // "smooth" | "fast"
	Pressure     float64        `json:"pressure,omitempty"`
	Flow         float64        `json:"flow,omitempty"`
	TemperatureC float64        `json:"temperature"`
	Seconds      float64        `json:"seconds"`
	Exit         *ExitCondition `json:"exit,omitempty"`
}

// Profile is the source representation of a brew profile.
type Profile struct {
	Title        string        `json:"title"`
	TargetVolume float64       `json:"target_volume,omitempty"`
	TargetWeight float64       `json:"target_weight,omitempty"`
	Steps        []ProfileStep `json:"steps"`
}

// EncodeHeader builds the 20-byte profile header write payload.
func EncodeHeader(p Profile) []byte {
	header := make([]byte, 20)
	header[0] = 1 // header version
	header[1] = uint8(len(p.Steps))
	volEncoded := codec.EncodeU10P0(p.TargetVolume)
	header[2] = byte(volEncoded >> 8)
	header[3] = byte(volEncoded & 0xFF)
	return header
}

// EncodeFrame builds the 8-byte FRAME_WRITE payload for step at index.
func EncodeFrame(index int, step ProfileStep) []byte {
	frame := make([]byte, 8)
	frame[0] = uint8(index)

	var flags uint8
	if step.Pump == "flow" {
		flags |= FrameFlagCtrlF
	}
	if step.Transition == "smooth" {
		flags |= FrameFlagInterpolate
	}
	frame[1] = flags

	frame[2] = codec.EncodeU8P4(step.Pressure)
	frame[3] = codec.EncodeU8P4(step.Flow)
	frame[4] = codec.EncodeU8P1(step.TemperatureC)
	frame[5] = codec.EncodeF8_1_7(step.Seconds)

	if step.Exit != nil {
		frame[6] = step.Exit.Kind
		frame[7] = step.Exit.Value
	}
	return frame
}

// EncodeFrames builds the frame payloads for every step of p, in order.
func EncodeFrames(p Profile) [][]byte {
	frames := make([][]byte, len(p.Steps))
	for i, step := range p.Steps {
		frames[i] = EncodeFrame(i, step)
	}
	return frames
}
