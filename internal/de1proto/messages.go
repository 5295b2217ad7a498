package de1proto

import (
	"fmt"

	"github.com/srg/de1bridge/internal/codec"
)

// MachineModel identifies the DE1 hardware variant, inferred from the
// HW_CONFIG MMR register.
type MachineModel uint8

const (
	ModelDE1     MachineModel = 0
	ModelDE1Plus MachineModel = 1
	ModelDE1Pro  MachineModel = 2
	ModelDE1XL   MachineModel = 3
	ModelDE1Cafe MachineModel = 4
)

// String renders the model's display name.
func (m MachineModel) String() string {
	switch m {
	case ModelDE1:
		return "DE1"
	case ModelDE1Plus:
		return "DE1+"
	case ModelDE1Pro:
		return "DE1Pro"
	case ModelDE1XL:
		return "DE1XL"
	case ModelDE1Cafe:
		return "DE1Cafe"
	default:
		return "Unknown"
	}
}

// StateInfo is the decoded STATE_INFO payload.
type StateInfo struct {
	State    State
	SubState SubState
}

// DecodeStateInfo parses a STATE_INFO notification/read payload.
func DecodeStateInfo(data []byte) (StateInfo, error) {
	if len(data) < 2 {
		return StateInfo{}, fmt.Errorf("state info: %w: need 2 bytes, have %d", codec.ErrShortBuffer, len(data))
	}
	return StateInfo{State: State(data[0]), SubState: SubState(data[1])}, nil
}

// ShotSample is the decoded SHOT_SAMPLE payload (bytes 0-11); bytes
// beyond 12 are tolerated and carried as RawTail without interpretation.
type ShotSample struct {
	TimerCentiseconds uint16
	Pressure          float64
	Flow              float64
	MixTemp           float64
	HeadTemp          float64
	SetMixTemp        float64
	SetHeadTemp       float64
	SetPressure       float64
	SetFlow           float64
	FrameNumber       uint8
	SteamTemp         float64
	RawTail           []byte
}

// DecodeShotSample parses a SHOT_SAMPLE notification. Requires at
// least 12 bytes; the source firmware sends 15+, but only bytes 0-11
// carry fields this protocol interprets.
func DecodeShotSample(data []byte) (ShotSample, error) {
	if len(data) < 12 {
		return ShotSample{}, fmt.Errorf("shot sample: %w: need 12 bytes, have %d", codec.ErrShortBuffer, len(data))
	}

	timer, _, err := codec.ReadU16BE(data, 0)
	if err != nil {
		return ShotSample{}, fmt.Errorf("shot sample: %w", err)
	}

	sample := ShotSample{
		TimerCentiseconds: timer,
		Pressure:          codec.DecodeU8P4(data[2]),
		Flow:              codec.DecodeU8P4(data[3]),
		MixTemp:           codec.DecodeU8P1(data[4]),
		HeadTemp:          codec.DecodeHeadTemp(data[5]),
		SetMixTemp:        codec.DecodeU8P1(data[6]),
		SetHeadTemp:       codec.DecodeHeadTemp(data[7]),
		SetPressure:       codec.DecodeU8P4(data[8]),
		SetFlow:           codec.DecodeU8P4(data[9]),
		FrameNumber:       data[10],
		SteamTemp:         codec.DecodeU8P0(data[11]),
	}
	if len(data) > 12 {
		sample.RawTail = append([]byte(nil), data[12:]...)
	}
	return sample, nil
}

// TimerSeconds converts the raw 0.01s timer units to seconds.
func (s ShotSample) TimerSeconds() float64 {
	return float64(s.TimerCentiseconds) / 100.0
}

// WaterLevels is the decoded WATER_LEVELS payload.
type WaterLevels struct {
	CurrentMM uint16
	StartMM   uint16
}

// DecodeWaterLevels parses a WATER_LEVELS notification/read payload.
func DecodeWaterLevels(data []byte) (WaterLevels, error) {
	if len(data) < 4 {
		return WaterLevels{}, fmt.Errorf("water levels: %w: need 4 bytes, have %d", codec.ErrShortBuffer, len(data))
	}
	current, _, err := codec.ReadU16BE(data, 0)
	if err != nil {
		return WaterLevels{}, fmt.Errorf("water levels: %w", err)
	}
	start, _, err := codec.ReadU16BE(data, 2)
	if err != nil {
		return WaterLevels{}, fmt.Errorf("water levels: %w", err)
	}
	return WaterLevels{CurrentMM: current, StartMM: start}, nil
}

// Version is the decoded VERSION payload.
type Version struct {
	BLEAPIVersion uint8
	FirmwareMajor uint8
	FirmwareMinor uint8
	FirmwareBuild uint32
}

// DecodeVersion parses a VERSION read payload.
func DecodeVersion(data []byte) (Version, error) {
	if len(data) < 7 {
		return Version{}, fmt.Errorf("version: %w: need 7 bytes, have %d", codec.ErrShortBuffer, len(data))
	}
	build, _, err := codec.ReadU32BE(data, 3)
	if err != nil {
		return Version{}, fmt.Errorf("version: %w", err)
	}
	return Version{
		BLEAPIVersion: data[0],
		FirmwareMajor: data[1],
		FirmwareMinor: data[2],
		FirmwareBuild: build,
	}, nil
}

// ShotSettings is the decoded/encoded SHOT_SETTINGS characteristic.
type ShotSettings struct {
	SteamMode            uint8
	SteamTargetC         uint8
	SteamDurationS       uint8
	HotWaterTargetC      uint8
	HotWaterVolumeML     uint8
	HotWaterDurationS    uint8
	ShotVolumeML         uint8
	GroupTargetC         float64
}

// DecodeShotSettings parses the 9-byte SHOT_SETTINGS payload.
func DecodeShotSettings(data []byte) (ShotSettings, error) {
	if len(data) < 9 {
		return ShotSettings{}, fmt.Errorf("shot settings: %w: need 9 bytes, have %d", codec.ErrShortBuffer, len(data))
	}
	groupTempRaw, _, err := codec.ReadU16BE(data, 7)
	if err != nil {
		return ShotSettings{}, fmt.Errorf("shot settings: %w", err)
	}
	return ShotSettings{
		SteamMode:         data[0],
		SteamTargetC:      data[1],
		SteamDurationS:    data[2],
		HotWaterTargetC:   data[3],
		HotWaterVolumeML:  data[4],
		HotWaterDurationS: data[5],
		ShotVolumeML:      data[6],
		GroupTargetC:      codec.DecodeU16P8(groupTempRaw),
	}, nil
}

// Encode serializes ShotSettings to its 9-byte wire form. Two calls
// with identical fields always produce identical bytes.
func (s ShotSettings) Encode() []byte {
	buf := make([]byte, 0, 9)
	buf = append(buf,
		s.SteamMode,
		s.SteamTargetC,
		s.SteamDurationS,
		s.HotWaterTargetC,
		s.HotWaterVolumeML,
		s.HotWaterDurationS,
		s.ShotVolumeML,
	)
	buf = codec.WriteU16BE(buf, codec.EncodeU16P8(s.GroupTargetC))
	return buf
}

// EncodeRequestedState builds the 1-byte REQUESTED_STATE write payload.
func EncodeRequestedState(s State) []byte {
	return []byte{byte(s)}
}
