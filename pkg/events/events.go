// Package events defines the semantic event types a DeviceSession
// emits and the Bridge routes. Sessions never call into HttpApi or
// WsFanout directly; everything downstream of a BLE notification
// flows through one of these types, per this bridge's
// signal/slot-to-explicit-event-router design choice.
package events

import "time"

// Role identifies which kind of device a session represents.
type Role int

const (
	RoleDE1 Role = iota
	RoleScale
	RoleSensor
)

func (r Role) String() string {
	switch r {
	case RoleDE1:
		return "DE1"
	case RoleScale:
		return "Scale"
	case RoleSensor:
		return "Sensor"
	default:
		return "Unknown"
	}
}

// SessionEventKind discriminates the payload a SessionEvent carries.
type SessionEventKind int

const (
	SessionStateChanged SessionEventKind = iota
	SessionMachineUpdated
	SessionScaleUpdated
	SessionSensorUpdated
	SessionDisconnected
	SessionFailed
)

// SessionEvent is emitted by a DeviceSession on its event channel. The
// Bridge drains these, reduces them into the owning session's cached
// snapshot, and fans the ones with wire relevance out to WsFanout.
type SessionEvent struct {
	Kind      SessionEventKind
	Address   string
	Role      Role
	At        time.Time
	Err       error
	Machine   *MachineSnapshot
	Scale     *ScaleSnapshot
	Sensor    *SensorSnapshot
}

// ShotSettings mirrors the DE1's 9-byte shot-settings characteristic.
type ShotSettings struct {
	SteamMode         uint8   `json:"steamMode"`
	SteamTargetC      uint8   `json:"steamTargetC"`
	SteamDurationS    uint8   `json:"steamDurationS"`
	HotWaterTargetC   uint8   `json:"hotWaterTargetC"`
	HotWaterVolumeML  uint8   `json:"hotWaterVolumeMl"`
	HotWaterDurationS uint8   `json:"hotWaterDurationS"`
	ShotVolumeML      uint8   `json:"shotVolumeMl"`
	GroupTargetC      float64 `json:"groupTargetC"`
}

// MachineSnapshot is the cached, derived view of a DE1Session's state.
type MachineSnapshot struct {
	State             string       `json:"state"`
	SubState          string       `json:"subState"`
	Pressure          float64      `json:"pressure"`
	Flow              float64      `json:"flow"`
	MixTemp           float64      `json:"mixTemp"`
	HeadTemp          float64      `json:"headTemp"`
	SteamTemp         float64      `json:"steamTemp"`
	TargetPressure    float64      `json:"targetPressure"`
	TargetFlow        float64      `json:"targetFlow"`
	WaterLevelMM      uint16       `json:"waterLevelMm"`
	WaterStartLevelMM uint16       `json:"waterStartLevelMm"`
	Firmware          string       `json:"firmware"`
	Model             string       `json:"model"`
	HasGHC            bool         `json:"hasGhc"`
	Serial            string       `json:"serial"`
	USBChargerOn      bool         `json:"usbChargerOn"`
	FanThresholdC     uint8        `json:"fanThresholdC"`
	ShotSettings      ShotSettings `json:"shotSettings"`
	BLEAPIVersion     uint8        `json:"bleApiVersion"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// ScaleSnapshot is the cached, derived view of a ScaleSession's state.
type ScaleSnapshot struct {
	WeightG    float64   `json:"weight"`
	FlowGPS    float64   `json:"weightFlow"`
	BatteryPct *uint8    `json:"batteryLevel,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// SensorSnapshot is the cached, derived view of one SensorSession.
type SensorSnapshot struct {
	ID        string             `json:"id"`
	Channels  map[string]float64 `json:"channels"`
	Timestamp time.Time          `json:"timestamp"`
}
