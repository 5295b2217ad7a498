// Package de1proto maps DE1 BLE characteristic UUIDs to semantic
// messages and builds the raw payloads for the commands the core
// issues. The UUID table below is the protocol contract: firmware
// expects these exact values.
package de1proto

// ServiceUUID is the DE1 GATT service. An advertisement carrying this
// UUID is classified as a DE1 unless its name matches a scale pattern.
const ServiceUUID = "0000a000-0000-1000-8000-00805f9b34fb"

// Characteristic UUIDs, keyed by purpose per the protocol contract.
const (
	CharStateInfo      = "0000a001-0000-1000-8000-00805f9b34fb"
	CharRequestedState = "0000a002-0000-1000-8000-00805f9b34fb"
	CharShotSample     = "0000a00d-0000-1000-8000-00805f9b34fb"
	CharWaterLevels    = "0000a00f-0000-1000-8000-00805f9b34fb"
	CharVersion        = "0000a007-0000-1000-8000-00805f9b34fb"
	CharShotSettings   = "0000a00b-0000-1000-8000-00805f9b34fb"
	CharTemperatures   = "0000a00e-0000-1000-8000-00805f9b34fb"
	CharHeaderWrite    = "0000a00a-0000-1000-8000-00805f9b34fb"
	CharFrameWrite     = "0000a009-0000-1000-8000-00805f9b34fb"
	CharReadFromMMR    = "0000a005-0000-1000-8000-00805f9b34fb"
	CharWriteToMMR     = "0000a006-0000-1000-8000-00805f9b34fb"
)

// NotifyCharacteristics are subscribed to on entry to the Ready state.
var NotifyCharacteristics = []string{
	CharStateInfo,
	CharShotSample,
	CharWaterLevels,
	CharTemperatures,
	CharShotSettings,
}

// InitialReadCharacteristics are read once on entry to the Ready state.
var InitialReadCharacteristics = []string{
	CharStateInfo,
	CharVersion,
	CharWaterLevels,
	CharShotSettings,
}

// MMR register addresses the core reads/writes.
const (
	MMRUSBCharger   uint32 = 0x80480C
	MMRFanThreshold uint32 = 0x80481C
	MMRHWConfig     uint32 = 0x800020
)
