package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/de1bridge/internal/de1proto"
	"github.com/srg/de1bridge/internal/transport"
	"github.com/srg/de1bridge/pkg/events"
)

// de1Handler decodes DE1 GATT notifications into MachineSnapshot
// deltas. It accumulates fields across notifications rather than
// replacing the whole snapshot on each one, since STATE_INFO,
// SHOT_SAMPLE, WATER_LEVELS, and SHOT_SETTINGS arrive independently.
// apply runs on the session's drain goroutine; Snapshot is read from
// any goroutine (bridge/httpapi), so mu guards the struct itself.
type de1Handler struct {
	logger   *logrus.Logger
	mu       sync.RWMutex
	snapshot events.MachineSnapshot
}

func newDE1Handler(logger *logrus.Logger) *de1Handler {
	return &de1Handler{logger: logger}
}

func (h *de1Handler) ServiceUUID() string { return de1proto.ServiceUUID }

func (h *de1Handler) NotifyCharacteristics() []string { return de1proto.NotifyCharacteristics }

func (h *de1Handler) InitialReadCharacteristics() []string {
	return de1proto.InitialReadCharacteristics
}

func (h *de1Handler) HandleNotification(uuid string, data []byte) (events.SessionEvent, bool) {
	return h.apply(uuid, data)
}

func (h *de1Handler) HandleReadResult(uuid string, data []byte) (events.SessionEvent, bool) {
	return h.apply(uuid, data)
}

func (h *de1Handler) apply(uuid string, data []byte) (events.SessionEvent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch uuid {
	case de1proto.CharStateInfo:
		info, err := de1proto.DecodeStateInfo(data)
		if err != nil {
			h.logger.WithError(err).Debug("state info decode failed")
			return events.SessionEvent{}, false
		}
		h.snapshot.State = info.State.String()
		h.snapshot.SubState = info.SubState.String()

	case de1proto.CharShotSample:
		sample, err := de1proto.DecodeShotSample(data)
		if err != nil {
			h.logger.WithError(err).Debug("shot sample decode failed")
			return events.SessionEvent{}, false
		}
		h.snapshot.Pressure = sample.Pressure
		h.snapshot.Flow = sample.Flow
		h.snapshot.MixTemp = sample.MixTemp
		h.snapshot.HeadTemp = sample.HeadTemp
		h.snapshot.SteamTemp = sample.SteamTemp
		h.snapshot.TargetPressure = sample.SetPressure
		h.snapshot.TargetFlow = sample.SetFlow

	case de1proto.CharWaterLevels:
		levels, err := de1proto.DecodeWaterLevels(data)
		if err != nil {
			h.logger.WithError(err).Debug("water levels decode failed")
			return events.SessionEvent{}, false
		}
		h.snapshot.WaterLevelMM = levels.CurrentMM
		h.snapshot.WaterStartLevelMM = levels.StartMM

	case de1proto.CharVersion:
		version, err := de1proto.DecodeVersion(data)
		if err != nil {
			h.logger.WithError(err).Debug("version decode failed")
			return events.SessionEvent{}, false
		}
		h.snapshot.BLEAPIVersion = version.BLEAPIVersion
		h.snapshot.Firmware = formatFirmwareVersion(version)

	case de1proto.CharShotSettings:
		settings, err := de1proto.DecodeShotSettings(data)
		if err != nil {
			h.logger.WithError(err).Debug("shot settings decode failed")
			return events.SessionEvent{}, false
		}
		h.snapshot.ShotSettings = events.ShotSettings{
			SteamMode:         settings.SteamMode,
			SteamTargetC:      settings.SteamTargetC,
			SteamDurationS:    settings.SteamDurationS,
			HotWaterTargetC:   settings.HotWaterTargetC,
			HotWaterVolumeML:  settings.HotWaterVolumeML,
			HotWaterDurationS: settings.HotWaterDurationS,
			ShotVolumeML:      settings.ShotVolumeML,
			GroupTargetC:      settings.GroupTargetC,
		}

	case de1proto.CharTemperatures:
		// Body not parsed; the notification is ignored and no event is
		// emitted.
		return events.SessionEvent{}, false

	default:
		return events.SessionEvent{}, false
	}

	snapshot := h.snapshot
	snapshot.UpdatedAt = time.Now()
	return events.SessionEvent{Kind: events.SessionMachineUpdated, Machine: &snapshot}, true
}

func formatFirmwareVersion(v de1proto.Version) string {
	return fmt.Sprintf("%d.%d", v.FirmwareMajor, v.FirmwareMinor)
}

// DE1Session is a Session specialized for the DE1 GATT protocol, with
// typed command methods on top of the generic Write/Read guard.
type DE1Session struct {
	*Session
	handler *de1Handler
}

// NewDE1Session constructs a DE1Session targeting addr.
func NewDE1Session(addr string, t transport.Transport, out chan events.SessionEvent, logger *logrus.Logger) *DE1Session {
	h := newDE1Handler(logger)
	return &DE1Session{
		Session: New(addr, events.RoleDE1, t, h, out, logger),
		handler: h,
	}
}

// RequestState writes the REQUESTED_STATE characteristic.
func (d *DE1Session) RequestState(ctx context.Context, s de1proto.State) error {
	return d.Write(ctx, de1proto.CharRequestedState, de1proto.EncodeRequestedState(s))
}

// SetShotSettings writes the SHOT_SETTINGS characteristic.
func (d *DE1Session) SetShotSettings(ctx context.Context, s de1proto.ShotSettings) error {
	return d.Write(ctx, de1proto.CharShotSettings, s.Encode())
}

// UploadProfile writes the profile header followed by each frame, in
// order, per the DE1's profile upload protocol.
func (d *DE1Session) UploadProfile(ctx context.Context, p de1proto.Profile) error {
	if err := d.Write(ctx, de1proto.CharHeaderWrite, de1proto.EncodeHeader(p)); err != nil {
		return err
	}
	for _, frame := range de1proto.EncodeFrames(p) {
		if err := d.Write(ctx, de1proto.CharFrameWrite, frame); err != nil {
			return err
		}
	}
	return nil
}

// SetUSBCharger writes the USB_CHARGER MMR register.
func (d *DE1Session) SetUSBCharger(ctx context.Context, enable bool) error {
	return d.Write(ctx, de1proto.CharWriteToMMR,
		de1proto.EncodeMMRWriteRequest(de1proto.MMRUSBCharger, de1proto.EncodeUSBChargerWrite(enable)))
}

// SetFanThreshold writes the FAN_THRESHOLD MMR register.
func (d *DE1Session) SetFanThreshold(ctx context.Context, thresholdC uint8) error {
	return d.Write(ctx, de1proto.CharWriteToMMR,
		de1proto.EncodeMMRWriteRequest(de1proto.MMRFanThreshold, de1proto.EncodeFanThresholdWrite(thresholdC)))
}

// ReadMMR issues an MMR read request. The DE1 answers with a
// notification on READ_FROM_MMR; this session does not subscribe to
// that characteristic, so the response is neither returned nor emitted
// as an event.
func (d *DE1Session) ReadMMR(ctx context.Context, address uint32, length uint8) error {
	return d.Write(ctx, de1proto.CharReadFromMMR, de1proto.EncodeMMRReadRequest(address, length))
}

// Snapshot returns the handler's current accumulated MachineSnapshot.
func (d *DE1Session) Snapshot() events.MachineSnapshot {
	d.handler.mu.RLock()
	defer d.handler.mu.RUnlock()
	return d.handler.snapshot
}
