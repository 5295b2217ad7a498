// Package bridge implements the orchestrator that owns at most one
// DE1Session, at most one ScaleSession, and a set of SensorSessions,
// applies the auto-connect policies, and routes session events into
// cached snapshots and the WebSocket fan-out.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/de1bridge/internal/classifier"
	"github.com/srg/de1bridge/internal/de1proto"
	"github.com/srg/de1bridge/internal/groutine"
	"github.com/srg/de1bridge/internal/scaleadapter"
	"github.com/srg/de1bridge/internal/scaleflow"
	"github.com/srg/de1bridge/internal/sensoradapter"
	"github.com/srg/de1bridge/internal/session"
	"github.com/srg/de1bridge/internal/settingsstore"
	"github.com/srg/de1bridge/internal/transport"
	"github.com/srg/de1bridge/pkg/events"
)

// Sentinel errors HttpApi maps to specific HTTP status codes. Returned
// either bare or wrapped with context via fmt.Errorf("...: %w", ...);
// compare with errors.Is.
var (
	ErrNoDE1           = errors.New("bridge: no DE1 connected")
	ErrNoScale         = errors.New("bridge: no scale connected")
	ErrNoSensor        = errors.New("bridge: no such sensor")
	ErrUnknownDevice   = errors.New("bridge: unknown device address")
	ErrInvalidState    = errors.New("bridge: not a user-addressable state")
	ErrScaleReady      = errors.New("bridge: scale already connected")
	ErrScaleConnecting = errors.New("bridge: scale connect already in progress")
)

// scaleConnectTimeout bounds how long a scale connect attempt may sit
// in Connecting before the Bridge abandons and replaces it.
const scaleConnectTimeout = 15 * time.Second

// Broadcaster is the narrow interface the Bridge needs from WsFanout;
// kept separate so the Bridge never imports gorilla/websocket.
type Broadcaster interface {
	Broadcast(channel string, payload interface{})
}

// WebSocket channel names, matching the /ws/v1/<channel> path suffix.
const (
	ChannelMachineSnapshot     = "machine/snapshot"
	ChannelMachineShotSettings = "machine/shotSettings"
	ChannelMachineWaterLevels  = "machine/waterLevels"
	ChannelScaleSnapshot       = "scale/snapshot"
)

// SensorChannel is the WsFanout channel name for sensor id.
func SensorChannel(id string) string { return "sensors/" + id + "/snapshot" }

// DeviceSummary is one entry of GET /devices.
type DeviceSummary struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	State string `json:"state"`
}

// DiscoveredDevice is one entry of GET /devices/discovered.
type DiscoveredDevice struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Type       string `json:"type"`
	ScaleType  string `json:"scaleType,omitempty"`
	SensorType string `json:"sensorType,omitempty"`
}

// Bridge is the orchestrator. Construct with New, then Run in a
// background goroutine before calling any connect method.
type Bridge struct {
	transport transport.Transport
	settings  *settingsstore.Store
	broadcast Broadcaster
	logger    *logrus.Logger

	sessionEvents chan events.SessionEvent

	mu                   sync.RWMutex
	de1                  *session.DE1Session
	scale                *session.ScaleSession
	scaleConnectingSince time.Time
	sensors              map[string]*session.SensorSession
	discovered           map[string]transport.Advertisement
	startedAt            time.Time
}

// New constructs a Bridge. broadcast may be nil, in which case events
// are reduced into snapshots but never fanned out (useful for tests).
func New(t transport.Transport, settings *settingsstore.Store, broadcast Broadcaster, logger *logrus.Logger) *Bridge {
	if logger == nil {
		logger = logrus.New()
	}
	return &Bridge{
		transport:     t,
		settings:      settings,
		broadcast:     broadcast,
		logger:        logger,
		sessionEvents: make(chan events.SessionEvent, 256),
		sensors:       map[string]*session.SensorSession{},
		discovered:    map[string]transport.Advertisement{},
		startedAt:     time.Now(),
	}
}

// Run drains the session event channel until ctx is cancelled. Must
// be started before any session connects, or early events are lost
// once the channel's buffer fills.
func (b *Bridge) Run(ctx context.Context) {
	groutine.Go(ctx, "bridge-event-loop", func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-b.sessionEvents:
				b.handleEvent(ev)
			}
		}
	})
}

func (b *Bridge) handleEvent(ev events.SessionEvent) {
	switch ev.Kind {
	case events.SessionMachineUpdated:
		b.fanoutMachine(ev)
	case events.SessionScaleUpdated:
		b.broadcastIf(ChannelScaleSnapshot, ev.Scale)
	case events.SessionSensorUpdated:
		if ev.Sensor != nil {
			b.broadcastIf(SensorChannel(ev.Sensor.ID), ev.Sensor)
		}
	case events.SessionDisconnected:
		b.handleDisconnected(ev)
	case events.SessionFailed:
		b.logger.WithFields(logrus.Fields{"address": ev.Address, "role": ev.Role.String()}).
			WithError(ev.Err).Warn("session failed")
	}
}

func (b *Bridge) fanoutMachine(ev events.SessionEvent) {
	if ev.Machine == nil {
		return
	}
	b.broadcastIf(ChannelMachineSnapshot, ev.Machine)
	b.broadcastIf(ChannelMachineShotSettings, ev.Machine.ShotSettings)
	b.broadcastIf(ChannelMachineWaterLevels, map[string]uint16{
		"currentLevel": ev.Machine.WaterLevelMM,
		"refillLevel":  ev.Machine.WaterStartLevelMM,
	})
}

func (b *Bridge) broadcastIf(channel string, payload interface{}) {
	if b.broadcast == nil {
		return
	}
	b.broadcast.Broadcast(channel, payload)
}

func (b *Bridge) handleDisconnected(ev events.SessionEvent) {
	b.mu.Lock()
	switch ev.Role {
	case events.RoleDE1:
		b.de1 = nil
	case events.RoleScale:
		b.scale = nil
		b.scaleConnectingSince = time.Time{}
	case events.RoleSensor:
		delete(b.sensors, ev.Address)
	}
	b.mu.Unlock()

	b.logger.WithFields(logrus.Fields{"address": ev.Address, "role": ev.Role.String()}).
		Info("session disconnected, resuming scan for role")
}

// OnAdvertisement applies the classifier and the Bridge's auto-connect
// policies to one scan result. Safe to call from the scan goroutine.
func (b *Bridge) OnAdvertisement(ctx context.Context, ad transport.Advertisement) {
	result := classifier.Classify(classifier.Advertisement{Name: ad.Name, ServiceUUIDs: ad.ServiceUUIDs})
	if result.Kind == classifier.KindUnknown {
		return
	}

	b.mu.Lock()
	b.discovered[ad.Addr] = ad
	b.mu.Unlock()

	settings := b.settings.Get()

	switch result.Kind {
	case classifier.KindDE1:
		if settings.AutoConnect || ad.Addr == settings.DE1Address {
			b.autoConnectDE1(ctx, ad.Addr)
		}
	case classifier.KindSensor:
		b.autoConnectSensor(ctx, ad.Addr, result.Vendor)
	case classifier.KindScale:
		if settings.AutoConnectScale {
			_ = b.ConnectScale(ctx, ad.Addr, result.Vendor)
		}
	}
}

func (b *Bridge) autoConnectDE1(ctx context.Context, addr string) {
	b.mu.Lock()
	if b.de1 != nil {
		state := b.de1.State()
		if state == session.Connecting || state == session.Ready {
			b.mu.Unlock()
			return
		}
	}
	d := session.NewDE1Session(addr, b.transport, b.sessionEvents, b.logger)
	b.de1 = d
	b.mu.Unlock()

	if err := d.Connect(ctx); err != nil {
		b.logger.WithError(err).WithField("address", addr).Warn("DE1 connect failed to start")
	}
}

func (b *Bridge) autoConnectSensor(ctx context.Context, addr, vendor string) {
	b.mu.Lock()
	if _, ok := b.sensors[addr]; ok {
		b.mu.Unlock()
		return
	}
	adapter, ok := sensoradapter.ForVendor(vendor)
	if !ok {
		b.mu.Unlock()
		return
	}
	s := session.NewSensorSession(addr, adapter, b.transport, b.sessionEvents, b.logger)
	b.sensors[addr] = s
	b.mu.Unlock()

	if err := s.Connect(ctx); err != nil {
		b.logger.WithError(err).WithField("address", addr).Warn("sensor connect failed to start")
	}
}

// ConnectDevice dispatches a manual connect request by address to the
// right session kind, using the classification recorded the last time
// that address was seen in a scan. Returns an error if the address was
// never discovered.
func (b *Bridge) ConnectDevice(ctx context.Context, addr string) error {
	b.mu.RLock()
	ad, ok := b.discovered[addr]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDevice, addr)
	}

	result := classifier.Classify(classifier.Advertisement{Name: ad.Name, ServiceUUIDs: ad.ServiceUUIDs})
	switch result.Kind {
	case classifier.KindDE1:
		b.autoConnectDE1(ctx, addr)
		return nil
	case classifier.KindScale:
		return b.ConnectScale(ctx, addr, result.Vendor)
	case classifier.KindSensor:
		b.autoConnectSensor(ctx, addr, result.Vendor)
		return nil
	default:
		return fmt.Errorf("bridge: device at %q does not classify as a connectable role", addr)
	}
}

// ConnectScale honours a connect request unless an existing scale is
// Ready. A prior attempt stuck in Connecting for more than 15 s is
// abandoned and replaced.
func (b *Bridge) ConnectScale(ctx context.Context, addr, vendor string) error {
	b.mu.Lock()
	if b.scale != nil {
		state := b.scale.State()
		if state == session.Ready {
			b.mu.Unlock()
			return ErrScaleReady
		}
		if state == session.Connecting && time.Since(b.scaleConnectingSince) < scaleConnectTimeout {
			b.mu.Unlock()
			return ErrScaleConnecting
		}
		b.scale.Disconnect()
	}

	adapter, ok := scaleadapter.ForVendor(vendor)
	if !ok {
		adapter = scaleadapter.NewGenericWeight(vendor)
	}
	settings := b.settings.Get()
	s := session.NewScaleSession(addr, adapter, settings.WeightFlowMultiplier, b.transport, b.sessionEvents, b.logger)
	b.scale = s
	b.scaleConnectingSince = time.Now()
	b.mu.Unlock()

	return s.Connect(ctx)
}

// DisconnectScale tears down the active scale session, if any.
func (b *Bridge) DisconnectScale() error {
	b.mu.RLock()
	s := b.scale
	b.mu.RUnlock()
	if s == nil {
		return ErrNoScale
	}
	s.Disconnect()
	return nil
}

// TareScale issues the active scale's tare command.
func (b *Bridge) TareScale(ctx context.Context) error {
	b.mu.RLock()
	s := b.scale
	b.mu.RUnlock()
	if s == nil {
		return ErrNoScale
	}
	return s.Tare(ctx)
}

// DE1 returns the active DE1Session, or nil.
func (b *Bridge) DE1() *session.DE1Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.de1
}

// Scale returns the active ScaleSession, or nil.
func (b *Bridge) Scale() *session.ScaleSession {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.scale
}

// Sensor returns the SensorSession for id, or nil.
func (b *Bridge) Sensor(id string) *session.SensorSession {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.sensors {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

// Sensors returns every active SensorSnapshot.
func (b *Bridge) Sensors() []events.SensorSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]events.SensorSnapshot, 0, len(b.sensors))
	for _, s := range b.sensors {
		out = append(out, s.Snapshot())
	}
	return out
}

// Devices summarizes every active session for GET /devices.
func (b *Bridge) Devices() []DeviceSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]DeviceSummary, 0, len(b.sensors)+2)
	if b.de1 != nil {
		out = append(out, DeviceSummary{ID: b.de1.Address, Type: "DE1", State: b.de1.State().String()})
	}
	if b.scale != nil {
		out = append(out, DeviceSummary{ID: b.scale.Address, Type: "Scale", State: b.scale.State().String()})
	}
	for _, s := range b.sensors {
		out = append(out, DeviceSummary{ID: s.Address, Type: "Sensor", State: s.State().String()})
	}
	return out
}

// DiscoveredDevices lists every classified advertisement the Bridge has
// seen since it was created; entries are keyed by address and never
// cleared.
func (b *Bridge) DiscoveredDevices() []DiscoveredDevice {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]DiscoveredDevice, 0, len(b.discovered))
	for _, ad := range b.discovered {
		result := classifier.Classify(classifier.Advertisement{Name: ad.Name, ServiceUUIDs: ad.ServiceUUIDs})
		d := DiscoveredDevice{Name: ad.Name, Address: ad.Addr, Type: result.Kind.String()}
		switch result.Kind {
		case classifier.KindScale:
			d.ScaleType = result.Vendor
		case classifier.KindSensor:
			d.SensorType = result.Vendor
		}
		out = append(out, d)
	}
	return out
}

// Scan starts a BLE scan for timeout and applies the auto-connect
// policies to each advertisement observed.
func (b *Bridge) Scan(ctx context.Context, timeout time.Duration) error {
	ads, err := b.transport.Scan(ctx, timeout)
	if err != nil {
		return err
	}
	groutine.Go(ctx, "bridge-scan-consumer", func(ctx context.Context) {
		for ad := range ads {
			b.OnAdvertisement(ctx, ad)
		}
	})
	return nil
}

// MachineSnapshot returns the DE1's cached snapshot. ok is false if no
// DE1 session is currently Ready.
func (b *Bridge) MachineSnapshot() (events.MachineSnapshot, bool) {
	b.mu.RLock()
	d := b.de1
	b.mu.RUnlock()
	if d == nil || d.State() != session.Ready {
		return events.MachineSnapshot{}, false
	}
	return d.Snapshot(), true
}

// RequestMachineState parses name as a user-addressable DE1 state and
// requests it. Returns ErrInvalidState for an unrecognized name and
// ErrNoDE1/ErrNotReady if there is no Ready DE1 session.
func (b *Bridge) RequestMachineState(ctx context.Context, name string) error {
	st, ok := de1proto.ParseRequestableState(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidState, name)
	}
	d := b.DE1()
	if d == nil {
		return ErrNoDE1
	}
	return d.RequestState(ctx, st)
}

// MachineSettingsPatch carries the optional fields accepted by
// POST /machine/settings.
type MachineSettingsPatch struct {
	USBCharger  *bool
	FanThresholdC *uint8
}

// SetMachineSettings applies whichever fields of patch are present.
func (b *Bridge) SetMachineSettings(ctx context.Context, patch MachineSettingsPatch) error {
	d := b.DE1()
	if d == nil {
		return ErrNoDE1
	}
	if patch.USBCharger != nil {
		if err := d.SetUSBCharger(ctx, *patch.USBCharger); err != nil {
			return err
		}
	}
	if patch.FanThresholdC != nil {
		if err := d.SetFanThreshold(ctx, *patch.FanThresholdC); err != nil {
			return err
		}
	}
	return nil
}

// ShotSettingsPatch carries the optional fields accepted by
// POST /machine/shotSettings; unset fields keep their current value.
type ShotSettingsPatch struct {
	SteamMode         *uint8
	SteamTargetC      *uint8
	SteamDurationS    *uint8
	HotWaterTargetC   *uint8
	HotWaterVolumeML  *uint8
	HotWaterDurationS *uint8
	ShotVolumeML      *uint8
	GroupTargetC      *float64
}

// SetShotSettings merges patch onto the DE1's last known shot settings
// and writes the result, returning the merged value actually sent.
func (b *Bridge) SetShotSettings(ctx context.Context, patch ShotSettingsPatch) (events.ShotSettings, error) {
	d := b.DE1()
	if d == nil {
		return events.ShotSettings{}, ErrNoDE1
	}
	merged := d.Snapshot().ShotSettings
	if patch.SteamMode != nil {
		merged.SteamMode = *patch.SteamMode
	}
	if patch.SteamTargetC != nil {
		merged.SteamTargetC = *patch.SteamTargetC
	}
	if patch.SteamDurationS != nil {
		merged.SteamDurationS = *patch.SteamDurationS
	}
	if patch.HotWaterTargetC != nil {
		merged.HotWaterTargetC = *patch.HotWaterTargetC
	}
	if patch.HotWaterVolumeML != nil {
		merged.HotWaterVolumeML = *patch.HotWaterVolumeML
	}
	if patch.HotWaterDurationS != nil {
		merged.HotWaterDurationS = *patch.HotWaterDurationS
	}
	if patch.ShotVolumeML != nil {
		merged.ShotVolumeML = *patch.ShotVolumeML
	}
	if patch.GroupTargetC != nil {
		merged.GroupTargetC = *patch.GroupTargetC
	}

	wire := de1proto.ShotSettings{
		SteamMode:         merged.SteamMode,
		SteamTargetC:      merged.SteamTargetC,
		SteamDurationS:    merged.SteamDurationS,
		HotWaterTargetC:   merged.HotWaterTargetC,
		HotWaterVolumeML:  merged.HotWaterVolumeML,
		HotWaterDurationS: merged.HotWaterDurationS,
		ShotVolumeML:      merged.ShotVolumeML,
		GroupTargetC:      merged.GroupTargetC,
	}
	if err := d.SetShotSettings(ctx, wire); err != nil {
		return events.ShotSettings{}, err
	}
	return merged, nil
}

// UploadProfile uploads p to the active DE1.
func (b *Bridge) UploadProfile(ctx context.Context, p de1proto.Profile) error {
	d := b.DE1()
	if d == nil {
		return ErrNoDE1
	}
	return d.UploadProfile(ctx, p)
}

// ScaleSnapshot returns the active scale's cached snapshot. ok is
// false if no scale session is currently Ready.
func (b *Bridge) ScaleSnapshot() (events.ScaleSnapshot, bool) {
	b.mu.RLock()
	s := b.scale
	b.mu.RUnlock()
	if s == nil || s.State() != session.Ready {
		return events.ScaleSnapshot{}, false
	}
	return s.Snapshot(), true
}

// ScaleWeightHistory drains the active scale's raw weight-sample
// diagnostic log since the last call, oldest first.
func (b *Bridge) ScaleWeightHistory() ([]scaleflow.WeightSample, error) {
	b.mu.RLock()
	s := b.scale
	b.mu.RUnlock()
	if s == nil {
		return nil, ErrNoScale
	}
	return s.WeightHistory(), nil
}

// SensorSnapshot returns one sensor's cached snapshot by id.
func (b *Bridge) SensorSnapshot(id string) (events.SensorSnapshot, bool) {
	s := b.Sensor(id)
	if s == nil {
		return events.SensorSnapshot{}, false
	}
	return s.Snapshot(), true
}

// Stats reports session counts and uptime for operational visibility.
func (b *Bridge) Stats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return map[string]interface{}{
		"uptimeSeconds": time.Since(b.startedAt).Seconds(),
		"de1Connected":  b.de1 != nil && b.de1.State() == session.Ready,
		"scaleConnected": b.scale != nil && b.scale.State() == session.Ready,
		"sensorCount":   len(b.sensors),
	}
}
