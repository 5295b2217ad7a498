// Package httpapi translates HTTP requests into Bridge calls and
// replies with JSON snapshots taken from the Bridge. Every handler is
// a pure function of the request and current Bridge state; nothing
// here retains request-scoped state across calls.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/srg/de1bridge/internal/bridge"
	"github.com/srg/de1bridge/internal/de1proto"
	"github.com/srg/de1bridge/internal/scaleflow"
	"github.com/srg/de1bridge/internal/session"
	"github.com/srg/de1bridge/internal/settingsstore"
	"github.com/srg/de1bridge/internal/wsfanout"
	"github.com/srg/de1bridge/pkg/events"
)

// Bridge is the subset of *bridge.Bridge the HTTP layer needs, kept
// narrow so handler tests can use a fake instead of a real Bridge.
type Bridge interface {
	Devices() []bridge.DeviceSummary
	DiscoveredDevices() []bridge.DiscoveredDevice
	Scan(ctx context.Context, timeout time.Duration) error
	ConnectDevice(ctx context.Context, addr string) error

	MachineSnapshot() (events.MachineSnapshot, bool)
	RequestMachineState(ctx context.Context, name string) error
	SetMachineSettings(ctx context.Context, patch bridge.MachineSettingsPatch) error
	SetShotSettings(ctx context.Context, patch bridge.ShotSettingsPatch) (events.ShotSettings, error)
	UploadProfile(ctx context.Context, p de1proto.Profile) error

	ScaleSnapshot() (events.ScaleSnapshot, bool)
	TareScale(ctx context.Context) error
	DisconnectScale() error
	ScaleWeightHistory() ([]scaleflow.WeightSample, error)

	Sensors() []events.SensorSnapshot
	SensorSnapshot(id string) (events.SensorSnapshot, bool)
}

// SettingsStore is the subset of *settingsstore.Store the HTTP layer
// needs for GET/POST /settings.
type SettingsStore interface {
	Get() settingsstore.Settings
	Update(patch settingsstore.Patch) (settingsstore.Settings, error)
}

// scanTimeout bounds a GET /devices/scan request; ?quick=true uses a
// shorter window.
const (
	scanTimeout      = 10 * time.Second
	scanTimeoutQuick = 3 * time.Second
)

// API wires a Bridge and SettingsStore into an HTTP router under
// /api/v1, and a Fanout into a WebSocket router under /ws/v1.
type API struct {
	bridge   Bridge
	settings SettingsStore
	fanout   *wsfanout.Fanout
	logger   *logrus.Logger
}

// New constructs an API. logger and fanout may be nil; a nil fanout
// disables the /ws/v1 routes.
func New(b Bridge, settings SettingsStore, fanout *wsfanout.Fanout, logger *logrus.Logger) *API {
	if logger == nil {
		logger = logrus.New()
	}
	return &API{bridge: b, settings: settings, fanout: fanout, logger: logger}
}

// Router builds the gorilla/mux router for the whole REST surface,
// with CORS applied to every route.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusBadRequest, "method not allowed")
	})

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/devices", a.handleDevices).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/devices/scan", a.handleDevicesScan).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/devices/discovered", a.handleDevicesDiscovered).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/devices/connect", a.handleDevicesConnect).Methods(http.MethodPut, http.MethodOptions)

	api.HandleFunc("/machine/info", a.handleMachineInfo).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/machine/state", a.handleMachineState).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/machine/state/{name}", a.handleMachineStateSet).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/machine/profile", a.handleMachineProfile).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/machine/settings", a.handleMachineSettingsGet).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/machine/settings", a.handleMachineSettingsPost).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/machine/shotSettings", a.handleShotSettingsGet).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/machine/shotSettings", a.handleShotSettingsPost).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/machine/waterLevels", a.handleWaterLevels).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/sensors", a.handleSensors).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/sensors/{id}", a.handleSensor).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/scale/tare", a.handleScaleTare).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/scale/disconnect", a.handleScaleDisconnect).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/scale/weightHistory", a.handleScaleWeightHistory).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/settings", a.handleSettingsGet).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/settings", a.handleSettingsPost).Methods(http.MethodPost, http.MethodOptions)

	if a.fanout != nil {
		ws := r.PathPrefix("/ws/v1").Subrouter()
		ws.HandleFunc("/machine/snapshot", a.wsHandler(bridge.ChannelMachineSnapshot))
		ws.HandleFunc("/machine/shotSettings", a.wsHandler(bridge.ChannelMachineShotSettings))
		ws.HandleFunc("/machine/waterLevels", a.wsHandler(bridge.ChannelMachineWaterLevels))
		ws.HandleFunc("/scale/snapshot", a.wsHandler(bridge.ChannelScaleSnapshot))
		ws.HandleFunc("/sensors/{id}/snapshot", a.wsSensorHandler())
	}

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusForErr maps a Bridge/session error to the HTTP status §7
// assigns its error kind.
func statusForErr(err error) int {
	switch {
	case errors.Is(err, bridge.ErrNoDE1),
		errors.Is(err, bridge.ErrNoScale),
		errors.Is(err, session.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, bridge.ErrNoSensor),
		errors.Is(err, bridge.ErrUnknownDevice):
		return http.StatusNotFound
	case errors.Is(err, bridge.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, bridge.ErrScaleReady),
		errors.Is(err, bridge.ErrScaleConnecting):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeBridgeErr(w http.ResponseWriter, err error) {
	writeError(w, statusForErr(err), err.Error())
}
