package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/srg/de1bridge/internal/bridge"
	"github.com/srg/de1bridge/internal/de1proto"
)

type machineInfo struct {
	Version      string `json:"version"`
	Model        string `json:"model"`
	SerialNumber string `json:"serialNumber"`
	GHC          bool   `json:"GHC"`
}

func (a *API) handleMachineInfo(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.bridge.MachineSnapshot()
	if !ok {
		a.writeBridgeErr(w, bridge.ErrNoDE1)
		return
	}
	writeJSON(w, http.StatusOK, machineInfo{
		Version:      snap.Firmware,
		Model:        snap.Model,
		SerialNumber: snap.Serial,
		GHC:          snap.HasGHC,
	})
}

func (a *API) handleMachineState(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.bridge.MachineSnapshot()
	if !ok {
		a.writeBridgeErr(w, bridge.ErrNoDE1)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleMachineStateSet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := a.bridge.RequestMachineState(r.Context(), name); err != nil {
		a.writeBridgeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

func (a *API) handleMachineProfile(w http.ResponseWriter, r *http.Request) {
	var p de1proto.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "malformed profile JSON")
		return
	}
	if err := a.bridge.UploadProfile(r.Context(), p); err != nil {
		a.writeBridgeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

type machineSettingsBody struct {
	USB *bool  `json:"usb,omitempty"`
	Fan *uint8 `json:"fan,omitempty"`
}

func (a *API) handleMachineSettingsGet(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.bridge.MachineSnapshot()
	if !ok {
		a.writeBridgeErr(w, bridge.ErrNoDE1)
		return
	}
	writeJSON(w, http.StatusOK, machineSettingsBody{USB: &snap.USBChargerOn, Fan: &snap.FanThresholdC})
}

func (a *API) handleMachineSettingsPost(w http.ResponseWriter, r *http.Request) {
	var body machineSettingsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed settings JSON")
		return
	}
	err := a.bridge.SetMachineSettings(r.Context(), bridge.MachineSettingsPatch{
		USBCharger:    body.USB,
		FanThresholdC: body.Fan,
	})
	if err != nil {
		a.writeBridgeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{})
}

type shotSettingsBody struct {
	SteamMode         *uint8   `json:"steamMode,omitempty"`
	SteamTargetC      *uint8   `json:"steamTargetC,omitempty"`
	SteamDurationS    *uint8   `json:"steamDurationS,omitempty"`
	HotWaterTargetC   *uint8   `json:"hotWaterTargetC,omitempty"`
	HotWaterVolumeML  *uint8   `json:"hotWaterVolumeMl,omitempty"`
	HotWaterDurationS *uint8   `json:"hotWaterDurationS,omitempty"`
	ShotVolumeML      *uint8   `json:"shotVolumeMl,omitempty"`
	GroupTargetC      *float64 `json:"groupTargetC,omitempty"`
}

func (a *API) handleShotSettingsGet(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.bridge.MachineSnapshot()
	if !ok {
		a.writeBridgeErr(w, bridge.ErrNoDE1)
		return
	}
	writeJSON(w, http.StatusOK, snap.ShotSettings)
}

func (a *API) handleShotSettingsPost(w http.ResponseWriter, r *http.Request) {
	var body shotSettingsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed shot settings JSON")
		return
	}
	merged, err := a.bridge.SetShotSettings(r.Context(), bridge.ShotSettingsPatch{
		SteamMode:         body.SteamMode,
		SteamTargetC:      body.SteamTargetC,
		SteamDurationS:    body.SteamDurationS,
		HotWaterTargetC:   body.HotWaterTargetC,
		HotWaterVolumeML:  body.HotWaterVolumeML,
		HotWaterDurationS: body.HotWaterDurationS,
		ShotVolumeML:      body.ShotVolumeML,
		GroupTargetC:      body.GroupTargetC,
	})
	if err != nil {
		a.writeBridgeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

type waterLevelsBody struct {
	CurrentLevel uint16 `json:"currentLevel"`
	RefillLevel  uint16 `json:"refillLevel"`
}

func (a *API) handleWaterLevels(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.bridge.MachineSnapshot()
	if !ok {
		a.writeBridgeErr(w, bridge.ErrNoDE1)
		return
	}
	writeJSON(w, http.StatusOK, waterLevelsBody{
		CurrentLevel: snap.WaterLevelMM,
		RefillLevel:  snap.WaterStartLevelMM,
	})
}
