package httpapi

import (
	"net/http"
)

func (a *API) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.bridge.Devices())
}

func (a *API) handleDevicesScan(w http.ResponseWriter, r *http.Request) {
	timeout := scanTimeout
	if r.URL.Query().Get("quick") == "true" {
		timeout = scanTimeoutQuick
	}
	if err := a.bridge.Scan(r.Context(), timeout); err != nil {
		a.logger.WithError(err).Warn("scan failed to start")
	}
	writeJSON(w, http.StatusOK, []struct{}{})
}

func (a *API) handleDevicesDiscovered(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.bridge.DiscoveredDevices())
}

func (a *API) handleDevicesConnect(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("deviceId")
	if addr == "" {
		writeError(w, http.StatusBadRequest, "missing deviceId")
		return
	}
	if err := a.bridge.ConnectDevice(r.Context(), addr); err != nil {
		a.writeBridgeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{})
}
