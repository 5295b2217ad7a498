package httpapi

import "net/http"

func (a *API) handleScaleTare(w http.ResponseWriter, r *http.Request) {
	if err := a.bridge.TareScale(r.Context()); err != nil {
		a.writeBridgeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

func (a *API) handleScaleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := a.bridge.DisconnectScale(); err != nil {
		a.writeBridgeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

// handleScaleWeightHistory is a diagnostics endpoint: it drains the
// raw weight samples the scale's flow estimator has logged since the
// last call, for troubleshooting noisy or jumpy flow readings.
func (a *API) handleScaleWeightHistory(w http.ResponseWriter, r *http.Request) {
	history, err := a.bridge.ScaleWeightHistory()
	if err != nil {
		a.writeBridgeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
