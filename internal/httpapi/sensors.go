package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/srg/de1bridge/internal/bridge"
)

func (a *API) handleSensors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.bridge.Sensors())
}

func (a *API) handleSensor(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, ok := a.bridge.SensorSnapshot(id)
	if !ok {
		a.writeBridgeErr(w, bridge.ErrNoSensor)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
