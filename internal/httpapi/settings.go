package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/srg/de1bridge/internal/settingsstore"
)

func (a *API) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.settings.Get())
}

func (a *API) handleSettingsPost(w http.ResponseWriter, r *http.Request) {
	var patch settingsstore.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "malformed settings JSON")
		return
	}
	updated, err := a.settings.Update(patch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
