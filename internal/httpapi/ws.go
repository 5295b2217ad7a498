package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/srg/de1bridge/internal/bridge"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHandler upgrades the connection and subscribes it to channel for
// its lifetime. The read loop only exists to notice the peer closing;
// this bridge never accepts client-to-server frames on these channels.
func (a *API) wsHandler(channel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.logger.WithError(err).Debug("websocket upgrade failed")
			return
		}
		sub := a.fanout.Subscribe(channel, conn)
		defer sub.Close()
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (a *API) wsSensorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		a.wsHandler(bridge.SensorChannel(id))(w, r)
	}
}
