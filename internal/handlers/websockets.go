package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// The GUI and the actuator controllers live on the local network.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHandler upgrades the request and hands the connection to s. It returns
// once the peer goes away.
func (h *Handler) wsHandler(s StreamServer, peer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Errorw("ws_upgrade_failed", "peer", peer, "err", err)
			return
		}
		h.log.Infow("ws_connected", "peer", peer, "remote", c.ClientIP())
		s.Serve(conn)
	}
}
