package transport

import (
	"net/http"

	"nhooyr.io/websocket"

	"github.com/obbygo/obbygo/pkg/logger"
)

// ServeHTTP upgrades every request to a WebSocket and runs one Conn against
// it to completion. There is a single socket endpoint: which documents a
// connection touches is negotiated after login, over the wire, not via the
// URL.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		logger.Error("transport: websocket upgrade failed: %v", err)
		return
	}
	defer ws.Close(websocket.StatusInternalError, "")

	conn := NewConn(h, ws)
	if err := conn.Handle(r.Context()); err != nil {
		logger.Error("transport: connection error: %v", err)
		ws.Close(websocket.StatusInternalError, "")
		return
	}
	ws.Close(websocket.StatusNormalClosure, "")
}
