package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and runs it as a hub client until the
// connection closes. originPatterns are host patterns allowed in the Origin
// header; an empty list accepts only same-origin requests.
func HandleWebSocket(hub *Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			hub.logger.Warn("accept websocket", "remote", r.RemoteAddr, "error", err)
			return
		}
		conn.SetReadLimit(readLimit)

		client := NewClient(hub, conn)
		client.Run(r.Context())
	}
}
