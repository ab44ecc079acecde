package live

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks happen in the CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSWriter frames events as JSON text messages.
type WSWriter struct {
	conn *websocket.Conn
}

func NewWSWriter(conn *websocket.Conn) *WSWriter {
	return &WSWriter{conn: conn}
}

func (w *WSWriter) WriteEvent(ev Event) error {
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(ev)
}

func (w *WSWriter) Heartbeat() error {
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// ServeWs upgrades the request and attaches the connection to a new stream.
// Client messages are discarded; a read error closes the stream.
func ServeWs(reg *Registry, w http.ResponseWriter, r *http.Request, subscriberID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		reg.logger.Warn("websocket upgrade failed", "subscriber_id", subscriberID, "error", err)
		return
	}
	defer conn.Close()

	stream := reg.Subscribe(subscriberID, r.URL.Query().Get("lastEventId"))
	go readPump(conn, stream)

	if err := stream.Run(r.Context(), NewWSWriter(conn), reg.Heartbeat()); err == nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, stream.State().String()),
			time.Now().Add(writeWait))
	}
}

func readPump(conn *websocket.Conn, stream *Stream) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			stream.Close()
			return
		}
	}
}
