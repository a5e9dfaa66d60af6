package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	PingPeriod = (pongWait * 9) / 10

	// MaxMessageSize bounds one client message.
	MaxMessageSize = 8 << 10
)

// WriteTyped sends a strongly-typed payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WritePing sends a control ping.
func WritePing(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// WriteClose sends a normal closure frame.
func WriteClose(conn *websocket.Conn) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// PrepareRead applies the read limit and keeps the read deadline moving on
// every pong.
func PrepareRead(conn *websocket.Conn) {
	conn.SetReadLimit(MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// ReadRequest reads and decodes one client message.
func ReadRequest(conn *websocket.Conn) (Request, error) {
	var req Request
	err := conn.ReadJSON(&req)
	if err == nil {
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	return req, err
}
