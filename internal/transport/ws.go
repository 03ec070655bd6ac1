package transport

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeDeadline = 5 * time.Second
	readLimit     = 1 << 20
)

// wsSocket adapts a gorilla connection to the Socket interface.
type wsSocket struct {
	conn *websocket.Conn
}

// DialWebSocket is the default Dialer.
func DialWebSocket(ctx context.Context, url string) (Socket, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	conn.SetReadLimit(readLimit)
	return &wsSocket{conn: conn}, nil
}

func (s *wsSocket) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *wsSocket) WriteMessage(data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSocket) Close() error {
	return s.conn.Close()
}
