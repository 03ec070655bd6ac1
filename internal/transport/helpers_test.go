package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

func decodeRaw(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}

func frame(t *testing.T, msg Message) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return data
}

// fakeConn is an in-memory Socket. Inbound frames are pushed on in; writes
// are recorded for inspection.
type fakeConn struct {
	in chan []byte

	mu      sync.Mutex
	written [][]byte
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16)}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	data, ok := <-c.in
	if !ok {
		return nil, errors.New("connection closed")
	}
	return data, nil
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed connection")
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.in)
	}
	return nil
}

func (c *fakeConn) push(t *testing.T, msg Message) {
	t.Helper()
	c.in <- frame(t, msg)
}

// kinds returns the Type of every written frame, in write order.
func (c *fakeConn) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.written))
	for _, data := range c.written {
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		out = append(out, msg.Type)
	}
	return out
}

func (c *fakeConn) writtenMessages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, 0, len(c.written))
	for _, data := range c.written {
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// fakeDialer hands out fakeConns, or a fixed error.
type fakeDialer struct {
	mu    sync.Mutex
	err   error
	conns []*fakeConn
	dials int
}

func (d *fakeDialer) dial(_ context.Context, _ string) (Socket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}
