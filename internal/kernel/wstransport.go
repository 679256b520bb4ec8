package kernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WSTransport speaks Message envelopes as JSON frames over a websocket, the
// shape a kernel gateway exposes. It satisfies Transport: one writer guarded
// by a mutex, one reader goroutine delivering into the OnReceive handler.
type WSTransport struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu           sync.Mutex
	onReceive    func(Message)
	onDisconnect func(error)
	closed       bool
}

// Dial connects to a kernel endpoint and starts the read loop.
func Dial(ctx context.Context, url string) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial kernel %s: %w", url, err)
	}
	t := &WSTransport{conn: conn}
	go t.readLoop()
	return t, nil
}

// Send writes the envelope as one JSON frame and returns its message id.
func (t *WSTransport) Send(msg Message) (string, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteJSON(msg); err != nil {
		return "", fmt.Errorf("write frame: %w", err)
	}
	return msg.ID, nil
}

// OnReceive installs the inbound message handler.
func (t *WSTransport) OnReceive(fn func(Message)) {
	t.mu.Lock()
	t.onReceive = fn
	t.mu.Unlock()
}

// OnDisconnect installs the handler invoked once when the connection drops.
func (t *WSTransport) OnDisconnect(fn func(error)) {
	t.mu.Lock()
	t.onDisconnect = fn
	t.mu.Unlock()
}

// Close tears the connection down. The read loop's disconnect notification
// is suppressed for a deliberate close.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	already := t.closed
	t.closed = true
	t.mu.Unlock()
	if already {
		return nil
	}
	return t.conn.Close()
}

func (t *WSTransport) readLoop() {
	for {
		var msg Message
		if err := t.conn.ReadJSON(&msg); err != nil {
			t.mu.Lock()
			deliberate := t.closed
			t.closed = true
			fn := t.onDisconnect
			t.mu.Unlock()
			if !deliberate && fn != nil {
				fn(err)
			}
			return
		}
		t.mu.Lock()
		fn := t.onReceive
		t.mu.Unlock()
		if fn != nil {
			fn(msg)
		}
	}
}
