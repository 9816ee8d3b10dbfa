package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"

	"github.com/coder/websocket"
)

// WSDialer opens realtime channels over WebSocket.
type WSDialer struct {
	// URL is the realtime endpoint, e.g. wss://voice.example.com/v1/channel.
	URL string
}

// NewWSDialer creates a dialer for the realtime endpoint at rawURL.
func NewWSDialer(rawURL string) *WSDialer {
	return &WSDialer{URL: rawURL}
}

// OpenChannel connects to the realtime endpoint. The token authenticates the
// connection; the backend acknowledges registration with a ready event.
func (d *WSDialer) OpenChannel(ctx context.Context, token string) (Channel, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, &NetworkError{Op: "open channel", Err: err}
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, &NetworkError{Op: "open channel", Err: err}
	}

	ch := &wsChannel{
		conn:   conn,
		events: make(chan Event, 16),
	}
	go ch.readLoop()
	return ch, nil
}

// wsChannel is one open WebSocket session. Events are delivered in the
// order frames arrive on the wire; the events channel is closed when the
// connection drops.
type wsChannel struct {
	conn   *websocket.Conn
	events chan Event

	closeOnce sync.Once

	mu       sync.Mutex
	isClosed bool
}

func (c *wsChannel) Events() <-chan Event {
	return c.events
}

func (c *wsChannel) Send(ctx context.Context, f Frame) error {
	c.mu.Lock()
	closed := c.isClosed
	c.mu.Unlock()
	if closed {
		return ErrChannelClosed
	}

	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if err := c.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return &NetworkError{Op: "send frame", Err: err}
	}
	return nil
}

func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.isClosed = true
		c.mu.Unlock()
		if err := c.conn.Close(websocket.StatusNormalClosure, "session ended"); err != nil {
			slog.Debug("Failed to close realtime channel", "error", err)
		}
	})
	return nil
}

// readLoop pumps wire frames into the events channel until the
// connection terminates. Frames that do not parse are dropped with a
// debug log rather than tearing the channel down.
func (c *wsChannel) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			c.mu.Lock()
			closed := c.isClosed
			c.mu.Unlock()
			if !closed {
				slog.Debug("Realtime channel read ended", "error", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Debug("Dropping unparsable realtime frame", "error", err)
			continue
		}
		c.events <- ev
	}
}

var _ Dialer = (*WSDialer)(nil)
