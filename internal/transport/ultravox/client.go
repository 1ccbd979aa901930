// Package ultravox joins a serverWebSocket call and reports its state and
// transcripts through the transport contract.
package ultravox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/intervuo/internal/transport"
)

const (
	defaultConnectTimeout = 15 * time.Second
	closeGrace            = 2 * time.Second
)

var (
	_ transport.Transport  = (*Client)(nil)
	_ transport.TextSender = (*Client)(nil)
)

var ErrNotConnected = errors.New("ultravox: not connected")

type Client struct {
	dialer *websocket.Dialer
	log    *logrus.Logger

	mu            sync.Mutex
	conn          *websocket.Conn
	status        string
	entries       []transport.Transcript
	byOrdinal     map[int]int
	statusFns     []func(string)
	transcriptFns []func([]transport.Transcript)

	writeMu   sync.Mutex
	leaving   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func New(log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
	}
	return &Client{
		dialer:    &websocket.Dialer{HandshakeTimeout: defaultConnectTimeout},
		log:       log,
		status:    transport.StatusDisconnected,
		byOrdinal: map[int]int{},
		done:      make(chan struct{}),
	}
}

// Factory hands out a fresh client per join attempt.
func Factory(log *logrus.Logger) transport.Factory {
	return func() (transport.Transport, error) { return New(log), nil }
}

func (c *Client) OnStatus(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusFns = append(c.statusFns, fn)
}

func (c *Client) OnTranscripts(fn func([]transport.Transcript)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcriptFns = append(c.transcriptFns, fn)
}

func (c *Client) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) Transcripts() []transport.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]transport.Transcript(nil), c.entries...)
}

// Join dials joinURL. The client stays connecting until the agent sends
// its first data message. A failed dial leaves the client disconnected
// without reporting a status change.
func (c *Client) Join(ctx context.Context, joinURL string) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return errors.New("ultravox: already joined")
	}
	c.mu.Unlock()

	c.setStatus(transport.StatusConnecting)

	dialCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, resp, err := c.dialer.DialContext(dialCtx, joinURL, http.Header{})
	if err != nil {
		c.mu.Lock()
		c.status = transport.StatusDisconnected
		c.mu.Unlock()
		if resp != nil {
			return fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Leave closes the socket and reports disconnecting then disconnected.
// Calls after the first are no-ops.
func (c *Client) Leave() error {
	var err error
	c.closeOnce.Do(func() {
		c.leaving.Store(true)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		c.setStatus(transport.StatusDisconnecting)
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(closeGrace))
		c.writeMu.Unlock()
		if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}

		select {
		case <-c.done:
		case <-time.After(closeGrace):
		}
		c.setStatus(transport.StatusDisconnected)
	})
	return err
}

// SendText forwards typed candidate input to the agent.
func (c *Client) SendText(ctx context.Context, text string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || c.leaving.Load() {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
		defer conn.SetWriteDeadline(time.Time{})
	}
	return conn.WriteJSON(userTextMessage{Type: "user_text_message", Text: text})
}

// readLoop owns done. A read error that Leave did not cause is reported as
// an unexpected disconnect.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		close(c.done)
		if !c.leaving.Load() {
			_ = conn.Close()
			c.setStatus(transport.StatusDisconnected)
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !c.leaving.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.WithError(err).Warn("ultravox socket closed unexpectedly")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var msg dataMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.WithError(err).Debug("ignoring undecodable ultravox message")
		return
	}

	switch msg.Type {
	case "state":
		if msg.State != "" {
			c.setStatus(msg.State)
		}
	case "transcript":
		c.applyTranscript(msg)
	}
}

// applyTranscript merges one transcript message into the list. Messages with
// the same ordinal update the same utterance: text replaces, delta appends.
func (c *Client) applyTranscript(msg dataMessage) {
	c.mu.Lock()
	connecting := c.status == transport.StatusConnecting
	c.mu.Unlock()
	if connecting {
		c.setStatus(transport.StatusIdle)
	}

	c.mu.Lock()
	idx, ok := c.byOrdinal[msg.Ordinal]
	if !ok {
		c.entries = append(c.entries, transport.Transcript{Speaker: msg.Role, Medium: msg.Medium})
		idx = len(c.entries) - 1
		c.byOrdinal[msg.Ordinal] = idx
	}
	e := &c.entries[idx]
	if msg.Text != nil {
		e.Text = *msg.Text
	} else if msg.Delta != nil {
		e.Text += *msg.Delta
	}
	e.IsFinal = msg.Final
	if msg.Role != "" {
		e.Speaker = msg.Role
	}

	snapshot := append([]transport.Transcript(nil), c.entries...)
	fns := append([]func([]transport.Transcript){}, c.transcriptFns...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(append([]transport.Transcript(nil), snapshot...))
	}
}

func (c *Client) setStatus(status string) {
	c.mu.Lock()
	if c.status == status {
		c.mu.Unlock()
		return
	}
	c.status = status
	fns := append([]func(string){}, c.statusFns...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}
