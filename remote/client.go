package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"holdem-autopilot/codec"
	"holdem-autopilot/engine"
	"holdem-autopilot/sim"
)

var ErrClosed = errors.New("remote: connection closed")

// Error is a failure reported by the far side.
type Error struct {
	Code    int32
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("remote error %d: %s", e.Code, e.Message) }

// Is maps table errors back to the sentinels the bridge translated.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case codec.CodeOutOfTurn:
		return target == sim.ErrOutOfTurn
	case codec.CodeHandEnded:
		return target == sim.ErrHandEnded
	}
	return false
}

// Client talks to one table behind a bridge. It is both the engine's
// snapshot source and its actuator.
type Client struct {
	table string
	ws    *websocket.Conn
	log   zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	seq     uint64
	pending map[uint64]chan codec.Frame
	err     error
	done    chan struct{}
}

// Dial connects to a bridge at url (ws://host/ws) for the given table.
func Dial(ctx context.Context, url, table string, log zerolog.Logger) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", url, err)
	}
	c := &Client{
		table:   table,
		ws:      ws,
		log:     log.With().Str("table", table).Str("bridge", url).Logger(),
		pending: make(map[uint64]chan codec.Frame),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) ID() string { return c.table }

func (c *Client) Close() error {
	c.writeMu.Lock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.ws.WriteMessage(websocket.CloseMessage, msg)
	c.writeMu.Unlock()
	return c.ws.Close()
}

// Next asks the table for a capture.
func (c *Client) Next(ctx context.Context) (engine.Snapshot, error) {
	f, err := c.roundTrip(ctx, codec.Frame{Kind: codec.FrameCapture})
	if err != nil {
		return engine.Snapshot{}, err
	}
	if f.Kind != codec.FrameSnapshot {
		return engine.Snapshot{}, fmt.Errorf("remote: expected snapshot, got %s", f.Kind)
	}
	return f.Snapshot, nil
}

// Dispatch delivers a command and waits for the table to take it.
func (c *Client) Dispatch(ctx context.Context, cmd engine.Command) error {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}
	f, err := c.roundTrip(ctx, codec.Frame{Kind: codec.FrameCommand, Command: cmd})
	if err != nil {
		return err
	}
	if f.Kind != codec.FrameAck {
		return fmt.Errorf("remote: expected ack, got %s", f.Kind)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req codec.Frame) (codec.Frame, error) {
	ch := make(chan codec.Frame, 1)
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return codec.Frame{}, c.err
	}
	c.seq++
	req.Seq = c.seq
	c.pending[req.Seq] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, req.Seq)
		c.mu.Unlock()
	}()

	req.Table = c.table
	req.SentAt = time.Now()
	data, err := codec.MarshalFrame(req)
	if err != nil {
		return codec.Frame{}, err
	}
	c.writeMu.Lock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	err = c.ws.WriteMessage(websocket.BinaryMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return codec.Frame{}, fmt.Errorf("remote: send %s: %w", req.Kind, err)
	}

	select {
	case f := <-ch:
		if f.Kind == codec.FrameError {
			return f, &Error{Code: f.Code, Message: f.Message}
		}
		return f, nil
	case <-c.done:
		return codec.Frame{}, c.closedErr()
	case <-ctx.Done():
		return codec.Frame{}, ctx.Err()
	}
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		messageType, message, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.err = fmt.Errorf("%w: %v", ErrClosed, err)
			c.mu.Unlock()
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		f, err := codec.UnmarshalFrame(message)
		if err != nil {
			c.log.Warn().Err(err).Msg("bad frame from bridge")
			continue
		}
		c.mu.Lock()
		ch := c.pending[f.Seq]
		c.mu.Unlock()
		if ch == nil {
			c.log.Debug().Uint64("seq", f.Seq).Stringer("kind", f.Kind).Msg("reply without a request")
			continue
		}
		ch <- f
	}
}
