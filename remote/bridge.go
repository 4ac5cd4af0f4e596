// Package remote carries snapshots and commands over a websocket, so the
// engine can drive a table that lives in another process.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"holdem-autopilot/codec"
	"holdem-autopilot/engine"
	"holdem-autopilot/sim"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// the bridge only listens for local autopilots
		return true
	},
}

// Table is what a bridge exposes; *sim.Table satisfies it.
type Table interface {
	ID() string
	Next(ctx context.Context) (engine.Snapshot, error)
	Dispatch(ctx context.Context, cmd engine.Command) error
}

// Bridge serves tables to remote clients.
type Bridge struct {
	mu     sync.RWMutex
	tables map[string]Table
	conns  map[uint64]*conn
	nextID atomic.Uint64
	log    zerolog.Logger
}

func NewBridge(log zerolog.Logger, tables ...Table) *Bridge {
	b := &Bridge{
		tables: make(map[string]Table, len(tables)),
		conns:  make(map[uint64]*conn),
		log:    log.With().Str("component", "bridge").Logger(),
	}
	for _, t := range tables {
		b.tables[t.ID()] = t
	}
	return b
}

func (b *Bridge) table(id string) Table {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tables[id]
}

// Connections is the number of attached clients.
func (b *Bridge) Connections() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

func (b *Bridge) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", b.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

type conn struct {
	id     uint64
	ws     *websocket.Conn
	send   chan []byte
	bridge *Bridge
	log    zerolog.Logger
	done   chan struct{}
}

func (b *Bridge) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	c := &conn{
		id:     b.nextID.Add(1),
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		bridge: b,
		done:   make(chan struct{}),
	}
	c.log = b.log.With().Uint64("conn", c.id).Str("remote", r.RemoteAddr).Logger()

	b.mu.Lock()
	b.conns[c.id] = c
	total := len(b.conns)
	b.mu.Unlock()
	c.log.Info().Int("total", total).Msg("client connected")

	go c.writePump()
	go c.readPump()
}

func (b *Bridge) remove(c *conn) {
	b.mu.Lock()
	delete(b.conns, c.id)
	total := len(b.conns)
	b.mu.Unlock()
	c.log.Info().Int("total", total).Msg("client disconnected")
}

func (c *conn) readPump() {
	defer func() {
		c.bridge.remove(c)
		close(c.done)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("read failed")
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		c.reply(c.handle(message))
	}
}

// handle serves one request. Requests on a connection are answered in order.
func (c *conn) handle(data []byte) codec.Frame {
	req, err := codec.UnmarshalFrame(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("bad frame")
		return errorFrame(0, "", codec.CodeBadFrame, err)
	}
	t := c.bridge.table(req.Table)
	if t == nil {
		return errorFrame(req.Seq, req.Table, codec.CodeBadFrame, fmt.Errorf("unknown table %q", req.Table))
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	switch req.Kind {
	case codec.FrameCapture:
		s, err := t.Next(ctx)
		if err != nil {
			return errorFrame(req.Seq, req.Table, codec.CodeInternal, err)
		}
		return codec.Frame{Seq: req.Seq, Kind: codec.FrameSnapshot, Table: req.Table, Snapshot: s}
	case codec.FrameCommand:
		c.log.Debug().Str("table", req.Table).Stringer("command", req.Command).Msg("command")
		if err := t.Dispatch(ctx, req.Command); err != nil {
			return errorFrame(req.Seq, req.Table, errorCode(err), err)
		}
		return codec.Frame{Seq: req.Seq, Kind: codec.FrameAck, Table: req.Table}
	}
	return errorFrame(req.Seq, req.Table, codec.CodeUnsupported, fmt.Errorf("unexpected %s frame", req.Kind))
}

func (c *conn) reply(f codec.Frame) {
	f.SentAt = time.Now()
	data, err := codec.MarshalFrame(f)
	if err != nil {
		c.log.Error().Err(err).Msg("encode reply")
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func errorFrame(seq uint64, table string, code int32, err error) codec.Frame {
	return codec.Frame{Seq: seq, Kind: codec.FrameError, Table: table, Code: code, Message: err.Error()}
}

func errorCode(err error) int32 {
	switch {
	case errors.Is(err, sim.ErrOutOfTurn):
		return codec.CodeOutOfTurn
	case errors.Is(err, sim.ErrHandEnded):
		return codec.CodeHandEnded
	}
	return codec.CodeInternal
}
