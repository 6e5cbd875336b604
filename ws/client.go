// ws/client.go
package ws

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ViniZap4/lumi-board/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Conn is the part of a WebSocket connection the client pumps use. Both the
// fiber (fasthttp) and gorilla connections satisfy it.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Handler receives the lifecycle and inbound events of every connection.
// HandleEvent runs on the connection's read goroutine, so events of one
// connection are handled in order while different connections interleave.
type Handler interface {
	Connected(ctx context.Context, connID string)
	HandleEvent(ctx context.Context, connID string, env protocol.Envelope)
	Disconnected(connID string)
}

// ClientOptions bounds what a single connection may send.
type ClientOptions struct {
	MaxMessageSize int64
	RateBurst      int
	RateInterval   time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 1 << 20
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 20
	}
	if o.RateInterval <= 0 {
		o.RateInterval = time.Second
	}
	return o
}

// Client is one live WebSocket connection.
type Client struct {
	id      string
	conn    Conn
	send    chan []byte
	hub     *Hub
	handler Handler
	addr    string
	opts    ClientOptions
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewClient(conn Conn, hub *Hub, handler Handler, addr string, opts ClientOptions) *Client {
	opts = opts.withDefaults()
	id := uuid.NewString()

	return &Client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		hub:     hub,
		handler: handler,
		addr:    addr,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.RateInterval/time.Duration(opts.RateBurst)), opts.RateBurst),
		log:     log.With().Str("component", "client").Str("conn_id", id).Str("addr", addr).Logger(),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Serve runs the connection until the peer goes away or the hub stops. It
// blocks, which is what the fiber WebSocket handler expects.
func (c *Client) Serve(ctx context.Context) {
	if !c.hub.Register(c) {
		_ = c.conn.Close()
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	c.log.Info().Msg("client connected")
	c.handler.Connected(ctx, c.id)

	c.readPump(ctx)

	c.hub.Unregister(c)
	c.handler.Disconnected(c.id)
	<-writerDone
	c.log.Info().Msg("client disconnected")
}

func (c *Client) readPump(ctx context.Context) {
	defer c.closeConnection()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn().Err(err).Msg("failed to set read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.Allow() {
			c.log.Warn().Int("burst", c.opts.RateBurst).Dur("interval", c.opts.RateInterval).Msg("rate limit exceeded, event dropped")
			continue
		}

		c.dispatch(ctx, raw)
	}
}

// dispatch hands one frame to the handler. A panic in the handler costs the
// event, not the connection.
func (c *Client) dispatch(ctx context.Context, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("recovered from panic while handling event")
		}
	}()

	env, err := protocol.ParseEnvelope(raw)
	if err != nil {
		c.log.Warn().Err(err).Int("size", len(raw)).Msg("ignoring inbound frame")
		return
	}
	c.handler.HandleEvent(ctx, c.id, env)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Debug().Err(err).Msg("ping failed")
				return
			}

		case <-c.hub.Done():
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Debug().Err(err).Msg("error closing connection")
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		c.log.Debug().Err(err).Msg("client closed connection")
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Debug().Err(err).Msg("connection closed")
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.log.Warn().Err(err).Msg("unexpected close")
	default:
		c.log.Warn().Err(err).Msg("read error")
	}
}

// isExpectedCloseError reports errors that show up when either side has
// already torn the connection down.
func isExpectedCloseError(err error) bool {
	if err == nil || errors.Is(err, net.ErrClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close sent") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "i/o timeout")
}
