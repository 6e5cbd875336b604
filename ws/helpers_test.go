package ws

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/ViniZap4/lumi-board/protocol"
)

type frame struct {
	messageType int
	data        []byte
}

// fakeConn feeds frames from inbound to ReadMessage and records writes.
type fakeConn struct {
	inbound   chan []byte
	writes    chan frame
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		writes:  make(chan frame, 64),
		closed:  make(chan struct{}),
	}
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-f.inbound:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, data, nil
	case <-f.closed:
		return 0, nil, net.ErrClosed
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	f.writes <- frame{messageType: messageType, data: data}
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

type handledEvent struct {
	kind   string
	connID string
	env    protocol.Envelope
}

// recordingHandler reports every callback on a channel.
type recordingHandler struct {
	events  chan handledEvent
	onEvent func(connID string, env protocol.Envelope)
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{events: make(chan handledEvent, 64)}
}

func (h *recordingHandler) Connected(_ context.Context, connID string) {
	h.events <- handledEvent{kind: "connected", connID: connID}
}

func (h *recordingHandler) HandleEvent(_ context.Context, connID string, env protocol.Envelope) {
	if h.onEvent != nil {
		h.onEvent(connID, env)
	}
	h.events <- handledEvent{kind: "event", connID: connID, env: env}
}

func (h *recordingHandler) Disconnected(connID string) {
	h.events <- handledEvent{kind: "disconnected", connID: connID}
}

func (h *recordingHandler) next(t *testing.T) handledEvent {
	t.Helper()
	select {
	case e := <-h.events:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for handler callback")
		return handledEvent{}
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub, cancel
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send queue closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
