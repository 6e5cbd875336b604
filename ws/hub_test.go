package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registered(t *testing.T, hub *Hub) *Client {
	t.Helper()
	c := NewClient(newFakeConn(), hub, newRecordingHandler(), "127.0.0.1:1", ClientOptions{})
	require.True(t, hub.Register(c))
	return c
}

func TestHubMembership(t *testing.T) {
	hub, _ := startHub(t)
	a := registered(t, hub)
	b := registered(t, hub)

	hub.Join(a.ID(), "r1")
	hub.Join(b.ID(), "r1")
	hub.Join(a.ID(), "r2")

	assert.ElementsMatch(t, []string{a.ID(), b.ID()}, hub.AudienceFor("r1"))
	assert.Equal(t, []string{a.ID()}, hub.AudienceFor("r2"))
	assert.Equal(t, []string{"r1", "r2"}, hub.RoomsOf(a.ID()), "joining a second room keeps the first")
	assert.ElementsMatch(t, []string{a.ID(), b.ID()}, hub.All())
	assert.Equal(t, 2, hub.ConnectionCount())

	hub.Leave(a.ID(), "r1")
	assert.Equal(t, []string{b.ID()}, hub.AudienceFor("r1"))
	assert.Equal(t, []string{"r2"}, hub.RoomsOf(a.ID()))
}

func TestHubJoinIgnoresUnknownConnection(t *testing.T) {
	hub, _ := startHub(t)

	hub.Join("ghost", "r1")

	assert.Empty(t, hub.AudienceFor("r1"))
}

func TestHubUnregisterDropsMemberships(t *testing.T) {
	hub, _ := startHub(t)
	a := registered(t, hub)
	b := registered(t, hub)
	hub.Join(a.ID(), "r1")
	hub.Join(b.ID(), "r1")

	hub.Unregister(a)

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{b.ID()}, hub.AudienceFor("r1"))
	assert.Empty(t, hub.RoomsOf(a.ID()))
	_, open := <-a.send
	assert.False(t, open, "unregister closes the send queue")
	assertSilent(t, b)
}

func TestHubDeliveryAudiences(t *testing.T) {
	hub, _ := startHub(t)
	a := registered(t, hub)
	b := registered(t, hub)
	c := registered(t, hub)
	hub.Join(a.ID(), "r1")
	hub.Join(b.ID(), "r1")
	hub.Join(c.ID(), "r2")

	t.Run("one connection", func(t *testing.T) {
		hub.ToConn(a.ID(), "room_info", map[string]string{"creatorId": "u1"})

		assert.JSONEq(t, `{"event":"room_info","data":{"creatorId":"u1"}}`, string(receive(t, a)))
		assertSilent(t, b)
		assertSilent(t, c)
	})

	t.Run("one room", func(t *testing.T) {
		hub.ToRoom("r1", "room_deleted", nil)

		assert.JSONEq(t, `{"event":"room_deleted"}`, string(receive(t, a)))
		assert.JSONEq(t, `{"event":"room_deleted"}`, string(receive(t, b)))
		assertSilent(t, c)
	})

	t.Run("everyone", func(t *testing.T) {
		hub.ToAll("update_room_list", []string{})

		for _, client := range []*Client{a, b, c} {
			assert.JSONEq(t, `{"event":"update_room_list","data":[]}`, string(receive(t, client)))
		}
	})

	t.Run("empty room", func(t *testing.T) {
		hub.ToRoom("nobody-here", "load_notes", []string{})

		assertSilent(t, a)
		assertSilent(t, b)
		assertSilent(t, c)
	})
}

func TestHubPreservesOrderPerConnection(t *testing.T) {
	hub, _ := startHub(t)
	a := registered(t, hub)

	hub.ToConn(a.ID(), "load_notes", []string{})
	hub.ToConn(a.ID(), "room_info", nil)

	assert.Contains(t, string(receive(t, a)), "load_notes")
	assert.Contains(t, string(receive(t, a)), "room_info")
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)
	slow := registered(t, hub)
	hub.Join(slow.ID(), "r1")

	for i := 0; i < sendBuffer+1; i++ {
		hub.ToRoom("r1", "load_notes", []string{})
	}

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, hub.AudienceFor("r1"))
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, cancel := startHub(t)
	a := registered(t, hub)

	cancel()
	<-hub.Done()

	for range a.send {
	}
	assert.False(t, hub.Register(unregisteredClient(hub)), "a stopped hub refuses new clients")
	hub.ToAll("update_room_list", nil) // must not block
}

func unregisteredClient(hub *Hub) *Client {
	return NewClient(newFakeConn(), hub, newRecordingHandler(), "127.0.0.1:2", ClientOptions{})
}
