package websocket

import (
	"context"
	"testing"
	"time"

	"lifeline/models"
	"lifeline/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	return hub
}

// detach unregisters clients and waits for their rooms to empty before shutting the hub down
func detach(t *testing.T, hub *Hub, clients ...*Client) {
	t.Helper()
	for _, c := range clients {
		hub.unregister <- c
	}
	for _, c := range clients {
		sessionID := c.sessionID
		require.Eventually(t, func() bool { return !hub.HasListeners(sessionID) }, time.Second, 5*time.Millisecond)
	}
	hub.Shutdown()
}

func receive(t *testing.T, c *Client) models.WSMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return models.WSMessage{}
	}
}

func TestRoomBroadcastDropsForFullClients(t *testing.T) {
	room := NewRoom("session-1")
	fast := newTestClient(nil, "session-1", 4)
	slow := newTestClient(nil, "session-1", 1)
	slow.send <- models.WSMessage{Type: "filler"}

	room.AddClient(fast)
	room.AddClient(slow)
	room.AddClient(fast)
	room.AddClient(nil)
	assert.Equal(t, 2, room.GetClientCount())

	delivered, dropped := room.Broadcast(models.WSMessage{Type: models.WSTypeWizardState})
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, models.WSTypeWizardState, (<-fast.send).Type)

	room.RemoveClient(fast)
	room.RemoveClient(slow)
	assert.True(t, room.IsEmpty())
}

func TestHubShutdownClosesRegisteredClients(t *testing.T) {
	hub := startTestHub(t)
	c := newTestClient(nil, "session-1", 2)
	hub.register <- c
	require.Eventually(t, func() bool { return hub.HasListeners("session-1") }, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, hub.Shutdown)
	assert.False(t, c.SendMessage(models.WSMessage{Type: models.WSTypePong}))
}

func TestSendMessageAfterClose(t *testing.T) {
	c := newTestClient(nil, "session-1", 1)
	c.closeSend()
	c.closeSend()

	assert.False(t, c.SendMessage(models.WSMessage{Type: models.WSTypePong}))
}

func TestHubBroadcastsOnlyToSessionRoom(t *testing.T) {
	hub := startTestHub(t)
	a := newTestClient(nil, "session-a", 4)
	b := newTestClient(nil, "session-b", 4)
	hub.Register(a)
	hub.Register(b)
	defer detach(t, hub, a, b)

	require.Eventually(t, func() bool {
		return hub.HasListeners("session-a") && hub.HasListeners("session-b")
	}, time.Second, 10*time.Millisecond)

	hub.PublishSnapshot(models.WizardSnapshot{SessionID: "session-a"})

	msg := receive(t, a)
	assert.Equal(t, models.WSTypeWizardState, msg.Type)
	assert.Equal(t, "session-a", msg.SessionID)
	assert.Empty(t, b.send)

	stats := hub.GetStats()
	assert.Equal(t, 2, stats.ActiveConnections)
	assert.Equal(t, 2, stats.ActiveRooms)
}

func TestHubUnregisterRemovesEmptyRoom(t *testing.T) {
	hub := startTestHub(t)
	defer hub.Shutdown()

	c := newTestClient(nil, "session-a", 1)
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.HasListeners("session-a") }, time.Second, 10*time.Millisecond)

	hub.unregister <- c
	require.Eventually(t, func() bool { return !hub.HasListeners("session-a") }, time.Second, 10*time.Millisecond)

	_, open := <-c.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.GetStats().ActiveRooms)
}

func TestSpeechSink(t *testing.T) {
	hub := startTestHub(t)
	sink := hub.SpeechSink("session-a")

	err := sink.Speak(context.Background(), services.SpeechRequest{Text: "Press hard"})
	assert.ErrorIs(t, err, ErrNoListeners)

	c := newTestClient(nil, "session-a", 4)
	hub.Register(c)
	defer detach(t, hub, c)
	require.Eventually(t, func() bool { return hub.HasListeners("session-a") }, time.Second, 10*time.Millisecond)

	require.NoError(t, sink.Speak(context.Background(), services.SpeechRequest{Text: "Press hard", LanguageTag: "en-IN"}))

	msg := receive(t, c)
	require.Equal(t, models.WSTypeSpeechRequest, msg.Type)
	speech, ok := msg.Data.(models.WSSpeechRequest)
	require.True(t, ok)
	assert.Equal(t, "Press hard", speech.Text)
	assert.Equal(t, "en-IN", speech.Language)
}
