package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/browserchat/internal/lifecycle"
)

func TestFilterMatch(t *testing.T) {
	data := lifecycle.SessionEventData{SessionID: "s1", Agent: "claude"}

	assert.True(t, Filter{}.match(data))
	assert.True(t, Filter{SessionID: "s1"}.match(data))
	assert.True(t, Filter{Agent: "claude", SessionID: "s1"}.match(data))
	assert.False(t, Filter{SessionID: "s2"}.match(data))
	assert.False(t, Filter{Agent: "m365"}.match(data))
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandlerStreamsFilteredEvents(t *testing.T) {
	events := lifecycle.New(nil)
	ts := httptest.NewServer(Handler(events, nil))
	defer ts.Close()

	conn := dial(t, ts.URL+"?agent=claude")

	// Subscription happens after the upgrade; keep emitting until it lands.
	got := make(chan Message, 1)
	go func() {
		var msg Message
		if err := conn.ReadJSON(&msg); err == nil {
			got <- msg
		}
	}()
	deadline := time.After(5 * time.Second)
	for {
		events.Emit(lifecycle.EventKeepAlive, lifecycle.SessionEventData{SessionID: "other", Agent: "m365"})
		events.Emit(lifecycle.EventReplyReceived, lifecycle.SessionEventData{SessionID: "s1", Agent: "claude"})
		select {
		case msg := <-got:
			assert.Equal(t, "event", msg.Type)
			assert.Equal(t, lifecycle.EventReplyReceived, msg.Event)
			require.NotNil(t, msg.Data)
			assert.Equal(t, "s1", msg.Data.SessionID)
			return
		case <-deadline:
			t.Fatal("no event received")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestHandlerAnswersPing(t *testing.T) {
	events := lifecycle.New(nil)
	ts := httptest.NewServer(Handler(events, nil))
	defer ts.Close()

	conn := dial(t, ts.URL)
	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)
}
