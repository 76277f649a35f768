package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/browserchat/internal/lifecycle"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "it’s", sanitize("it's"))
	assert.Equal(t, "ab", sanitize(`a\b`))

	long := sanitize(strings.Repeat("x", 300))
	assert.Len(t, long, 259)
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestLoginPromptsNotifiesOnLoginRequired(t *testing.T) {
	events := lifecycle.New(nil)
	got := make(chan [2]string, 1)
	LoginPrompts(events, func(_ context.Context, title, body string) error {
		got <- [2]string{title, body}
		return nil
	}, nil)

	events.Emit(lifecycle.EventReplyReceived, lifecycle.SessionEventData{Agent: "claude"})
	events.Emit(lifecycle.EventLoginRequired, lifecycle.SessionEventData{Agent: "claude"})

	select {
	case msg := <-got:
		assert.Equal(t, "Sign in to claude", msg[0])
		assert.Contains(t, msg[1], "sign in")
	case <-time.After(2 * time.Second):
		t.Fatal("no notification sent")
	}
	require.Len(t, got, 0)
}
