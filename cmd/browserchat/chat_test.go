package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/browserchat/internal/agents"
	"github.com/neboloop/browserchat/internal/browser"
	"github.com/neboloop/browserchat/internal/chat"
	"github.com/neboloop/browserchat/internal/chat/chattest"
	"github.com/neboloop/browserchat/internal/config"
	"github.com/neboloop/browserchat/internal/logging"
	"github.com/neboloop/browserchat/internal/session/sessiontest"
	"github.com/neboloop/browserchat/internal/svc"
)

// syncBuffer is a bytes.Buffer safe for the logger's concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestService(t *testing.T, out *syncBuffer) (*svc.ServiceContext, *sessiontest.Launcher) {
	t.Helper()
	launcher := &sessiontest.Launcher{
		NewPage: func(p agents.Profile) chat.Page { return chattest.EchoPage(p) },
	}
	logger := logging.New(out, logging.Options{Level: "info"})
	svcCtx, err := svc.NewServiceContext(config.Config{}, t.TempDir(), logger,
		svc.WithLauncher(launcher), svc.WithClock(chattest.NewClock()))
	require.NoError(t, err)
	t.Cleanup(svcCtx.Close)
	return svcCtx, launcher
}

func TestWriteReply(t *testing.T) {
	var buf bytes.Buffer
	writeReply(&buf, chat.Reply{Text: "hello"})
	assert.Equal(t, ReplyBegin+"\nhello\n"+ReplyEnd+"\n", buf.String())

	buf.Reset()
	writeReply(&buf, chat.Reply{Text: "line one\nline two\n"})
	assert.Equal(t, ReplyBegin+"\nline one\nline two\n"+ReplyEnd+"\n", buf.String())

	buf.Reset()
	writeReply(&buf, chat.Reply{})
	assert.Equal(t, ReplyBegin+"\n\n"+ReplyEnd+"\n", buf.String())
}

func TestRunChatPrintsReplyAndKeepsAlive(t *testing.T) {
	var stdout, stderr syncBuffer
	svcCtx, launcher := newTestService(t, &stdout)

	signals := make(chan os.Signal, 1)
	done := make(chan int, 1)
	go func() {
		done <- runChat(context.Background(), svcCtx, chatOptions{Agent: "claude", Message: "ping"}, &stdout, &stderr, signals)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), ReplyEnd)
	}, 5*time.Second, 10*time.Millisecond)

	// Still alive until signalled.
	select {
	case <-done:
		t.Fatal("runChat returned before a signal")
	case <-time.After(50 * time.Millisecond):
	}

	signals <- syscall.SIGTERM
	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("runChat did not return after SIGTERM")
	}

	out := stdout.String()
	assert.Contains(t, out, ReplyBegin+"\necho: ping\n"+ReplyEnd)
	assert.Contains(t, out, `"msg":"progress"`)
	assert.Contains(t, out, `"msg":"reply ready"`)
	assert.Empty(t, stderr.String())

	browsers := launcher.Browsers()
	require.Len(t, browsers, 1)
	assert.Equal(t, 1, browsers[0].Closes())
}

func TestRunChatBrowserExitEndsKeepAlive(t *testing.T) {
	var stdout, stderr syncBuffer
	svcCtx, launcher := newTestService(t, &stdout)

	done := make(chan int, 1)
	go func() {
		done <- runChat(context.Background(), svcCtx, chatOptions{Agent: "claude", Message: "ping"}, &stdout, &stderr, nil)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), ReplyEnd)
	}, 5*time.Second, 10*time.Millisecond)

	launcher.Browsers()[0].Terminate("browser closed")
	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("runChat did not return after the browser closed")
	}
	assert.Contains(t, stdout.String(), `"msg":"session ended"`)
}

func TestRunChatUnknownAgent(t *testing.T) {
	var stdout, stderr syncBuffer
	svcCtx, launcher := newTestService(t, &stdout)

	code := runChat(context.Background(), svcCtx, chatOptions{Agent: "nope", Message: "ping"}, &stdout, &stderr, nil)
	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(stderr.String(), "error: "))
	assert.Contains(t, stderr.String(), "nope")
	assert.NotContains(t, stdout.String(), ReplyBegin)
	assert.Empty(t, launcher.Browsers())
}

func TestRunChatIgnoresSessionID(t *testing.T) {
	var stdout, stderr syncBuffer
	svcCtx, launcher := newTestService(t, &stdout)

	done := make(chan int, 1)
	go func() {
		done <- runChat(context.Background(), svcCtx, chatOptions{Agent: "claude", Message: "hi", SessionID: "abc"}, &stdout, &stderr, nil)
	}()
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), ReplyEnd)
	}, 5*time.Second, 10*time.Millisecond)
	launcher.Browsers()[0].Terminate("browser closed")
	<-done

	assert.Contains(t, stdout.String(), `"requested_session_id":"abc"`)
}

func TestWriteHealth(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHealth(&buf, browser.Health{Healthy: true, Message: "browser available"}))
	assert.Contains(t, buf.String(), `"healthy": true`)

	buf.Reset()
	err := writeHealth(&buf, browser.Health{Message: "no supported browser found"})
	assert.ErrorIs(t, err, errUnhealthy)
	assert.Contains(t, buf.String(), `"healthy": false`)
}

func TestListAgents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listAgents(&buf, agents.Default(), false))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "NAME"))
	assert.Contains(t, out, "claude")
	assert.Contains(t, out, "m365")

	buf.Reset()
	require.NoError(t, listAgents(&buf, agents.Default(), true))
	assert.Contains(t, buf.String(), "https://claude.ai")
}
