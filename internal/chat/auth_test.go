package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/neboloop/browserchat/internal/agents"
	"github.com/neboloop/browserchat/internal/chat/chattest"
)

func testProfile() agents.Profile {
	return agents.Profile{
		Name:                    "test",
		URL:                     "https://chat.example.com/new",
		InputSelectors:          []string{"#input-1", "#input-2", "#input-3", "#input-4", "#input-5"},
		SendSelectors:           []string{"#send-1", "#send-2"},
		ResponseSelectors:       []string{".reply-1", ".reply-2", ".reply-3"},
		LoginIndicatorSelectors: []string{"#login-1", "#login-2"},
		PostLoginSelectors:      []string{"#avatar"},
		CompletionSelectors:     []string{"#copy"},
		StreamingSelectors:      []string{"#stop"},
		LoginURLPatterns:        []string{"/login"},
		ChatURLPatterns:         []string{"/new", "/chat/"},
	}
}

func TestDetectLoginEvidenceWinsOverInput(t *testing.T) {
	p := testProfile()
	d := &Detector{ProbeTimeout: time.Second}

	// Every selector matches, including both login indicators and inputs.
	page := &chattest.Page{
		URLFunc:     func() string { return "https://chat.example.com/new" },
		VisibleFunc: func(string) bool { return true },
	}
	for i := 0; i < 25; i++ {
		assert.Equal(t, AuthNotAuthenticated, d.Detect(context.Background(), page, p))
	}
}

func TestDetectEvidenceOrder(t *testing.T) {
	p := testProfile()
	d := &Detector{ProbeTimeout: time.Second}

	tests := []struct {
		name    string
		visible []string
		url     string
		want    AuthState
	}{
		{"input visible", []string{"#input-4"}, "", AuthAuthenticated},
		{"post-login control", []string{"#avatar"}, "", AuthAuthenticated},
		{"login url", nil, "https://chat.example.com/login?next=/new", AuthNotAuthenticated},
		{"chat url", nil, "https://chat.example.com/chat/123", AuthAuthenticated},
		{"nothing at all", nil, "https://chat.example.com/other", AuthNotAuthenticated},
		{"empty url", nil, "", AuthNotAuthenticated},
		{"login indicator beats post-login", []string{"#login-2", "#avatar"}, "https://chat.example.com/new", AuthNotAuthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &chattest.Page{
				URLFunc:     func() string { return tt.url },
				VisibleFunc: chattest.Set(tt.visible...),
			}
			assert.Equal(t, tt.want, d.Detect(context.Background(), page, p))
		})
	}
}

func TestDetectSkipsURLWhenSelectorsDecide(t *testing.T) {
	page := &chattest.Page{VisibleFunc: chattest.Set("#input-1")}
	NewDetector(nil).Detect(context.Background(), page, testProfile())
	assert.Empty(t, page.CallsOf("url"))
}

func TestDetectCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := &chattest.Page{VisibleFunc: func(string) bool { return true }}
	assert.Equal(t, AuthUnknown, NewDetector(nil).Detect(ctx, page, testProfile()))
}

// Probes within a role run concurrently, so detection time tracks the
// slowest probe rather than the number of selectors.
func TestDetectLatencyDoesNotScaleWithSelectorCount(t *testing.T) {
	const delay = 100 * time.Millisecond
	d := &Detector{ProbeTimeout: time.Second}

	profileWith := func(n int) agents.Profile {
		p := testProfile()
		gen := func(prefix string) []string {
			out := make([]string, n)
			for i := range out {
				out[i] = fmt.Sprintf("%s-%d", prefix, i)
			}
			return out
		}
		p.LoginIndicatorSelectors = gen("#login")
		p.InputSelectors = gen("#input")
		p.PostLoginSelectors = gen("#post")
		return p
	}

	measure := func(n int) time.Duration {
		page := &chattest.Page{ProbeDelay: delay}
		start := time.Now()
		assert.Equal(t, AuthNotAuthenticated, d.Detect(context.Background(), page, profileWith(n)))
		return time.Since(start)
	}

	one := measure(1)
	fifty := measure(50)

	// Three sequential stages of one probe-delay each. Run serially, fifty
	// selectors would take 150 probe-delays.
	assert.Less(t, fifty, 15*delay)
	assert.Less(t, fifty, one+10*delay)
}

func TestAuthStateString(t *testing.T) {
	assert.Equal(t, "AUTHENTICATED", AuthAuthenticated.String())
	assert.Equal(t, "NOT_AUTHENTICATED", AuthNotAuthenticated.String())
	assert.Equal(t, "UNKNOWN", AuthUnknown.String())
}
