// Package agents holds the catalog of browser-based chat services that
// browserchat knows how to drive.
//
// A Profile is pure data: a navigation URL plus ordered selector lists for
// each UI role. Lists are ordered by confidence, and callers walk them with
// an explicit fallback policy (first match or race), never by scoring.
package agents

import (
	"errors"
	"fmt"
	"strings"
)

// Agent names shipped in the built-in catalog.
const (
	Claude = "claude"
	M365   = "m365"
)

// Profile describes one target chat service.
type Profile struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`

	// The four required roles. Each must carry at least one selector.
	InputSelectors          []string `yaml:"input_selectors" json:"inputSelectors"`
	SendSelectors           []string `yaml:"send_selectors" json:"sendSelectors"`
	ResponseSelectors       []string `yaml:"response_selectors" json:"responseSelectors"`
	LoginIndicatorSelectors []string `yaml:"login_indicator_selectors" json:"loginIndicatorSelectors"`

	// Secondary evidence that only renders for a signed-in user
	// (profile menu, "new chat" control).
	PostLoginSelectors []string `yaml:"post_login_selectors,omitempty" json:"postLoginSelectors,omitempty"`

	// CompletionSelectors render once a reply finished streaming (copy button).
	CompletionSelectors []string `yaml:"completion_selectors,omitempty" json:"completionSelectors,omitempty"`

	// StreamingSelectors are visible while a reply is still being generated
	// (stop button, typing dots).
	StreamingSelectors []string `yaml:"streaming_selectors,omitempty" json:"streamingSelectors,omitempty"`

	// URL substrings used as the last-resort authentication heuristic.
	LoginURLPatterns []string `yaml:"login_url_patterns,omitempty" json:"loginUrlPatterns,omitempty"`
	ChatURLPatterns  []string `yaml:"chat_url_patterns,omitempty" json:"chatUrlPatterns,omitempty"`
}

// Validate checks the invariants every profile must satisfy before use.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("agent profile has no name")
	}
	if strings.TrimSpace(p.URL) == "" {
		return fmt.Errorf("agent %q has no url", p.Name)
	}
	roles := []struct {
		role string
		list []string
	}{
		{"input_selectors", p.InputSelectors},
		{"send_selectors", p.SendSelectors},
		{"response_selectors", p.ResponseSelectors},
		{"login_indicator_selectors", p.LoginIndicatorSelectors},
	}
	for _, r := range roles {
		if len(r.list) == 0 {
			return fmt.Errorf("agent %q: %s must have at least one selector", p.Name, r.role)
		}
	}
	return nil
}

// merge overlays non-empty fields of o onto p.
func (p Profile) merge(o Profile) Profile {
	if o.URL != "" {
		p.URL = o.URL
	}
	pick := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = append([]string(nil), src...)
		}
	}
	pick(&p.InputSelectors, o.InputSelectors)
	pick(&p.SendSelectors, o.SendSelectors)
	pick(&p.ResponseSelectors, o.ResponseSelectors)
	pick(&p.LoginIndicatorSelectors, o.LoginIndicatorSelectors)
	pick(&p.PostLoginSelectors, o.PostLoginSelectors)
	pick(&p.CompletionSelectors, o.CompletionSelectors)
	pick(&p.StreamingSelectors, o.StreamingSelectors)
	pick(&p.LoginURLPatterns, o.LoginURLPatterns)
	pick(&p.ChatURLPatterns, o.ChatURLPatterns)
	return p
}

// ErrUnknownAgent is matched by errors.Is for every UnknownAgentError.
var ErrUnknownAgent = errors.New("unknown agent")

// UnknownAgentError reports a lookup for an agent that is not in the catalog.
type UnknownAgentError struct {
	Name  string
	Known []string
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("unknown agent %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

func (e *UnknownAgentError) Is(target error) bool { return target == ErrUnknownAgent }
