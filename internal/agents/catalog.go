package agents

// Builtin returns the default catalog. Selectors drift with the target UIs;
// agents.yaml can override any list without a rebuild.
func Builtin() []Profile {
	return []Profile{
		{
			Name: Claude,
			URL:  "https://claude.ai/new",
			InputSelectors: []string{
				`div[contenteditable="true"].ProseMirror`,
				`div[contenteditable="true"][aria-label*="prompt" i]`,
				`fieldset div[contenteditable="true"]`,
				`textarea[placeholder*="Claude"]`,
				`div[contenteditable="true"]`,
			},
			SendSelectors: []string{
				`button[aria-label="Send message"]`,
				`button[aria-label*="Send" i]`,
				`fieldset button[type="submit"]`,
			},
			ResponseSelectors: []string{
				`div[data-is-streaming] .font-claude-message`,
				`.font-claude-message`,
				`div[data-testid="assistant-message"]`,
			},
			LoginIndicatorSelectors: []string{
				`input[type="email"]`,
				`button[data-testid="login-with-google"]`,
				`a[href*="/login"]`,
				`text="Continue with email"`,
			},
			PostLoginSelectors: []string{
				`button[data-testid="user-menu-button"]`,
				`a[href="/new"]`,
				`nav[aria-label*="Sidebar" i]`,
			},
			CompletionSelectors: []string{
				`div[data-is-streaming="false"] button[aria-label*="Copy" i]`,
				`button[data-testid="action-bar-copy"]`,
			},
			StreamingSelectors: []string{
				`div[data-is-streaming="true"]`,
				`button[aria-label="Stop response"]`,
			},
			LoginURLPatterns: []string{"/login", "/logout", "/signup", "accounts.google.com"},
			ChatURLPatterns:  []string{"/new", "/chat/", "/project/"},
		},
		{
			Name: M365,
			URL:  "https://m365.cloud.microsoft/chat",
			InputSelectors: []string{
				`textarea[data-testid="chat-input"]`,
				`#m365-chat-editor-target-element`,
				`div[role="textbox"][contenteditable="true"]`,
				`textarea[placeholder*="Message" i]`,
				`textarea`,
			},
			SendSelectors: []string{
				`button[data-testid="sendButton"]`,
				`button[aria-label="Send"]`,
				`button[aria-label*="Submit" i]`,
			},
			ResponseSelectors: []string{
				`div[data-testid="markdown-reply"]`,
				`div[data-content="ai-message"]`,
				`.fai-CopilotMessage`,
			},
			LoginIndicatorSelectors: []string{
				`input[type="email"][name="loginfmt"]`,
				`#i0116`,
				`div[data-testid="sign-in-button"]`,
				`a[href*="login.microsoftonline.com"]`,
			},
			PostLoginSelectors: []string{
				`button[data-testid="newChatButton"]`,
				`#O365_MainLink_Me`,
				`button[aria-label*="Account manager" i]`,
			},
			CompletionSelectors: []string{
				`button[data-testid="CopyButtonTestId"]`,
				`button[aria-label="Copy"]`,
			},
			StreamingSelectors: []string{
				`button[data-testid="stop-generating-button"]`,
				`div[data-testid="typing-indicator"]`,
			},
			LoginURLPatterns: []string{"login.microsoftonline.com", "login.live.com", "/oauth2/"},
			ChatURLPatterns:  []string{"/chat", "/copilot"},
		},
	}
}
