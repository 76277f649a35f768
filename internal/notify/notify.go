// Package notify raises a desktop notification when a session is waiting
// for the user to sign in, since the browser window may be behind others.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/neboloop/browserchat/internal/lifecycle"
)

// Sender displays one notification.
type Sender func(ctx context.Context, title, body string) error

// Send displays a native OS notification. Platforms without a notifier
// return nil.
func Send(ctx context.Context, title, body string) error {
	title = sanitize(title)
	body = sanitize(body)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, body, title)
		cmd = exec.CommandContext(ctx, "osascript", "-e", script)
	case "linux":
		cmd = exec.CommandContext(ctx, "notify-send", "--app-name=browserchat", title, body)
	case "windows":
		ps := fmt.Sprintf(`
[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] > $null
$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
$textNodes = $template.GetElementsByTagName('text')
$textNodes.Item(0).AppendChild($template.CreateTextNode('%s')) > $null
$textNodes.Item(1).AppendChild($template.CreateTextNode('%s')) > $null
$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('browserchat').Show($toast)
`, title, body)
		cmd = exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", ps)
	default:
		return nil
	}
	return cmd.Run()
}

// sanitize strips characters that break the platform quoting.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "'", "’")
	s = strings.ReplaceAll(s, "\\", "")
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}

// LoginPrompts notifies once per login_required event. A nil send uses Send.
func LoginPrompts(events *lifecycle.Manager, send Sender, logger *slog.Logger) {
	if send == nil {
		send = Send
	}
	if logger == nil {
		logger = slog.Default()
	}
	events.On(lifecycle.EventLoginRequired, func(_ lifecycle.Event, data lifecycle.SessionEventData) {
		title, body := loginMessage(data)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := send(ctx, title, body); err != nil {
				logger.Debug("desktop notification failed", "error", err)
			}
		}()
	})
}

func loginMessage(data lifecycle.SessionEventData) (title, body string) {
	title = "Sign in to " + data.Agent
	body = "browserchat is waiting for you to sign in in the browser window."
	if data.Detail != "" {
		body = data.Detail
	}
	return title, body
}
