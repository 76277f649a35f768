package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neboloop/browserchat/internal/chat"
	"github.com/neboloop/browserchat/internal/lifecycle"
	"github.com/neboloop/browserchat/internal/session"
	"github.com/neboloop/browserchat/internal/svc"
)

// Markers delimiting the reply on stdout. Everything else on stdout is one
// JSON log object per line.
const (
	ReplyBegin = "=== BROWSERCHAT RESPONSE BEGIN ==="
	ReplyEnd   = "=== BROWSERCHAT RESPONSE END ==="
)

type chatOptions struct {
	Agent     string
	Message   string
	SessionID string
}

// ChatCmd creates the chat command
func ChatCmd() *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send one message to an agent and keep the browser open",
		Long: `Send a message to a web chat agent and print its reply.

Progress is written to stdout as JSON lines. The reply is printed between
the response markers, after which the browser stays open until it is closed,
it crashes, or this process receives SIGINT/SIGTERM. Failures exit with
status 1 and a diagnostic on stderr.

Examples:
  browserchat chat --agent claude --message "ping"
  browserchat chat --agent m365 --message "Draft a status update"`,
		Run: func(cmd *cobra.Command, args []string) {
			svcCtx, err := bootstrap(os.Stdout)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(signals)

			code := runChat(context.Background(), svcCtx, opts, os.Stdout, os.Stderr, signals)
			svcCtx.Close()
			if code != 0 {
				os.Exit(code)
			}
		},
	}

	cmd.Flags().StringVar(&opts.Agent, "agent", "", "agent name (claude, m365, or one from agents.yaml)")
	cmd.Flags().StringVar(&opts.Message, "message", "", "message to send")
	cmd.Flags().StringVar(&opts.SessionID, "session-id", "", "caller's session id (a fresh browser session is always started)")
	cmd.MarkFlagRequired("agent")
	cmd.MarkFlagRequired("message")

	return cmd
}

// runChat performs one exchange and then blocks in keep-alive. It returns
// the process exit code. A signal before the reply aborts the exchange; a
// signal after it ends keep-alive.
func runChat(ctx context.Context, svcCtx *svc.ServiceContext, opts chatOptions, stdout, stderr io.Writer, signals <-chan os.Signal) int {
	logger := svcCtx.Logger
	unsubscribe := svcCtx.Events.Subscribe(func(event lifecycle.Event, data lifecycle.SessionEventData) {
		logger.Info("progress",
			"event", string(event),
			"session_id", data.SessionID,
			"agent", data.Agent,
			"state", data.State,
			"detail", data.Detail,
			"elapsed_ms", data.ElapsedMS,
		)
	})
	defer unsubscribe()

	if opts.SessionID != "" {
		logger.Info("sessions do not outlive their process; starting a fresh session", "requested_session_id", opts.SessionID)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case sig := <-signals:
			logger.Warn("interrupted before the reply arrived", "signal", sig.String())
			cancel()
		case <-stop:
		}
	}()

	s, reply, err := svcCtx.Sessions.Start(ctx, session.Request{Agent: opts.Agent, Message: opts.Message})
	close(stop)
	wg.Wait()

	if err == nil && ctx.Err() != nil {
		s.Shutdown("interrupted")
		err = ctx.Err()
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	logger.Info("reply ready",
		"session_id", s.ID,
		"complete", reply.Complete,
		"signal", string(reply.Signal),
		"attempts", reply.Attempts,
	)
	writeReply(stdout, reply)

	reason := s.KeepAlive(signals)
	logger.Info("session ended", "session_id", s.ID, "reason", reason)
	return 0
}

// writeReply prints the reply between the markers. A reply without a
// trailing newline gets one so the end marker starts its own line.
func writeReply(w io.Writer, reply chat.Reply) {
	text := reply.Text
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	fmt.Fprintf(w, "%s\n%s%s\n", ReplyBegin, text, ReplyEnd)
}
