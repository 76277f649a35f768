package browserchat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neboloop/browserchat/internal/chat"
	"github.com/neboloop/browserchat/internal/db"
	"github.com/neboloop/browserchat/internal/session"
	"github.com/neboloop/browserchat/internal/svc"
	"github.com/neboloop/browserchat/internal/types"
)

type SendLogic struct {
	*slog.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Send a message to an agent through its browser session
func NewSendLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SendLogic {
	return &SendLogic{
		Logger: svcCtx.Logger.With("logic", "send"),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SendLogic) Send(req *types.SendRequest) (*types.SendResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, session.ErrEmptyMessage
	}
	profile, err := l.svcCtx.Agents.Resolve(req.AgentType)
	if err != nil {
		return nil, err
	}
	if req.SessionId != "" {
		if live, ok := l.svcCtx.Sessions.Sessions().Get(req.SessionId); ok && live.Agent != profile.Name {
			return nil, fmt.Errorf("%w: session %s belongs to %s, not %s",
				ErrAgentMismatch, req.SessionId, live.Agent, profile.Name)
		}
	}

	release, ok := l.svcCtx.Limiter.TryAcquire(profile.Name)
	if !ok {
		return nil, ErrAgentBusy
	}
	defer release()

	var record *db.Exchange
	if l.svcCtx.DB != nil {
		record, err = l.svcCtx.DB.CreateExchange(l.ctx, db.Exchange{
			SessionID:         req.SessionId,
			AgentType:         profile.Name,
			ExecutorProfileID: req.ExecutorProfileId,
			Message:           message,
		})
		if err != nil {
			return nil, err
		}
	}

	// Once started, an exchange runs to completion even if the caller
	// disconnects; only process shutdown aborts it.
	exchangeCtx := context.WithoutCancel(l.ctx)

	var (
		s     *session.Session
		reply chat.Reply
	)
	if req.SessionId != "" {
		s, reply, err = l.svcCtx.Sessions.FollowUp(exchangeCtx, req.SessionId, message)
	} else {
		s, reply, err = l.svcCtx.Sessions.Start(exchangeCtx, session.Request{
			Agent:             profile.Name,
			Message:           message,
			ExecutorProfileID: req.ExecutorProfileId,
		})
	}

	persistCtx := exchangeCtx
	if err != nil {
		l.Warn("exchange failed", "agent", profile.Name, "error", err)
		if record != nil {
			if ferr := l.svcCtx.DB.FailExchange(persistCtx, record.ID, err.Error()); ferr != nil {
				l.Error("failed to record exchange failure", "id", record.ID, "error", ferr)
			}
		}
		return nil, err
	}

	resp := &types.SendResponse{
		SessionId: s.ID,
		Message:   reply.Text,
		Complete:  reply.Complete,
	}
	if record != nil {
		resp.ExecutionProcessId = record.ID
		if err := l.svcCtx.DB.CompleteExchange(persistCtx, record.ID, s.ID, reply.Text, reply.Complete); err != nil {
			l.Error("failed to record exchange", "id", record.ID, "error", err)
		}
	}
	return resp, nil
}
