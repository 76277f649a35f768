package browserchat

import (
	"context"
	"log/slog"
	"time"

	"github.com/neboloop/browserchat/internal/session"
	"github.com/neboloop/browserchat/internal/svc"
	"github.com/neboloop/browserchat/internal/types"
)

type SessionLogic struct {
	*slog.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Inspect and close kept-alive sessions
func NewSessionLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SessionLogic {
	return &SessionLogic{
		Logger: svcCtx.Logger.With("logic", "session"),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SessionLogic) ListSessions() *types.ListSessionsResponse {
	live := l.svcCtx.Sessions.Sessions().List()
	resp := &types.ListSessionsResponse{Sessions: make([]types.SessionInfo, 0, len(live))}
	for _, s := range live {
		resp.Sessions = append(resp.Sessions, types.SessionInfo{
			Id:        s.ID,
			Agent:     s.Agent,
			State:     s.State().String(),
			CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp
}

func (l *SessionLogic) CloseSession(req *types.CloseSessionRequest) error {
	s, ok := l.svcCtx.Sessions.Sessions().Get(req.Id)
	if !ok {
		return &session.SessionTerminatedError{SessionID: req.Id}
	}
	s.Shutdown("closed by request")
	l.Info("session closed", "session", s.ID, "agent", s.Agent)
	return nil
}

func (l *SessionLogic) ListAgents() *types.ListAgentsResponse {
	profiles := l.svcCtx.Agents.Profiles()
	resp := &types.ListAgentsResponse{Agents: make([]types.AgentInfo, 0, len(profiles))}
	for _, p := range profiles {
		resp.Agents = append(resp.Agents, types.AgentInfo{Name: p.Name, URL: p.URL})
	}
	return resp
}
