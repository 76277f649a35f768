package browserchat

import (
	"net/http"

	"github.com/neboloop/browserchat/internal/httputil"
	logic "github.com/neboloop/browserchat/internal/logic/browserchat"
	"github.com/neboloop/browserchat/internal/svc"
	"github.com/neboloop/browserchat/internal/types"
)

// List kept-alive sessions
func ListSessionsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewSessionLogic(r.Context(), svcCtx)
		httputil.Success(w, l.ListSessions())
	}
}

// Close a kept-alive session
func CloseSessionHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CloseSessionRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := logic.NewSessionLogic(r.Context(), svcCtx)
		if err := l.CloseSession(&req); err != nil {
			writeError(w, err)
		} else {
			httputil.Success(w, map[string]string{"sessionId": req.Id})
		}
	}
}

// List configured agents
func ListAgentsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewSessionLogic(r.Context(), svcCtx)
		httputil.Success(w, l.ListAgents())
	}
}
