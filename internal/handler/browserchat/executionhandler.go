package browserchat

import (
	"net/http"

	"github.com/neboloop/browserchat/internal/httputil"
	logic "github.com/neboloop/browserchat/internal/logic/browserchat"
	"github.com/neboloop/browserchat/internal/svc"
	"github.com/neboloop/browserchat/internal/types"
)

// Get one recorded exchange
func GetExecutionHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.GetExecutionRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := logic.NewExecutionLogic(r.Context(), svcCtx)
		resp, err := l.GetExecution(&req)
		if err != nil {
			writeError(w, err)
		} else {
			httputil.Success(w, resp)
		}
	}
}

// List recorded exchanges, newest first
func ListExecutionsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ListExecutionsRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := logic.NewExecutionLogic(r.Context(), svcCtx)
		resp, err := l.ListExecutions(&req)
		if err != nil {
			writeError(w, err)
		} else {
			httputil.Success(w, resp)
		}
	}
}
