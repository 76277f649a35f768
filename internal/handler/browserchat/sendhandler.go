package browserchat

import (
	"net/http"

	"github.com/neboloop/browserchat/internal/httputil"
	logic "github.com/neboloop/browserchat/internal/logic/browserchat"
	"github.com/neboloop/browserchat/internal/svc"
	"github.com/neboloop/browserchat/internal/types"
)

// Send a message to an agent and wait for its reply
func SendHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.SendRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := logic.NewSendLogic(r.Context(), svcCtx)
		resp, err := l.Send(&req)
		if err != nil {
			writeError(w, err)
		} else {
			httputil.Success(w, resp)
		}
	}
}
