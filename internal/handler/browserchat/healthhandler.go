package browserchat

import (
	"net/http"

	"github.com/neboloop/browserchat/internal/httputil"
	logic "github.com/neboloop/browserchat/internal/logic/browserchat"
	"github.com/neboloop/browserchat/internal/svc"
)

// Report browser availability
func HealthHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewHealthLogic(r.Context(), svcCtx)
		httputil.Success(w, l.Health())
	}
}
