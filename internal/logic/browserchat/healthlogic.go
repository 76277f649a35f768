package browserchat

import (
	"context"
	"log/slog"

	"github.com/neboloop/browserchat/internal/browser"
	"github.com/neboloop/browserchat/internal/svc"
	"github.com/neboloop/browserchat/internal/types"
)

type HealthLogic struct {
	*slog.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Report whether a browser is available
func NewHealthLogic(ctx context.Context, svcCtx *svc.ServiceContext) *HealthLogic {
	return &HealthLogic{
		Logger: svcCtx.Logger.With("logic", "health"),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *HealthLogic) Health() *types.HealthResponse {
	h := browser.CheckHealth(l.ctx, l.svcCtx.Browser)
	if !h.Healthy {
		l.Warn("browser unavailable", "message", h.Message)
	}
	return &types.HealthResponse{
		Healthy:    h.Healthy,
		Message:    h.Message,
		Executable: h.Executable,
		Version:    h.Version,
	}
}
