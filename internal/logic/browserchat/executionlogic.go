package browserchat

import (
	"context"
	"log/slog"

	"github.com/neboloop/browserchat/internal/db"
	"github.com/neboloop/browserchat/internal/svc"
	"github.com/neboloop/browserchat/internal/types"
)

type ExecutionLogic struct {
	*slog.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Look up recorded exchanges
func NewExecutionLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ExecutionLogic {
	return &ExecutionLogic{
		Logger: svcCtx.Logger.With("logic", "execution"),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ExecutionLogic) GetExecution(req *types.GetExecutionRequest) (*db.Exchange, error) {
	if l.svcCtx.DB == nil {
		return nil, ErrNoDatabase
	}
	return l.svcCtx.DB.GetExchange(l.ctx, req.Id)
}

func (l *ExecutionLogic) ListExecutions(req *types.ListExecutionsRequest) ([]db.Exchange, error) {
	if l.svcCtx.DB == nil {
		return nil, ErrNoDatabase
	}
	list, err := l.svcCtx.DB.ListExchanges(l.ctx, req.SessionId, req.Limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []db.Exchange{}
	}
	return list, nil
}
