package domain

import "context"

// PositionRepository 仓位仓储接口（持久化快照，内存总账为权威状态）
type PositionRepository interface {
	Save(ctx context.Context, pos *Position) error
	Get(ctx context.Context, positionID int64) (*Position, error)
	ListByHedger(ctx context.Context, hedger string, activeOnly bool) ([]*Position, error)
	ListActive(ctx context.Context) ([]*Position, error)
}

// AccountRepository 对冲方账户仓储接口
type AccountRepository interface {
	Save(ctx context.Context, acc *HedgerAccount) error
	Get(ctx context.Context, hedger string) (*HedgerAccount, error)
	List(ctx context.Context) ([]*HedgerAccount, error)
}

// CommitmentRepository 强平承诺仓储接口
type CommitmentRepository interface {
	Save(ctx context.Context, c *LiquidationCommitment) error
	Delete(ctx context.Context, hedger string, positionID int64) error
	List(ctx context.Context) ([]*LiquidationCommitment, error)
}
