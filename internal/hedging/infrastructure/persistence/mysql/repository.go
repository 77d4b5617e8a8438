package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quantora/hedgingengine/internal/hedging/domain"
	"github.com/quantora/hedgingengine/pkg/logger"
)

// positionRepositoryImpl 是 domain.PositionRepository 的 GORM 实现
type positionRepositoryImpl struct {
	db *gorm.DB
}

// NewPositionRepository 创建仓位仓储实例
func NewPositionRepository(db *gorm.DB) domain.PositionRepository {
	return &positionRepositoryImpl{db: db}
}

// Save 以 position_id 为冲突键做 upsert
func (r *positionRepositoryImpl) Save(ctx context.Context, pos *domain.Position) error {
	model := positionToModel(pos)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "position_id"}},
		UpdateAll: true,
	}).Create(model).Error
	if err != nil {
		logger.Error(ctx, "position_repository.Save failed", "position_id", pos.PositionID, "error", err)
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// Get 按仓位 ID 查询，不存在返回 ErrPositionNotFound
func (r *positionRepositoryImpl) Get(ctx context.Context, positionID int64) (*domain.Position, error) {
	var model PositionModel
	if err := r.db.WithContext(ctx).Where("position_id = ?", positionID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return positionToDomain(&model)
}

// ListByHedger 查询对冲方仓位
func (r *positionRepositoryImpl) ListByHedger(ctx context.Context, hedger string, activeOnly bool) ([]*domain.Position, error) {
	q := r.db.WithContext(ctx).Where("hedger = ?", hedger)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var models []PositionModel
	if err := q.Order("position_id asc").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return positionsToDomain(models)
}

// ListActive 查询全部活跃仓位（服务重启时重建内存总账）
func (r *positionRepositoryImpl) ListActive(ctx context.Context) ([]*domain.Position, error) {
	var models []PositionModel
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("position_id asc").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list active positions: %w", err)
	}
	return positionsToDomain(models)
}

// accountRepositoryImpl 是 domain.AccountRepository 的 GORM 实现
type accountRepositoryImpl struct {
	db *gorm.DB
}

// NewAccountRepository 创建账户仓储实例
func NewAccountRepository(db *gorm.DB) domain.AccountRepository {
	return &accountRepositoryImpl{db: db}
}

// Save 以 hedger 为冲突键做 upsert
func (r *accountRepositoryImpl) Save(ctx context.Context, acc *domain.HedgerAccount) error {
	model := accountToModel(acc)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hedger"}},
		UpdateAll: true,
	}).Create(model).Error
	if err != nil {
		logger.Error(ctx, "account_repository.Save failed", "hedger", acc.Hedger, "error", err)
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// Get 按对冲方查询账户
func (r *accountRepositoryImpl) Get(ctx context.Context, hedger string) (*domain.HedgerAccount, error) {
	var model AccountModel
	if err := r.db.WithContext(ctx).Where("hedger = ?", hedger).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrHedgerAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return accountToDomain(&model)
}

// List 查询全部账户，含已暂停的（其待领取奖励仍然有效）
func (r *accountRepositoryImpl) List(ctx context.Context) ([]*domain.HedgerAccount, error) {
	var models []AccountModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	out := make([]*domain.HedgerAccount, 0, len(models))
	for i := range models {
		acc, err := accountToDomain(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, nil
}

// commitmentRepositoryImpl 是 domain.CommitmentRepository 的 GORM 实现
type commitmentRepositoryImpl struct {
	db *gorm.DB
}

// NewCommitmentRepository 创建强平承诺仓储实例
func NewCommitmentRepository(db *gorm.DB) domain.CommitmentRepository {
	return &commitmentRepositoryImpl{db: db}
}

// Save 以 (hedger, position_id) 为冲突键做 upsert
func (r *commitmentRepositoryImpl) Save(ctx context.Context, c *domain.LiquidationCommitment) error {
	model := &CommitmentModel{
		Hedger:     c.Hedger,
		PositionID: c.PositionID,
		Hash:       c.Hash[:],
		Liquidator: c.Liquidator,
		CommitTime: c.CommitTime,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hedger"}, {Name: "position_id"}},
		UpdateAll: true,
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to save commitment: %w", err)
	}
	return nil
}

// Delete 删除承诺记录
func (r *commitmentRepositoryImpl) Delete(ctx context.Context, hedger string, positionID int64) error {
	err := r.db.WithContext(ctx).
		Where("hedger = ? AND position_id = ?", hedger, positionID).
		Delete(&CommitmentModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete commitment: %w", err)
	}
	return nil
}

// List 查询全部承诺
func (r *commitmentRepositoryImpl) List(ctx context.Context) ([]*domain.LiquidationCommitment, error) {
	var models []CommitmentModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list commitments: %w", err)
	}
	out := make([]*domain.LiquidationCommitment, 0, len(models))
	for i := range models {
		c := &domain.LiquidationCommitment{
			Hedger:     models[i].Hedger,
			PositionID: models[i].PositionID,
			Liquidator: models[i].Liquidator,
			CommitTime: models[i].CommitTime,
		}
		copy(c.Hash[:], models[i].Hash)
		out = append(out, c)
	}
	return out, nil
}

func positionToModel(p *domain.Position) *PositionModel {
	return &PositionModel{
		PositionID:     p.PositionID,
		Hedger:         p.Hedger,
		PositionSize:   p.PositionSize.String(),
		Margin:         p.Margin.String(),
		EntryPrice:     p.EntryPrice.String(),
		Leverage:       p.Leverage.String(),
		EntryTime:      p.EntryTime,
		LastUpdateTime: p.LastUpdateTime,
		IsActive:       p.IsActive,
	}
}

func positionToDomain(m *PositionModel) (*domain.Position, error) {
	size, err := decimal.NewFromString(m.PositionSize)
	if err != nil {
		return nil, fmt.Errorf("decode position size: %w", err)
	}
	margin, err := decimal.NewFromString(m.Margin)
	if err != nil {
		return nil, fmt.Errorf("decode margin: %w", err)
	}
	price, err := decimal.NewFromString(m.EntryPrice)
	if err != nil {
		return nil, fmt.Errorf("decode entry price: %w", err)
	}
	leverage, err := decimal.NewFromString(m.Leverage)
	if err != nil {
		return nil, fmt.Errorf("decode leverage: %w", err)
	}
	return &domain.Position{
		PositionID:     m.PositionID,
		Hedger:         m.Hedger,
		PositionSize:   size,
		Margin:         margin,
		EntryPrice:     price,
		Leverage:       leverage,
		EntryTime:      m.EntryTime,
		LastUpdateTime: m.LastUpdateTime,
		IsActive:       m.IsActive,
	}, nil
}

func positionsToDomain(models []PositionModel) ([]*domain.Position, error) {
	out := make([]*domain.Position, 0, len(models))
	for i := range models {
		p, err := positionToDomain(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func accountToModel(a *domain.HedgerAccount) *AccountModel {
	return &AccountModel{
		Hedger:          a.Hedger,
		TotalMargin:     a.TotalMargin.String(),
		TotalExposure:   a.TotalExposure.String(),
		PendingRewards:  a.PendingRewards.String(),
		LastRewardClaim: a.LastRewardClaim,
		LastRewardBlock: a.LastRewardBlock,
		IsActive:        a.IsActive,
	}
}

func accountToDomain(m *AccountModel) (*domain.HedgerAccount, error) {
	totalMargin, err := decimal.NewFromString(m.TotalMargin)
	if err != nil {
		return nil, fmt.Errorf("decode total margin: %w", err)
	}
	totalExposure, err := decimal.NewFromString(m.TotalExposure)
	if err != nil {
		return nil, fmt.Errorf("decode total exposure: %w", err)
	}
	pending, err := decimal.NewFromString(m.PendingRewards)
	if err != nil {
		return nil, fmt.Errorf("decode pending rewards: %w", err)
	}
	return &domain.HedgerAccount{
		Hedger:          m.Hedger,
		TotalMargin:     totalMargin,
		TotalExposure:   totalExposure,
		PendingRewards:  pending,
		LastRewardClaim: m.LastRewardClaim,
		LastRewardBlock: m.LastRewardBlock,
		IsActive:        m.IsActive,
	}, nil
}
