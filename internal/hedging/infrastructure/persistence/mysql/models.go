// Package mysql 提供对冲引擎仓储接口的 MySQL GORM 实现
package mysql

import (
	"time"

	"gorm.io/gorm"
)

// PositionModel 仓位数据库模型
type PositionModel struct {
	gorm.Model
	PositionID     int64  `gorm:"column:position_id;uniqueIndex;not null"`
	Hedger         string `gorm:"column:hedger;type:varchar(64);index;not null"`
	PositionSize   string `gorm:"column:position_size;type:decimal(40,18);not null"`
	Margin         string `gorm:"column:margin;type:decimal(40,18);not null"`
	EntryPrice     string `gorm:"column:entry_price;type:decimal(40,18);not null"`
	Leverage       string `gorm:"column:leverage;type:decimal(20,8);not null"`
	EntryTime      int64  `gorm:"column:entry_time;not null"`
	LastUpdateTime int64  `gorm:"column:last_update_time;not null"`
	IsActive       bool   `gorm:"column:is_active;index;not null"`
}

// TableName 指定表名
func (PositionModel) TableName() string {
	return "hedge_positions"
}

// AccountModel 对冲方账户数据库模型
type AccountModel struct {
	gorm.Model
	Hedger          string `gorm:"column:hedger;type:varchar(64);uniqueIndex;not null"`
	TotalMargin     string `gorm:"column:total_margin;type:decimal(40,18);not null"`
	TotalExposure   string `gorm:"column:total_exposure;type:decimal(40,18);not null"`
	PendingRewards  string `gorm:"column:pending_rewards;type:decimal(40,18);not null"`
	LastRewardClaim int64  `gorm:"column:last_reward_claim;not null"`
	LastRewardBlock uint64 `gorm:"column:last_reward_block;not null"`
	IsActive        bool   `gorm:"column:is_active;index;not null"`
}

// TableName 指定表名
func (AccountModel) TableName() string {
	return "hedger_accounts"
}

// CommitmentModel 强平承诺数据库模型
type CommitmentModel struct {
	gorm.Model
	Hedger     string    `gorm:"column:hedger;type:varchar(64);uniqueIndex:idx_hedger_position;not null"`
	PositionID int64     `gorm:"column:position_id;uniqueIndex:idx_hedger_position;not null"`
	Hash       []byte    `gorm:"column:hash;type:varbinary(32);not null"`
	Liquidator string    `gorm:"column:liquidator;type:varchar(64);not null"`
	CommitTime time.Time `gorm:"column:commit_time;not null"`
}

// TableName 指定表名
func (CommitmentModel) TableName() string {
	return "liquidation_commitments"
}
