package domain

import "github.com/shopspring/decimal"

// Treasury 引擎自有的稳定币资金池
// 开仓/追加保证金入金，平仓/提取/强平/领奖出金；
// 余额同时作为闪电贷防护的不变量基准
type Treasury struct {
	balance decimal.Decimal
}

// NewTreasury 创建资金池
func NewTreasury(initial decimal.Decimal) *Treasury {
	return &Treasury{balance: initial}
}

// Balance 当前余额
func (t *Treasury) Balance() decimal.Decimal {
	return t.balance
}

// Credit 入金
func (t *Treasury) Credit(amount decimal.Decimal) {
	t.balance = t.balance.Add(amount)
}

// Debit 出金，余额不足返回 ErrInsufficientMargin
func (t *Treasury) Debit(amount decimal.Decimal) error {
	if t.balance.LessThan(amount) {
		return ErrInsufficientMargin
	}
	t.balance = t.balance.Sub(amount)
	return nil
}
