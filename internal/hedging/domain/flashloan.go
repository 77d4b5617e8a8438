package domain

import "github.com/shopspring/decimal"

// BalanceSource 闪电贷防护的余额基准来源
type BalanceSource interface {
	Balance() decimal.Decimal
}

// FlashLoanGuard 闪电贷防护
// 包裹每一个对外可达的变更入口：进入时快照引擎自有余额，
// 退出时校验余额未超出操作声明的流出额度而减少。
// 借入→操纵→归还发生在同一原子执行单元内，因此余额不变量被破坏
// 即说明出现了闪电贷式操纵，整个操作以 ErrFlashLoanAttackDetected 失败
type FlashLoanGuard struct {
	source BalanceSource
}

// NewFlashLoanGuard 创建防护器
func NewFlashLoanGuard(source BalanceSource) *FlashLoanGuard {
	return &FlashLoanGuard{source: source}
}

// Protect 在余额不变量保护下执行 fn
// fn 返回其合法转出的金额（无转出的操作返回零）；
// 实际余额减少超过该额度即判定为攻击
func (g *FlashLoanGuard) Protect(fn func() (outflow decimal.Decimal, err error)) error {
	before := g.source.Balance()

	outflow, err := fn()
	if err != nil {
		return err
	}

	after := g.source.Balance()
	if before.Sub(after).GreaterThan(outflow) {
		return ErrFlashLoanAttackDetected
	}
	return nil
}
