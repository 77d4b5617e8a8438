package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashLoanGuardAllowsDeclaredOutflow(t *testing.T) {
	trez := NewTreasury(d("1000"))
	guard := NewFlashLoanGuard(trez)

	err := guard.Protect(func() (decimal.Decimal, error) {
		require.NoError(t, trez.Debit(d("100")))
		return d("100"), nil
	})
	assert.NoError(t, err)
	assert.True(t, trez.Balance().Equal(d("900")))
}

func TestFlashLoanGuardAllowsInflow(t *testing.T) {
	trez := NewTreasury(d("1000"))
	guard := NewFlashLoanGuard(trez)

	err := guard.Protect(func() (decimal.Decimal, error) {
		trez.Credit(d("500"))
		return decimal.Zero, nil
	})
	assert.NoError(t, err)
}

func TestFlashLoanGuardDetectsUndeclaredDrain(t *testing.T) {
	trez := NewTreasury(d("1000"))
	guard := NewFlashLoanGuard(trez)

	// 借入归还发生在同一执行单元内，净流出超出声明额度
	err := guard.Protect(func() (decimal.Decimal, error) {
		trez.Credit(d("10000"))
		require.NoError(t, trez.Debit(d("10000")))
		require.NoError(t, trez.Debit(d("300")))
		return d("100"), nil
	})
	assert.ErrorIs(t, err, ErrFlashLoanAttackDetected)
}

func TestFlashLoanGuardPropagatesError(t *testing.T) {
	trez := NewTreasury(d("1000"))
	guard := NewFlashLoanGuard(trez)

	sentinel := errors.New("boom")
	err := guard.Protect(func() (decimal.Decimal, error) {
		return decimal.Zero, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}
