package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestBpsOf(t *testing.T) {
	// 20 bps of 1000 = 2
	assert.True(t, BpsOf(d("1000"), 20).Equal(d("2")))
	// 200 bps of 998 = 19.96
	assert.True(t, BpsOf(d("998"), 200).Equal(d("19.96")))
	assert.True(t, BpsOf(d("1000"), 0).IsZero())
}

func TestBpsOfRoundsDown(t *testing.T) {
	// 1 bps of 0.0000000000000000015 截断到 18 位后为零
	got := BpsOf(d("0.0000000000000000015"), 1)
	assert.True(t, got.IsZero(), "expected truncation toward zero, got %s", got)
}

func TestMulDivDownTruncates(t *testing.T) {
	// 10 × 1 / 3 = 3.333... 截断到 18 位
	got := MulDivDown(d("10"), d("1"), d("3"))
	assert.True(t, got.Equal(d("3.333333333333333333")), "got %s", got)

	// 负数同样向零截断而非向负无穷
	got = MulDivDown(d("-10"), d("1"), d("3"))
	assert.True(t, got.Equal(d("-3.333333333333333333")), "got %s", got)
}

func TestDivDown(t *testing.T) {
	assert.True(t, DivDown(d("998"), d("4990")).Equal(d("0.2")))
	got := DivDown(d("1"), d("7"))
	assert.True(t, got.Equal(d("0.142857142857142857")), "got %s", got)
}

func TestMinMaxDecimal(t *testing.T) {
	assert.True(t, MinDecimal(d("1"), d("2")).Equal(d("1")))
	assert.True(t, MinDecimal(d("2"), d("1")).Equal(d("1")))
	assert.True(t, MaxDecimal(d("-1"), d("0")).Equal(d("0")))
}

func TestWithinToleranceBps(t *testing.T) {
	// 偏差恰好在 10 bps 内
	assert.True(t, WithinToleranceBps(d("1000.9"), d("1000"), 10))
	assert.True(t, WithinToleranceBps(d("1001"), d("1000"), 10))
	assert.False(t, WithinToleranceBps(d("1001.1"), d("1000"), 10))

	// 基准为零时只有零视为相等
	assert.True(t, WithinToleranceBps(d("0"), d("0"), 100))
	assert.False(t, WithinToleranceBps(d("0.0001"), d("0"), 100))
}

func TestTruncateTo(t *testing.T) {
	assert.True(t, TruncateTo(d("1.23456"), 2).Equal(d("1.23")))
	assert.True(t, TruncateTo(d("-1.23456"), 2).Equal(d("-1.23")))
}
