// Package domain 对冲仓位引擎的领域模型
package domain

import (
	"github.com/shopspring/decimal"
)

// 基点与数值精度常量
const (
	// BpsDenominator 基点分母，1 bps = 0.01%
	BpsDenominator = 10000
	// DecimalPlaces 领域内金额统一保留的小数位数
	DecimalPlaces = 18
)

var bpsDivisor = decimal.NewFromInt(BpsDenominator)

// BpsOf 按基点取值，向下取整（费用提取统一使用向下取整）
// value: 基础金额
// bps: 基点数
func BpsOf(value decimal.Decimal, bps int64) decimal.Decimal {
	return MulDivDown(value, decimal.NewFromInt(bps), bpsDivisor)
}

// MulDivDown 先乘后除，结果向零截断
// 乘法在 decimal 下是精确的，只有除法一步引入舍入
func MulDivDown(a, b, c decimal.Decimal) decimal.Decimal {
	q, _ := a.Mul(b).QuoRem(c, DecimalPlaces)
	return q
}

// DivDown 除法，结果向零截断
func DivDown(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, DecimalPlaces)
	return q
}

// MinDecimal 返回两者较小值
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// MaxDecimal 返回两者较大值
func MaxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// WithinToleranceBps 判断 a 与 b 的相对偏差是否在给定基点容差内
// 以 b 为基准；b 为零时仅当 a 也为零才视为相等
func WithinToleranceBps(a, b decimal.Decimal, toleranceBps int64) bool {
	if b.IsZero() {
		return a.IsZero()
	}
	diff := a.Sub(b).Abs()
	limit := BpsOf(b.Abs(), toleranceBps)
	return diff.LessThanOrEqual(limit)
}

// TruncateTo 将数值截断到指定小数位（向零方向）
func TruncateTo(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Truncate(places)
}
