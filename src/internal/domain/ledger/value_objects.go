package ledger

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ===========================
// PointsAmount
// ===========================

// PointsAmount 積分數量值對象
// 設計原則：值對象不可變、自我驗證
type PointsAmount struct {
	value int
}

// NewPointsAmount 建構函數（checked 版本）
// 對外部輸入進行完整驗證
//
// 建構約束：積分數量必須 >= 0（不存在負數積分的概念）
func NewPointsAmount(value int) (PointsAmount, error) {
	if value < 0 {
		return PointsAmount{}, fmt.Errorf(
			"%w: attempted to create PointsAmount with value %d",
			ErrNegativePointsAmount,
			value,
		)
	}
	return PointsAmount{value: value}, nil
}

// newPointsAmountUnchecked 內部建構函數（unchecked 版本）
//
// 前提條件：調用者必須保證 value >= 0
func newPointsAmountUnchecked(value int) PointsAmount {
	return PointsAmount{value: value}
}

// Value 獲取積分數量
func (p PointsAmount) Value() int {
	return p.value
}

// IsZero 是否為 0 積分
func (p PointsAmount) IsZero() bool {
	return p.value == 0
}

// Add 相加（返回新的 PointsAmount，保持不變性）
// 溢位時返回 ErrPointsOverflow
func (p PointsAmount) Add(other PointsAmount) (PointsAmount, error) {
	if other.value > math.MaxInt-p.value {
		return PointsAmount{}, ErrPointsOverflow.WithContext(
			"current", p.value,
			"delta", other.value,
		)
	}
	return newPointsAmountUnchecked(p.value + other.value), nil
}

// Subtract 相減（返回新的 PointsAmount）
// 業務規則：不能扣除超過當前數量的積分
func (p PointsAmount) Subtract(other PointsAmount) (PointsAmount, error) {
	if p.value < other.value {
		return PointsAmount{}, ErrInsufficientBalance.WithContext(
			"requested", other.value,
			"available", p.value,
		)
	}
	return newPointsAmountUnchecked(p.value - other.value), nil
}

// Equals 比較兩個 PointsAmount 是否相等
func (p PointsAmount) Equals(other PointsAmount) bool {
	return p.value == other.value
}

// ===========================
// AccrualRate
// ===========================

// 累積倍率上限（防止配置錯誤導致積分暴增）
const maxAccrualRate = 1000

// AccrualRate 累積倍率值對象（每 1 元消費可得積分）
//
// 使用 decimal 以支援 1.5 這類非整數倍率
type AccrualRate struct {
	value decimal.Decimal
}

// DefaultAccrualRate 預設倍率：每 1 元得 2 點
func DefaultAccrualRate() AccrualRate {
	return AccrualRate{value: decimal.NewFromInt(2)}
}

// NewAccrualRate 建構函數：0 < rate <= 1000
func NewAccrualRate(value decimal.Decimal) (AccrualRate, error) {
	if !value.IsPositive() || value.GreaterThan(decimal.NewFromInt(maxAccrualRate)) {
		return AccrualRate{}, ErrInvalidAccrualRate.WithContext("value", value.String())
	}
	return AccrualRate{value: value}, nil
}

// ParseAccrualRate 從字串解析倍率（配置檔使用）
func ParseAccrualRate(raw string) (AccrualRate, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return AccrualRate{}, ErrInvalidAccrualRate.WithContext(
			"value", raw,
			"parse_error", err.Error(),
		)
	}
	return NewAccrualRate(d)
}

// Value 獲取倍率
func (r AccrualRate) Value() decimal.Decimal {
	return r.value
}

// String 字串表示
func (r AccrualRate) String() string {
	return r.value.String()
}
