package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ===========================
// PointsCalculationService 領域服務
// ===========================

// PointsCalculationService 積分計算領域服務
//
// 無狀態，可在多個 goroutine 間共享。
type PointsCalculationService struct {
	rate AccrualRate
}

// NewPointsCalculationService 建構函數
func NewPointsCalculationService(rate AccrualRate) *PointsCalculationService {
	return &PointsCalculationService{rate: rate}
}

// Rate 目前使用的倍率
func (s *PointsCalculationService) Rate() AccrualRate {
	return s.rate
}

// CalculateFromSubtotal 根據訂單小計計算積分
//
// 業務規則：
// - 積分 = floor(小計 × 倍率)
// - 負數小計返回 0 積分
func (s *PointsCalculationService) CalculateFromSubtotal(subtotal decimal.Decimal) (PointsAmount, error) {
	points := subtotal.Mul(s.rate.Value()).Floor()
	if points.IsNegative() {
		return newPointsAmountUnchecked(0), nil
	}
	if points.GreaterThan(decimal.NewFromInt(maxPointsValue)) {
		return PointsAmount{}, ErrPointsOverflow.WithContext("subtotal", subtotal.String())
	}
	return NewPointsAmount(int(points.IntPart()))
}

// 單筆訂單可得積分上限（int32 範圍，兼容 32 位元平台與資料庫 INTEGER 欄位）
const maxPointsValue = 1<<31 - 1

// ParseMonetaryAmount 解析平台傳來的金額字串
//
// 缺漏或格式錯誤視為 0（對應「畸形小計 → 0 積分」規則），
// 第二個返回值表示輸入是否有效，供調用者記錄觀測資訊。
func ParseMonetaryAmount(raw string) (decimal.Decimal, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
