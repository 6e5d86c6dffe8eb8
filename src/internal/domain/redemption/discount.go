package redemption

import (
	"time"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// DiscountRequest 向平台申請的一次性折扣碼
//
// 1 點 = 1 元折抵；只限該顧客、只限可兌換的 Variant、只能使用一次。
type DiscountRequest struct {
	Code       string
	Title      string
	Amount     decimal.Decimal
	CustomerID ledger.CustomerID
	VariantIDs []string
	UsageLimit int
	StartsAt   time.Time
}

// NewDiscountRequest 由兌換記錄建立折扣申請
func NewDiscountRequest(r *Redemption, variantIDs []string, startsAt time.Time) DiscountRequest {
	return DiscountRequest{
		Code:       r.Code(),
		Title:      r.Code(),
		Amount:     decimal.NewFromInt(int64(r.Points().Value())),
		CustomerID: r.CustomerID(),
		VariantIDs: append([]string{}, variantIDs...),
		UsageLimit: 1,
		StartsAt:   startsAt,
	}
}
