// Package redemption 兌換記錄與折扣碼推導。
package redemption

import (
	"time"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
)

// ===========================
// Status 兌換狀態
// ===========================

// Status 兌換流程狀態
//
//	PENDING ──► ISSUED ──► SETTLED
//	   │           │          ▲
//	   ▼           ▼          │
//	ISSUANCE_   SETTLEMENT_ ──┘
//	 FAILED       FAILED
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusIssued           Status = "ISSUED"
	StatusSettled          Status = "SETTLED"
	StatusIssuanceFailed   Status = "ISSUANCE_FAILED"
	StatusSettlementFailed Status = "SETTLEMENT_FAILED"
)

// ParseStatus 從持久化字串解析
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusIssued, StatusSettled, StatusIssuanceFailed, StatusSettlementFailed:
		return st, nil
	}
	return "", ErrInvalidStatus.WithContext("status", s)
}

// String 字串表示
func (s Status) String() string {
	return string(s)
}

// UnsettledStatuses 已發碼但尚未扣點的狀態（對帳佇列）
func UnsettledStatuses() []Status {
	return []Status{StatusIssued, StatusSettlementFailed}
}

// UnconfirmedStatuses 尚未確認發碼的狀態；平台上可能已有折扣碼
func UnconfirmedStatuses() []Status {
	return []Status{StatusPending, StatusIssuanceFailed}
}

// ===========================
// Redemption 聚合根
// ===========================

// Redemption 一次兌換請求的持久化記錄，以 (customerID, requestID) 為鍵
//
// 用途：
// 1. 重試安全：重送已結算的請求直接返回同一個碼
// 2. 對帳：記錄已發碼但未扣點的請求（customer、points、code）
type Redemption struct {
	customerID         ledger.CustomerID
	requestID          ledger.RequestID
	shop               ledger.ShopDomain
	points             ledger.PointsAmount
	code               string
	status             Status
	eligibleVariantIDs []string
	failureReason      string
	createdAt          time.Time
	updatedAt          time.Time
}

// NewRedemption 建立 PENDING 狀態的兌換記錄
func NewRedemption(
	customerID ledger.CustomerID,
	requestID ledger.RequestID,
	shop ledger.ShopDomain,
	points ledger.PointsAmount,
	code string,
) *Redemption {
	now := time.Now()
	return &Redemption{
		customerID:         customerID,
		requestID:          requestID,
		shop:               shop,
		points:             points,
		code:               code,
		status:             StatusPending,
		eligibleVariantIDs: []string{},
		createdAt:          now,
		updatedAt:          now,
	}
}

// ReconstructRedemption 從持久化存儲重建（僅供 Infrastructure Layer 使用）
func ReconstructRedemption(
	customerID ledger.CustomerID,
	requestID ledger.RequestID,
	shop ledger.ShopDomain,
	points ledger.PointsAmount,
	code string,
	status Status,
	eligibleVariantIDs []string,
	failureReason string,
	createdAt time.Time,
	updatedAt time.Time,
) *Redemption {
	if eligibleVariantIDs == nil {
		eligibleVariantIDs = []string{}
	}
	return &Redemption{
		customerID:         customerID,
		requestID:          requestID,
		shop:               shop,
		points:             points,
		code:               code,
		status:             status,
		eligibleVariantIDs: eligibleVariantIDs,
		failureReason:      failureReason,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// ===========================
// 查詢方法
// ===========================

func (r *Redemption) CustomerID() ledger.CustomerID { return r.customerID }
func (r *Redemption) RequestID() ledger.RequestID   { return r.requestID }
func (r *Redemption) Shop() ledger.ShopDomain       { return r.shop }
func (r *Redemption) Points() ledger.PointsAmount   { return r.points }
func (r *Redemption) Code() string                  { return r.code }
func (r *Redemption) Status() Status                { return r.status }
func (r *Redemption) FailureReason() string         { return r.failureReason }
func (r *Redemption) CreatedAt() time.Time          { return r.createdAt }
func (r *Redemption) UpdatedAt() time.Time          { return r.updatedAt }

// EligibleVariantIDs 發碼時套用的 Variant（副本）
func (r *Redemption) EligibleVariantIDs() []string {
	out := make([]string, len(r.eligibleVariantIDs))
	copy(out, r.eligibleVariantIDs)
	return out
}

// IsSettled 是否已完成扣點
func (r *Redemption) IsSettled() bool {
	return r.status == StatusSettled
}

// NeedsSettlement 已發碼但尚未扣點
func (r *Redemption) NeedsSettlement() bool {
	return r.status == StatusIssued || r.status == StatusSettlementFailed
}

// CanRestart 可從 Validate 重新執行（尚未確認發碼）
func (r *Redemption) CanRestart() bool {
	return r.status == StatusPending || r.status == StatusIssuanceFailed
}

// Matches 重送的請求是否與記錄一致
func (r *Redemption) Matches(points ledger.PointsAmount) bool {
	return r.points.Equals(points)
}

// ===========================
// 狀態轉換
// ===========================

// Restart ISSUANCE_FAILED → PENDING（PENDING 保持不變）
func (r *Redemption) Restart() error {
	if !r.CanRestart() {
		return r.invalidTransition(StatusPending)
	}
	r.status = StatusPending
	r.failureReason = ""
	r.touch()
	return nil
}

// MarkIssued PENDING → ISSUED
func (r *Redemption) MarkIssued(eligibleVariantIDs []string) error {
	if r.status != StatusPending {
		return r.invalidTransition(StatusIssued)
	}
	r.status = StatusIssued
	r.eligibleVariantIDs = append([]string{}, eligibleVariantIDs...)
	r.touch()
	return nil
}

// ConfirmIssued PENDING | ISSUANCE_FAILED → ISSUED
//
// 平台上已查到折扣碼，但記錄沒有寫入 ISSUED。
func (r *Redemption) ConfirmIssued() error {
	if !r.CanRestart() {
		return r.invalidTransition(StatusIssued)
	}
	r.status = StatusIssued
	r.failureReason = ""
	r.touch()
	return nil
}

// MarkIssuanceFailed PENDING → ISSUANCE_FAILED
func (r *Redemption) MarkIssuanceFailed(reason string) error {
	if r.status != StatusPending {
		return r.invalidTransition(StatusIssuanceFailed)
	}
	r.status = StatusIssuanceFailed
	r.failureReason = reason
	r.touch()
	return nil
}

// MarkSettled ISSUED | SETTLEMENT_FAILED → SETTLED
func (r *Redemption) MarkSettled() error {
	if !r.NeedsSettlement() {
		return r.invalidTransition(StatusSettled)
	}
	r.status = StatusSettled
	r.failureReason = ""
	r.touch()
	return nil
}

// MarkSettlementFailed ISSUED | SETTLEMENT_FAILED → SETTLEMENT_FAILED
func (r *Redemption) MarkSettlementFailed(reason string) error {
	if !r.NeedsSettlement() {
		return r.invalidTransition(StatusSettlementFailed)
	}
	r.status = StatusSettlementFailed
	r.failureReason = reason
	r.touch()
	return nil
}

func (r *Redemption) touch() {
	r.updatedAt = time.Now()
}

func (r *Redemption) invalidTransition(to Status) error {
	return ErrInvalidTransition.WithContext(
		"customer_id", r.customerID.String(),
		"request_id", r.requestID.String(),
		"from", r.status.String(),
		"to", to.String(),
	)
}
