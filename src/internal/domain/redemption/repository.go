package redemption

import (
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// RedemptionRepository 兌換記錄倉儲介面
type RedemptionRepository interface {
	// Create 保存新記錄
	// 返回：ErrRedemptionAlreadyExists（同一 customerID + requestID 已存在）
	Create(tx shared.TransactionContext, r *Redemption) error

	// Find 依鍵查詢
	// 返回：ErrRedemptionNotFound
	Find(tx shared.TransactionContext, customerID ledger.CustomerID, requestID ledger.RequestID) (*Redemption, error)

	// Transition 條件更新：只有目前狀態仍為 from 時才寫入 r 的新狀態
	// 返回：ErrInvalidTransition（狀態已被其他請求改變）
	Transition(tx shared.TransactionContext, r *Redemption, from Status) error

	// ListByStatus 依建立時間列出指定狀態的記錄
	ListByStatus(tx shared.TransactionContext, statuses ...Status) ([]*Redemption, error)
}
