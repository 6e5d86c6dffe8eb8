package ledger

import "github.com/jackyeh168/vip_points/src/internal/domain/shared"

// ===========================
// Repository 介面
// ===========================

// VipCustomerRepository VIP 顧客倉儲介面
//
// 設計原則：
// 1. Domain Layer 定義介面，Infrastructure Layer 實作
// 2. 餘額變更以單一 SQL 語句完成（檢查與更新不可分割），
//    不提供 Save(customer) 式的整體覆寫
//
// 事務使用範例：
//   txManager.InTransaction(ctx, func(tx shared.TransactionContext) error {
//       if err := txRepo.Append(tx, record); err != nil {
//           return err
//       }
//       return customerRepo.ApplyDebit(tx, customerID, amount)
//   })
type VipCustomerRepository interface {
	// FindByCustomerID 查詢顧客
	// 返回：ErrCustomerNotFound（不存在）
	FindByCustomerID(tx shared.TransactionContext, customerID CustomerID) (*VipCustomer, error)

	// ApplyCredit 原子累加餘額；顧客不存在時以 amount 為初始餘額建立
	ApplyCredit(tx shared.TransactionContext, customerID CustomerID, shop ShopDomain, amount PointsAmount) error

	// ApplyDebit 條件扣減：reward_points >= amount 時才扣
	// 返回：ErrInsufficientBalance（餘額不足或顧客不存在，不做任何變更）
	ApplyDebit(tx shared.TransactionContext, customerID CustomerID, amount PointsAmount) error

	// Ping 檢查儲存層可用性
	Ping(tx shared.TransactionContext) error
}

// RewardTransactionRepository 交易記錄倉儲介面（只追加）
type RewardTransactionRepository interface {
	// Append 追加交易記錄
	// 返回：ErrDuplicateTransaction（同一顧客的冪等鍵已存在）
	Append(tx shared.TransactionContext, record *RewardTransaction) error

	// ListByCustomerID 依建立時間排序列出交易
	ListByCustomerID(tx shared.TransactionContext, customerID CustomerID) ([]*RewardTransaction, error)

	// SumByCustomerID 統計累積獲得與累積兌換
	SumByCustomerID(tx shared.TransactionContext, customerID CustomerID) (earned int, redeemed int, err error)
}
