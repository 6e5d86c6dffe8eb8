package shared

import "context"

// TransactionContext 事務上下文介面
//
// 設計決策：可選事務參與模式（Optional Transaction Participation）
//
// 行為約定：
// - tx != nil: 在調用者的事務中執行（事務傳播）
// - tx == nil: 使用 auto-commit 模式（適用於單一讀操作）
//
// Repository 方法約束：
//
// ✅ tx 必須為 non-nil（寫操作需要事務保證）：
//    - Append()       - 追加交易記錄
//    - ApplyCredit()  - 累加餘額
//    - ApplyDebit()   - 條件扣減餘額
//
// ✅ tx 可為 nil（讀操作可選事務參與）：
//    - FindByCustomerID()
//    - ListByCustomerID()
//
// 範例：
//
//   txManager.InTransaction(ctx, func(tx TransactionContext) error {
//       if err := txRepo.Append(tx, rewardTx); err != nil {
//           return err
//       }
//       return customerRepo.ApplyCredit(tx, customerID, shop, amount)
//   })
//
// 這是一個標記介面（Marker Interface），不暴露任何方法；
// Infrastructure Layer 負責實作具體的事務封裝（GORM）。
type TransactionContext interface {
	// 標記介面：僅用於傳遞上下文，不暴露方法
}

// TransactionManager 事務管理器介面
//
// InTransaction 保證 fn 內所有寫操作「全部成功或全部回滾」：
// - fn 返回 error → 回滾，原樣返回該 error
// - fn panic → 回滾後重新 panic
// - ctx 取消 → 資料庫驅動中止事務
type TransactionManager interface {
	InTransaction(ctx context.Context, fn func(tx TransactionContext) error) error
}
