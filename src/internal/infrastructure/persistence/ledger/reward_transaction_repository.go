package ledger

import (
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
	"github.com/jackyeh168/vip_points/src/internal/infrastructure/persistence"
	"gorm.io/gorm"
)

// RewardTransactionRepositoryImpl 交易記錄倉儲實現（GORM，只追加）
type RewardTransactionRepositoryImpl struct {
	db *gorm.DB
}

// NewRewardTransactionRepository 創建新的交易記錄倉儲實例
func NewRewardTransactionRepository(db *gorm.DB) ledger.RewardTransactionRepository {
	return &RewardTransactionRepositoryImpl{db: db}
}

// Append 追加交易記錄
//
// 錯誤處理：
// - UNIQUE constraint 違反（customer_id + idempotency_key）→ ErrDuplicateTransaction
// - 其他資料庫錯誤 → ErrRepositoryError
func (r *RewardTransactionRepositoryImpl) Append(tx shared.TransactionContext, record *ledger.RewardTransaction) error {
	db := persistence.ResolveDB(tx, r.db)

	result := db.Create(toTransactionGORM(record))
	if result.Error != nil {
		if persistence.IsUniqueConstraintError(result.Error) {
			return ledger.ErrDuplicateTransaction.WithContext(
				"customer_id", record.CustomerID().String(),
				"idempotency_key", record.IdempotencyKey(),
			)
		}
		return ledger.ErrRepositoryError.Wrap(result.Error, "operation", "append_transaction")
	}
	return nil
}

// ListByCustomerID 依建立時間排序列出交易
func (r *RewardTransactionRepositoryImpl) ListByCustomerID(tx shared.TransactionContext, customerID ledger.CustomerID) ([]*ledger.RewardTransaction, error) {
	db := persistence.ResolveDB(tx, r.db)

	var models []RewardTransactionGORM
	result := db.Where("customer_id = ?", customerID.String()).
		Order("created_at ASC").
		Order("id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, ledger.ErrRepositoryError.Wrap(result.Error, "operation", "list_transactions")
	}

	records := make([]*ledger.RewardTransaction, 0, len(models))
	for i := range models {
		record, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// transactionSums 聚合查詢結果
type transactionSums struct {
	Earned   int
	Redeemed int
}

// SumByCustomerID 統計累積獲得與累積兌換（NULL 視為 0）
func (r *RewardTransactionRepositoryImpl) SumByCustomerID(tx shared.TransactionContext, customerID ledger.CustomerID) (int, int, error) {
	db := persistence.ResolveDB(tx, r.db)

	var sums transactionSums
	result := db.Model(&RewardTransactionGORM{}).
		Select("COALESCE(SUM(points_earned), 0) AS earned, COALESCE(SUM(points_redeemed), 0) AS redeemed").
		Where("customer_id = ?", customerID.String()).
		Scan(&sums)
	if result.Error != nil {
		return 0, 0, ledger.ErrRepositoryError.Wrap(result.Error, "operation", "sum_transactions")
	}
	return sums.Earned, sums.Redeemed, nil
}
