package ledger

import (
	"time"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
	"github.com/jackyeh168/vip_points/src/internal/infrastructure/persistence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ===========================
// VipCustomerRepositoryImpl
// ===========================

// VipCustomerRepositoryImpl VIP 顧客倉儲實現（GORM）
//
// 設計原則：
// - 實作 ledger.VipCustomerRepository 接口
// - 餘額只以單一 SQL 語句變更（upsert 累加、條件扣減），
//   不做「讀出、修改、寫回」
// - 將 GORM 錯誤轉換為 Domain 錯誤
type VipCustomerRepositoryImpl struct {
	db *gorm.DB
}

// NewVipCustomerRepository 創建新的顧客倉儲實例
func NewVipCustomerRepository(db *gorm.DB) ledger.VipCustomerRepository {
	return &VipCustomerRepositoryImpl{db: db}
}

// FindByCustomerID 根據顧客 ID 查找
//
// 錯誤處理：
// - Record not found → ErrCustomerNotFound
// - 資料損壞（負餘額）→ ErrCorruptedBalance
func (r *VipCustomerRepositoryImpl) FindByCustomerID(tx shared.TransactionContext, customerID ledger.CustomerID) (*ledger.VipCustomer, error) {
	db := persistence.ResolveDB(tx, r.db)

	var model VipCustomerGORM
	result := db.Where("customer_id = ?", customerID.String()).First(&model)
	if result.Error != nil {
		if persistence.IsNotFound(result.Error) {
			return nil, ledger.ErrCustomerNotFound.WithContext("customer_id", customerID.String())
		}
		return nil, ledger.ErrRepositoryError.Wrap(result.Error, "operation", "find_customer")
	}

	return model.toDomain()
}

// ApplyCredit 原子累加餘額
//
// 實作邏輯：
//
//	INSERT INTO vip_customers (...) VALUES (..., amount, ...)
//	ON CONFLICT (customer_id) DO UPDATE
//	  SET reward_points = vip_customers.reward_points + excluded.reward_points
//
// 既有顧客的 shop 不變（首次入帳的商店為準）
func (r *VipCustomerRepositoryImpl) ApplyCredit(tx shared.TransactionContext, customerID ledger.CustomerID, shop ledger.ShopDomain, amount ledger.PointsAmount) error {
	db := persistence.ResolveDB(tx, r.db)

	now := time.Now().UTC()
	model := &VipCustomerGORM{
		CustomerID:   customerID.String(),
		Shop:         shop.String(),
		RewardPoints: amount.Value(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "customer_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"reward_points": gorm.Expr("vip_customers.reward_points + excluded.reward_points"),
			"updated_at":    now,
		}),
	}).Create(model)
	if result.Error != nil {
		return ledger.ErrRepositoryError.Wrap(result.Error,
			"operation", "apply_credit",
			"customer_id", customerID.String(),
		)
	}
	return nil
}

// ApplyDebit 條件扣減
//
// 實作邏輯：
//
//	UPDATE vip_customers SET reward_points = reward_points - ?
//	WHERE customer_id = ? AND reward_points >= ?
//
// 影響 0 列：餘額不足或顧客不存在，兩者都回報 ErrInsufficientBalance
func (r *VipCustomerRepositoryImpl) ApplyDebit(tx shared.TransactionContext, customerID ledger.CustomerID, amount ledger.PointsAmount) error {
	db := persistence.ResolveDB(tx, r.db)

	result := db.Model(&VipCustomerGORM{}).
		Where("customer_id = ? AND reward_points >= ?", customerID.String(), amount.Value()).
		Updates(map[string]interface{}{
			"reward_points": gorm.Expr("reward_points - ?", amount.Value()),
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return ledger.ErrRepositoryError.Wrap(result.Error,
			"operation", "apply_debit",
			"customer_id", customerID.String(),
		)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrInsufficientBalance.WithContext(
			"customer_id", customerID.String(),
			"requested", amount.Value(),
		)
	}
	return nil
}

// Ping 檢查資料庫連線
func (r *VipCustomerRepositoryImpl) Ping(tx shared.TransactionContext) error {
	db := persistence.ResolveDB(tx, r.db)

	sqlDB, err := db.DB()
	if err != nil {
		return ledger.ErrRepositoryError.Wrap(err, "operation", "ping")
	}
	if err := sqlDB.Ping(); err != nil {
		return ledger.ErrRepositoryError.Wrap(err, "operation", "ping")
	}
	return nil
}
