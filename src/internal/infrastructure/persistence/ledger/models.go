package ledger

import (
	"time"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
)

// ===========================
// GORM Models
// ===========================

// VipCustomerGORM VIP 顧客資料表模型
//
// 資料庫約束：
// - customer_id: 主鍵（平台數字 ID，不含 gid 前綴）
// - reward_points: >= 0（CHECK 約束，扣點以條件 UPDATE 完成）
type VipCustomerGORM struct {
	CustomerID   string    `gorm:"column:customer_id;type:varchar(64);primaryKey"`
	Shop         string    `gorm:"column:shop;type:varchar(255);not null;index"`
	RewardPoints int       `gorm:"column:reward_points;not null;default:0;check:chk_vip_customers_reward_points,reward_points >= 0"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定資料表名稱
func (VipCustomerGORM) TableName() string {
	return "vip_customers"
}

// RewardTransactionGORM 交易記錄資料表模型（只追加）
//
// (customer_id, idempotency_key) 唯一：同一訂單或同一兌換請求只記一次
type RewardTransactionGORM struct {
	ID             string    `gorm:"column:id;type:varchar(36);primaryKey"`
	CustomerID     string    `gorm:"column:customer_id;type:varchar(64);not null;uniqueIndex:idx_reward_tx_customer_key,priority:1"`
	OrderID        string    `gorm:"column:order_id;type:varchar(255);not null"`
	PointsEarned   *int      `gorm:"column:points_earned"`
	PointsRedeemed *int      `gorm:"column:points_redeemed"`
	IdempotencyKey string    `gorm:"column:idempotency_key;type:varchar(255);not null;uniqueIndex:idx_reward_tx_customer_key,priority:2"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index"`
}

// TableName 指定資料表名稱
func (RewardTransactionGORM) TableName() string {
	return "reward_transactions"
}

// Models 本套件需要遷移的模型
func Models() []interface{} {
	return []interface{}{&VipCustomerGORM{}, &RewardTransactionGORM{}}
}

// ===========================
// Mapper Functions
// ===========================

// toDomain 將 GORM 模型轉換為 Domain 模型
//
// 即使資料來自資料庫也經過值對象驗證，損壞的資料以 DomainError 返回
func (g *VipCustomerGORM) toDomain() (*ledger.VipCustomer, error) {
	customerID, err := ledger.NewCustomerID(g.CustomerID)
	if err != nil {
		return nil, err
	}
	shop, err := ledger.NewShopDomain(g.Shop)
	if err != nil {
		return nil, err
	}
	return ledger.ReconstructVipCustomer(customerID, shop, g.RewardPoints, g.CreatedAt, g.UpdatedAt)
}

func (g *RewardTransactionGORM) toDomain() (*ledger.RewardTransaction, error) {
	id, err := ledger.TransactionIDFromString(g.ID)
	if err != nil {
		return nil, err
	}
	customerID, err := ledger.NewCustomerID(g.CustomerID)
	if err != nil {
		return nil, err
	}
	return ledger.ReconstructRewardTransaction(
		id,
		customerID,
		g.OrderID,
		g.PointsEarned,
		g.PointsRedeemed,
		g.IdempotencyKey,
		g.CreatedAt,
	)
}

// toTransactionGORM 將交易記錄轉換為 GORM 模型
func toTransactionGORM(t *ledger.RewardTransaction) *RewardTransactionGORM {
	model := &RewardTransactionGORM{
		ID:             t.ID().String(),
		CustomerID:     t.CustomerID().String(),
		OrderID:        t.OrderID(),
		IdempotencyKey: t.IdempotencyKey(),
		CreatedAt:      t.CreatedAt(),
	}
	if earned := t.PointsEarned(); earned != nil {
		v := earned.Value()
		model.PointsEarned = &v
	}
	if redeemed := t.PointsRedeemed(); redeemed != nil {
		v := redeemed.Value()
		model.PointsRedeemed = &v
	}
	return model
}
