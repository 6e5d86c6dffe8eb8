package ledger

import "time"

// ===========================
// VipCustomer 聚合根
// ===========================

// VipCustomer VIP 顧客積分聚合根
//
// 設計原則：
// 1. 輕量級聚合：交易記錄儲存在獨立表，不載入到聚合內
// 2. 不變條件：rewardPoints >= 0
// 3. 餘額只能經由 Repository 的原子 SQL 變更（ApplyCredit / ApplyDebit），
//    聚合本身是唯讀快照，不提供 Save 式整體覆寫
//
// 業務不變條件：
// - rewardPoints = Σ pointsEarned − Σ pointsRedeemed（由 Ledger 在同一事務內維持）
// - customerID 唯一
type VipCustomer struct {
	customerID   CustomerID
	shop         ShopDomain
	rewardPoints PointsAmount

	createdAt time.Time
	updatedAt time.Time
}

// ReconstructVipCustomer 從持久化存儲重建（僅供 Infrastructure Layer 使用）
//
// 負數餘額代表資料已損壞，返回 ErrCorruptedBalance
func ReconstructVipCustomer(
	customerID CustomerID,
	shop ShopDomain,
	rewardPoints int,
	createdAt time.Time,
	updatedAt time.Time,
) (*VipCustomer, error) {
	points, err := NewPointsAmount(rewardPoints)
	if err != nil {
		return nil, ErrCorruptedBalance.WithContext(
			"customer_id", customerID.String(),
			"reward_points", rewardPoints,
		)
	}

	return &VipCustomer{
		customerID:   customerID,
		shop:         shop,
		rewardPoints: points,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}, nil
}

// ===========================
// 查詢方法
// ===========================

// CustomerID 獲取顧客 ID
func (c *VipCustomer) CustomerID() CustomerID {
	return c.customerID
}

// Shop 獲取所屬商店
func (c *VipCustomer) Shop() ShopDomain {
	return c.shop
}

// RewardPoints 獲取當前餘額
func (c *VipCustomer) RewardPoints() PointsAmount {
	return c.rewardPoints
}

// CreatedAt 獲取建立時間
func (c *VipCustomer) CreatedAt() time.Time {
	return c.createdAt
}

// UpdatedAt 獲取最後更新時間
func (c *VipCustomer) UpdatedAt() time.Time {
	return c.updatedAt
}

// BalanceAfterCredit 入帳後的餘額；超出整數範圍返回 ErrPointsOverflow
func (c *VipCustomer) BalanceAfterCredit(amount PointsAmount) (PointsAmount, error) {
	return c.rewardPoints.Add(amount)
}

// BalanceAfterDebit 扣點後的餘額；餘額不足返回 ErrInsufficientBalance（含 available）
func (c *VipCustomer) BalanceAfterDebit(amount PointsAmount) (PointsAmount, error) {
	return c.rewardPoints.Subtract(amount)
}

// ===========================
// 對帳
// ===========================

// Reconciliation 餘額與交易記錄的對帳結果
type Reconciliation struct {
	Balance    int
	Earned     int
	Redeemed   int
	Expected   int
	Consistent bool
}

// Reconcile 以交易記錄合計驗證餘額
//
// 不變條件：rewardPoints == Σ pointsEarned − Σ pointsRedeemed
func (c *VipCustomer) Reconcile(earned, redeemed int) Reconciliation {
	expected := earned - redeemed
	return Reconciliation{
		Balance:    c.rewardPoints.Value(),
		Earned:     earned,
		Redeemed:   redeemed,
		Expected:   expected,
		Consistent: expected == c.rewardPoints.Value(),
	}
}
