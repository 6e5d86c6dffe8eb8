package ledger

import "time"

// ===========================
// RewardTransaction 實體
// ===========================

// 冪等鍵前綴
const (
	earnedKeyPrefix   = "order:"
	redeemedKeyPrefix = "redeem:"
)

// RewardTransaction 積分交易記錄（只追加，不更新、不刪除）
//
// 不變條件：
// - pointsEarned 與 pointsRedeemed 恰好其中之一有值
// - idempotencyKey 在同一顧客下唯一（資料庫唯一索引保證）
type RewardTransaction struct {
	id             TransactionID
	customerID     CustomerID
	orderID        string
	pointsEarned   *PointsAmount
	pointsRedeemed *PointsAmount
	idempotencyKey string
	createdAt      time.Time
}

// NewEarnedTransaction 建立累積交易
// 冪等鍵 = order:<orderID>，同一訂單只能入帳一次
func NewEarnedTransaction(customerID CustomerID, orderID OrderID, amount PointsAmount) *RewardTransaction {
	return &RewardTransaction{
		id:             NewTransactionID(),
		customerID:     customerID,
		orderID:        orderID.String(),
		pointsEarned:   &amount,
		idempotencyKey: earnedKeyPrefix + orderID.String(),
		createdAt:      time.Now(),
	}
}

// NewRedeemedTransaction 建立兌換交易
// orderID 固定為哨兵值，冪等鍵 = redeem:<requestID>
func NewRedeemedTransaction(customerID CustomerID, requestID RequestID, amount PointsAmount) *RewardTransaction {
	return &RewardTransaction{
		id:             NewTransactionID(),
		customerID:     customerID,
		orderID:        RedemptionOrderID,
		pointsRedeemed: &amount,
		idempotencyKey: redeemedKeyPrefix + requestID.String(),
		createdAt:      time.Now(),
	}
}

// ReconstructRewardTransaction 從持久化存儲重建（僅供 Infrastructure Layer 使用）
//
// 即使來自資料庫也要驗證互斥不變條件，防止損壞資料污染領域層
func ReconstructRewardTransaction(
	id TransactionID,
	customerID CustomerID,
	orderID string,
	pointsEarned *int,
	pointsRedeemed *int,
	idempotencyKey string,
	createdAt time.Time,
) (*RewardTransaction, error) {
	if (pointsEarned == nil) == (pointsRedeemed == nil) {
		return nil, ErrInvalidTransaction.WithContext("transaction_id", id.String())
	}

	tx := &RewardTransaction{
		id:             id,
		customerID:     customerID,
		orderID:        orderID,
		idempotencyKey: idempotencyKey,
		createdAt:      createdAt,
	}

	if pointsEarned != nil {
		amount, err := NewPointsAmount(*pointsEarned)
		if err != nil {
			return nil, ErrInvalidTransaction.WithContext("transaction_id", id.String(), "points_earned", *pointsEarned)
		}
		tx.pointsEarned = &amount
	}
	if pointsRedeemed != nil {
		amount, err := NewPointsAmount(*pointsRedeemed)
		if err != nil {
			return nil, ErrInvalidTransaction.WithContext("transaction_id", id.String(), "points_redeemed", *pointsRedeemed)
		}
		tx.pointsRedeemed = &amount
	}

	return tx, nil
}

// ID 獲取交易 ID
func (t *RewardTransaction) ID() TransactionID {
	return t.id
}

// CustomerID 獲取顧客 ID
func (t *RewardTransaction) CustomerID() CustomerID {
	return t.customerID
}

// OrderID 獲取訂單 ID（兌換交易為 RedemptionOrderID）
func (t *RewardTransaction) OrderID() string {
	return t.orderID
}

// PointsEarned 獲得積分（兌換交易返回 nil）
func (t *RewardTransaction) PointsEarned() *PointsAmount {
	return t.pointsEarned
}

// PointsRedeemed 兌換積分（累積交易返回 nil）
func (t *RewardTransaction) PointsRedeemed() *PointsAmount {
	return t.pointsRedeemed
}

// IdempotencyKey 冪等鍵
func (t *RewardTransaction) IdempotencyKey() string {
	return t.idempotencyKey
}

// CreatedAt 建立時間
func (t *RewardTransaction) CreatedAt() time.Time {
	return t.createdAt
}

// IsRedemption 是否為兌換交易
func (t *RewardTransaction) IsRedemption() bool {
	return t.pointsRedeemed != nil
}

// SignedDelta 帶符號的積分變化（獲得為正、兌換為負）
func (t *RewardTransaction) SignedDelta() int {
	if t.pointsEarned != nil {
		return t.pointsEarned.Value()
	}
	return -t.pointsRedeemed.Value()
}
