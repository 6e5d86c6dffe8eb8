package redemption

import (
	"encoding/json"
	"time"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/redemption"
	"gorm.io/datatypes"
)

// RedemptionGORM 兌換記錄資料表模型
//
// 資料庫約束：
// - (customer_id, request_id): 複合主鍵，一個兌換意圖一筆記錄
// - discount_code: 唯一（由鍵確定性推導）
// - eligible_variant_ids: JSON 陣列（發碼時的可兌換範圍）
type RedemptionGORM struct {
	CustomerID         string         `gorm:"column:customer_id;type:varchar(64);primaryKey"`
	RequestID          string         `gorm:"column:request_id;type:varchar(128);primaryKey"`
	Shop               string         `gorm:"column:shop;type:varchar(255);not null"`
	Points             int            `gorm:"column:points;not null;check:chk_redemptions_points,points > 0"`
	DiscountCode       string         `gorm:"column:discount_code;type:varchar(255);not null;uniqueIndex"`
	Status             string         `gorm:"column:status;type:varchar(32);not null;index"`
	EligibleVariantIDs datatypes.JSON `gorm:"column:eligible_variant_ids"`
	FailureReason      string         `gorm:"column:failure_reason;type:text"`
	CreatedAt          time.Time      `gorm:"column:created_at;not null;index"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;not null"`
}

// TableName 指定資料表名稱
func (RedemptionGORM) TableName() string {
	return "redemptions"
}

// Models 本套件需要遷移的模型
func Models() []interface{} {
	return []interface{}{&RedemptionGORM{}}
}

// ===========================
// Mapper Functions
// ===========================

func (g *RedemptionGORM) toDomain() (*redemption.Redemption, error) {
	customerID, err := ledger.NewCustomerID(g.CustomerID)
	if err != nil {
		return nil, err
	}
	requestID, err := ledger.NewRequestID(g.RequestID)
	if err != nil {
		return nil, err
	}
	shop, err := ledger.NewShopDomain(g.Shop)
	if err != nil {
		return nil, err
	}
	points, err := ledger.NewPointsAmount(g.Points)
	if err != nil {
		return nil, err
	}
	status, err := redemption.ParseStatus(g.Status)
	if err != nil {
		return nil, err
	}

	var eligible []string
	if len(g.EligibleVariantIDs) > 0 {
		if err := json.Unmarshal(g.EligibleVariantIDs, &eligible); err != nil {
			return nil, ledger.ErrRepositoryError.Wrap(err, "field", "eligible_variant_ids")
		}
	}

	return redemption.ReconstructRedemption(
		customerID,
		requestID,
		shop,
		points,
		g.DiscountCode,
		status,
		eligible,
		g.FailureReason,
		g.CreatedAt,
		g.UpdatedAt,
	), nil
}

func toGORM(r *redemption.Redemption) (*RedemptionGORM, error) {
	eligible, err := json.Marshal(r.EligibleVariantIDs())
	if err != nil {
		return nil, err
	}
	return &RedemptionGORM{
		CustomerID:         r.CustomerID().String(),
		RequestID:          r.RequestID().String(),
		Shop:               r.Shop().String(),
		Points:             r.Points().Value(),
		DiscountCode:       r.Code(),
		Status:             r.Status().String(),
		EligibleVariantIDs: datatypes.JSON(eligible),
		FailureReason:      r.FailureReason(),
		CreatedAt:          r.CreatedAt(),
		UpdatedAt:          r.UpdatedAt(),
	}, nil
}
