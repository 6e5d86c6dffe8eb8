package redemption

import (
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/redemption"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
	"github.com/jackyeh168/vip_points/src/internal/infrastructure/persistence"
	"gorm.io/gorm"
)

// RedemptionRepositoryImpl 兌換記錄倉儲實現（GORM）
//
// 狀態變更一律是條件更新（WHERE status = from），
// 兩個並行的重試不會互相覆寫對方的結果。
type RedemptionRepositoryImpl struct {
	db *gorm.DB
}

// NewRedemptionRepository 創建兌換記錄倉儲實例
func NewRedemptionRepository(db *gorm.DB) redemption.RedemptionRepository {
	return &RedemptionRepositoryImpl{db: db}
}

// Create 保存新記錄
//
// 錯誤處理：
// - UNIQUE constraint / 主鍵衝突 → ErrRedemptionAlreadyExists
func (r *RedemptionRepositoryImpl) Create(tx shared.TransactionContext, rec *redemption.Redemption) error {
	db := persistence.ResolveDB(tx, r.db)

	model, err := toGORM(rec)
	if err != nil {
		return err
	}
	if result := db.Create(model); result.Error != nil {
		if persistence.IsUniqueConstraintError(result.Error) {
			return redemption.ErrRedemptionAlreadyExists.WithContext(
				"customer_id", model.CustomerID,
				"request_id", model.RequestID,
			)
		}
		return ledger.ErrRepositoryError.Wrap(result.Error, "operation", "create_redemption")
	}
	return nil
}

// Find 依 (customerID, requestID) 查詢
func (r *RedemptionRepositoryImpl) Find(tx shared.TransactionContext, customerID ledger.CustomerID, requestID ledger.RequestID) (*redemption.Redemption, error) {
	db := persistence.ResolveDB(tx, r.db)

	var model RedemptionGORM
	result := db.Where("customer_id = ? AND request_id = ?", customerID.String(), requestID.String()).First(&model)
	if result.Error != nil {
		if persistence.IsNotFound(result.Error) {
			return nil, redemption.ErrRedemptionNotFound.WithContext(
				"customer_id", customerID.String(),
				"request_id", requestID.String(),
			)
		}
		return nil, ledger.ErrRepositoryError.Wrap(result.Error, "operation", "find_redemption")
	}
	return model.toDomain()
}

// Transition 條件更新狀態
//
// 實作邏輯：
//
//	UPDATE redemptions SET status = ?, ... WHERE customer_id = ? AND request_id = ? AND status = ?
//
// 影響 0 列 → ErrInvalidTransition（記錄不存在或狀態已被改變）
func (r *RedemptionRepositoryImpl) Transition(tx shared.TransactionContext, rec *redemption.Redemption, from redemption.Status) error {
	db := persistence.ResolveDB(tx, r.db)

	model, err := toGORM(rec)
	if err != nil {
		return err
	}
	result := db.Model(&RedemptionGORM{}).
		Where("customer_id = ? AND request_id = ? AND status = ?", model.CustomerID, model.RequestID, from.String()).
		Updates(map[string]interface{}{
			"status":               model.Status,
			"eligible_variant_ids": model.EligibleVariantIDs,
			"failure_reason":       model.FailureReason,
			"updated_at":           model.UpdatedAt,
		})
	if result.Error != nil {
		return ledger.ErrRepositoryError.Wrap(result.Error, "operation", "transition_redemption")
	}
	if result.RowsAffected == 0 {
		return redemption.ErrInvalidTransition.WithContext(
			"customer_id", model.CustomerID,
			"request_id", model.RequestID,
			"from", from.String(),
			"to", model.Status,
		)
	}
	return nil
}

// ListByStatus 依建立時間列出指定狀態的記錄
func (r *RedemptionRepositoryImpl) ListByStatus(tx shared.TransactionContext, statuses ...redemption.Status) ([]*redemption.Redemption, error) {
	db := persistence.ResolveDB(tx, r.db)

	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, s.String())
	}

	var models []RedemptionGORM
	if len(values) > 0 {
		result := db.Where("status IN ?", values).Order("created_at ASC").Find(&models)
		if result.Error != nil {
			return nil, ledger.ErrRepositoryError.Wrap(result.Error, "operation", "list_redemptions")
		}
	}

	records := make([]*redemption.Redemption, 0, len(models))
	for i := range models {
		rec, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
