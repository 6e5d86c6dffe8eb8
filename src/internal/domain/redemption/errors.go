package redemption

import "github.com/jackyeh168/vip_points/src/internal/domain/shared"

// 錯誤代碼常量
const (
	ErrCodeIssuanceFailed     shared.ErrorCode = "ISSUANCE_FAILED"
	ErrCodeSettlementFailed   shared.ErrorCode = "SETTLEMENT_FAILED"
	ErrCodeRedemptionNotFound shared.ErrorCode = "REDEMPTION_NOT_FOUND"
	ErrCodeInvalidTransition  shared.ErrorCode = "REDEMPTION_INVALID_TRANSITION"
	ErrCodeRedemptionConflict shared.ErrorCode = "REDEMPTION_CONFLICT"
	ErrCodeRedemptionExists   shared.ErrorCode = "REDEMPTION_EXISTS"
	ErrCodeInvalidStatus      shared.ErrorCode = "REDEMPTION_STATUS_INVALID"
)

var (
	// ErrIssuanceFailed 平台拒絕或無法建立折扣碼
	// 沒有任何帳本變更，可從頭重試整個兌換
	ErrIssuanceFailed = &shared.DomainError{
		Code:    ErrCodeIssuanceFailed,
		Message: "折扣碼建立失敗",
	}

	// ErrSettlementFailed 折扣碼已建立但扣點未完成
	// 不可當作新兌換重試（會重複發碼），需人工或 ResumeSettlement 對帳
	ErrSettlementFailed = &shared.DomainError{
		Code:    ErrCodeSettlementFailed,
		Message: "折扣碼已建立但積分扣除失敗，需要對帳",
	}

	ErrRedemptionNotFound = &shared.DomainError{
		Code:    ErrCodeRedemptionNotFound,
		Message: "兌換記錄不存在",
	}

	ErrInvalidTransition = &shared.DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: "兌換狀態轉換無效",
	}

	// ErrRedemptionConflict 同一 requestID 以不同參數重送
	ErrRedemptionConflict = &shared.DomainError{
		Code:    ErrCodeRedemptionConflict,
		Message: "相同請求 ID 的兌換參數不一致",
	}

	// ErrRedemptionAlreadyExists 同一 (customerID, requestID) 已有記錄
	ErrRedemptionAlreadyExists = &shared.DomainError{
		Code:    ErrCodeRedemptionExists,
		Message: "兌換記錄已存在",
	}

	ErrInvalidStatus = &shared.DomainError{
		Code:    ErrCodeInvalidStatus,
		Message: "無效的兌換狀態",
	}
)

// IssuanceRejection 平台回報的使用者錯誤
type IssuanceRejection struct {
	Field   []string
	Message string
}

// IssuanceRejectedError 平台以 userErrors 拒絕建立折扣碼
type IssuanceRejectedError struct {
	Rejections []IssuanceRejection
}

// Error 實現 error 接口
func (e *IssuanceRejectedError) Error() string {
	msg := "discount code rejected"
	for i, r := range e.Rejections {
		if i == 0 {
			msg += ": "
		} else {
			msg += "; "
		}
		msg += r.Message
	}
	return msg
}

// Messages 使用者可見的錯誤訊息
func (e *IssuanceRejectedError) Messages() []string {
	out := make([]string, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		out = append(out, r.Message)
	}
	return out
}
