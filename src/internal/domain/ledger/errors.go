package ledger

import "github.com/jackyeh168/vip_points/src/internal/domain/shared"

// ===========================
// 錯誤代碼定義
// ===========================

// 錯誤代碼常量
const (
	// 積分數量相關
	ErrCodeNegativePointsAmount shared.ErrorCode = "POINTS_NEGATIVE"
	ErrCodePointsOverflow       shared.ErrorCode = "POINTS_OVERFLOW"
	ErrCodeInsufficientBalance  shared.ErrorCode = "INSUFFICIENT_BALANCE"

	// 累積倍率相關
	ErrCodeInvalidAccrualRate shared.ErrorCode = "ACCRUAL_RATE_INVALID"

	// 識別符相關
	ErrCodeInvalidCustomerID shared.ErrorCode = "CUSTOMER_ID_INVALID"
	ErrCodeInvalidShop       shared.ErrorCode = "SHOP_INVALID"
	ErrCodeInvalidOrderID    shared.ErrorCode = "ORDER_ID_INVALID"
	ErrCodeInvalidRequestID  shared.ErrorCode = "REQUEST_ID_INVALID"

	// 資料一致性相關
	ErrCodeCorruptedBalance     shared.ErrorCode = "BALANCE_CORRUPTED"
	ErrCodeInvalidTransaction   shared.ErrorCode = "TRANSACTION_INVALID"
	ErrCodeDuplicateTransaction shared.ErrorCode = "TRANSACTION_DUPLICATE"

	// Repository 相關
	ErrCodeCustomerNotFound shared.ErrorCode = "CUSTOMER_NOT_FOUND"
	ErrCodeRepositoryError  shared.ErrorCode = "REPOSITORY_ERROR"
)

// ===========================
// 預定義錯誤
// ===========================

// 積分數量相關錯誤
var (
	ErrNegativePointsAmount = &shared.DomainError{
		Code:    ErrCodeNegativePointsAmount,
		Message: "積分數量不能為負數",
	}

	ErrPointsOverflow = &shared.DomainError{
		Code:    ErrCodePointsOverflow,
		Message: "積分數量超出上限",
	}

	// ErrInsufficientBalance 餘額不足（或顧客不存在）
	// 對外為 400 類錯誤，且保證沒有任何副作用
	ErrInsufficientBalance = &shared.DomainError{
		Code:    ErrCodeInsufficientBalance,
		Message: "積分餘額不足",
	}
)

// 累積倍率相關錯誤
var (
	ErrInvalidAccrualRate = &shared.DomainError{
		Code:    ErrCodeInvalidAccrualRate,
		Message: "累積倍率必須大於 0 且不超過 1000",
	}
)

// 識別符相關錯誤
var (
	ErrInvalidCustomerID = &shared.DomainError{
		Code:    ErrCodeInvalidCustomerID,
		Message: "無效的顧客 ID",
	}

	ErrInvalidShop = &shared.DomainError{
		Code:    ErrCodeInvalidShop,
		Message: "無效的商店網域",
	}

	ErrInvalidOrderID = &shared.DomainError{
		Code:    ErrCodeInvalidOrderID,
		Message: "無效的訂單 ID",
	}

	ErrInvalidRequestID = &shared.DomainError{
		Code:    ErrCodeInvalidRequestID,
		Message: "無效的請求 ID",
	}
)

// 資料一致性相關錯誤
var (
	ErrCorruptedBalance = &shared.DomainError{
		Code:    ErrCodeCorruptedBalance,
		Message: "資料庫中的積分餘額已損壞",
	}

	ErrInvalidTransaction = &shared.DomainError{
		Code:    ErrCodeInvalidTransaction,
		Message: "交易記錄必須恰好包含獲得或兌換其中之一",
	}

	// ErrDuplicateTransaction 相同冪等鍵的交易已存在
	// 累積：同一訂單重複投遞；兌換：同一請求重複結算
	ErrDuplicateTransaction = &shared.DomainError{
		Code:    ErrCodeDuplicateTransaction,
		Message: "交易已處理過",
	}
)

// Repository 錯誤
var (
	ErrCustomerNotFound = &shared.DomainError{
		Code:    ErrCodeCustomerNotFound,
		Message: "VIP 顧客不存在",
	}

	ErrRepositoryError = &shared.DomainError{
		Code:    ErrCodeRepositoryError,
		Message: "倉儲操作失敗",
	}
)
