package eligibility

import "github.com/jackyeh168/vip_points/src/internal/domain/shared"

// 錯誤代碼常量
const (
	ErrCodeStoredConfigInvalid shared.ErrorCode = "EXCLUSION_CONFIG_INVALID"
)

var (
	// ErrStoredConfigInvalid 平台上儲存的排除設定無法解碼（格式損壞或版本不支援）
	// 屬於內部資料問題，不是請求輸入錯誤
	ErrStoredConfigInvalid = &shared.DomainError{
		Code:    ErrCodeStoredConfigInvalid,
		Message: "排除設定無法解碼",
	}
)
