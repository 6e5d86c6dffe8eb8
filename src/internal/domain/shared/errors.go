package shared

import "fmt"

// ===========================
// 錯誤代碼定義
// ===========================

// ErrorCode 錯誤代碼類型（用於 HTTP 狀態碼映射與日誌分類）
type ErrorCode string

// 跨 bounded context 共用的錯誤代碼
const (
	ErrCodeInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
)

// ===========================
// DomainError 結構
// ===========================

// DomainError 領域錯誤
//
// 設計原則：
// 1. 包含結構化的錯誤代碼（用於 HTTP 狀態碼映射）
// 2. 支持上下文信息（用於調試和日誌）
// 3. 不可變性（WithContext / Wrap 返回新實例）
// 4. Cause 保留底層錯誤，errors.Is 會沿 Unwrap 鏈繼續比對
type DomainError struct {
	Code    ErrorCode
	Message string
	Context map[string]interface{}
	Cause   error
}

// Error 實現 error 接口
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Context) > 0 {
		msg = fmt.Sprintf("%s (context: %+v)", msg, e.Context)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// WithContext 添加上下文信息（返回新的錯誤實例，保持不可變性）
func (e *DomainError) WithContext(keyValues ...interface{}) error {
	return e.clone(keyValues...)
}

// Wrap 附加底層錯誤（返回新的錯誤實例）
func (e *DomainError) Wrap(cause error, keyValues ...interface{}) error {
	c := e.clone(keyValues...)
	c.Cause = cause
	return c
}

func (e *DomainError) clone(keyValues ...interface{}) *DomainError {
	if len(keyValues)%2 != 0 {
		panic("WithContext requires even number of arguments (key-value pairs)")
	}

	ctx := make(map[string]interface{}, len(e.Context)+len(keyValues)/2)
	for k, v := range e.Context {
		ctx[k] = v
	}
	for i := 0; i < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			panic(fmt.Sprintf("context key must be string, got %T", keyValues[i]))
		}
		ctx[key] = keyValues[i+1]
	}

	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Context: ctx,
		Cause:   e.Cause,
	}
}

// Is 實現 errors.Is 接口（用於錯誤類型判斷，只比較 Code）
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Unwrap 返回底層錯誤
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// ===========================
// 預定義錯誤
// ===========================

var (
	// ErrInvalidInput 輸入缺漏或格式錯誤
	// 查詢邊界視為預設值（如餘額 0），寫入邊界視為拒絕
	ErrInvalidInput = &DomainError{
		Code:    ErrCodeInvalidInput,
		Message: "無效的輸入",
	}

	// ErrUpstreamUnavailable 與商務平台或儲存層通訊失敗
	ErrUpstreamUnavailable = &DomainError{
		Code:    ErrCodeUpstreamUnavailable,
		Message: "上游服務不可用",
	}
)
