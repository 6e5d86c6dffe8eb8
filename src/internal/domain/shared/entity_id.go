package shared

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// EntityID 以 UUID 為底的實體識別符
//
// 標記類型 T 讓不同實體的 ID 無法互相指派（TransactionID 不能當作其他 ID 使用）。
// 外部平台的識別符（Shopify customer / order id）不是 UUID，各自使用字串值對象。
type EntityID[T any] struct {
	value uuid.UUID
}

// NewEntityID 隨機產生（UUID v4）
func NewEntityID[T any]() EntityID[T] {
	return EntityID[T]{value: uuid.New()}
}

// NewNamedEntityID 由 (namespace, name) 推導（UUID v5），同樣的輸入永遠得到同樣的 ID
func NewNamedEntityID[T any](namespace uuid.UUID, name string) EntityID[T] {
	return EntityID[T]{value: uuid.NewSHA1(namespace, []byte(name))}
}

// EntityIDFromString 解析資料庫或請求中的 UUID 字串
//
// 解析失敗時返回 invalid 附上 input 與 parse_error。
func EntityIDFromString[T any](s string, invalid *DomainError) (EntityID[T], error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return EntityID[T]{}, invalid.WithContext("input", s, "parse_error", err.Error())
	}
	return EntityID[T]{value: id}, nil
}

// String 小寫、含連字號的標準格式
func (e EntityID[T]) String() string {
	return e.value.String()
}

// Hex 32 位小寫十六進位，不含連字號
func (e EntityID[T]) Hex() string {
	return hex.EncodeToString(e.value[:])
}

func (e EntityID[T]) Equals(other EntityID[T]) bool {
	return e.value == other.value
}

// IsEmpty 零值
func (e EntityID[T]) IsEmpty() bool {
	return e.value == uuid.Nil
}
