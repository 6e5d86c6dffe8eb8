package ledger

import (
	"strings"

	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// ===========================
// 外部識別符
// ===========================
//
// Shopify 的 customer / order id 是不透明的數字字串，不是 UUID，
// 因此不使用 shared.EntityID，改用字串值對象。

const customerGIDPrefix = "gid://shopify/Customer/"

// CustomerID 顧客識別符（外部平台提供，唯一鍵）
type CustomerID struct {
	value string
}

// NewCustomerID 建構函數
//
// 接受純數字 id 或 GraphQL global id（gid://shopify/Customer/123），
// 一律正規化為數字部分，確保 webhook 與 storefront 兩條路徑得到同一個鍵。
func NewCustomerID(raw string) (CustomerID, error) {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(v, customerGIDPrefix)
	if v == "" || strings.ContainsAny(v, " /") {
		return CustomerID{}, ErrInvalidCustomerID.WithContext("input", raw)
	}
	return CustomerID{value: v}, nil
}

// String 字串表示
func (c CustomerID) String() string {
	return c.value
}

// GID GraphQL global id
func (c CustomerID) GID() string {
	return customerGIDPrefix + c.value
}

// IsEmpty 是否為零值
func (c CustomerID) IsEmpty() bool {
	return c.value == ""
}

// ShopDomain 商店網域（租戶識別符）
type ShopDomain struct {
	value string
}

// NewShopDomain 建構函數（轉小寫）
func NewShopDomain(raw string) (ShopDomain, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return ShopDomain{}, ErrInvalidShop.WithContext("input", raw)
	}
	return ShopDomain{value: v}, nil
}

// String 字串表示
func (s ShopDomain) String() string {
	return s.value
}

// OrderID 外部訂單識別符
type OrderID struct {
	value string
}

// RedemptionOrderID 兌換交易使用的哨兵訂單 ID
const RedemptionOrderID = "REDEEM"

// NewOrderID 建構函數；哨兵值保留給兌換交易，不可作為真實訂單
func NewOrderID(raw string) (OrderID, error) {
	v := strings.TrimSpace(raw)
	if v == "" || v == RedemptionOrderID {
		return OrderID{}, ErrInvalidOrderID.WithContext("input", raw)
	}
	return OrderID{value: v}, nil
}

// String 字串表示
func (o OrderID) String() string {
	return o.value
}

// RequestID 兌換請求的冪等鍵（由調用者提供）
type RequestID struct {
	value string
}

const maxRequestIDLength = 128

// NewRequestID 建構函數
func NewRequestID(raw string) (RequestID, error) {
	v := strings.TrimSpace(raw)
	if v == "" || len(v) > maxRequestIDLength {
		return RequestID{}, ErrInvalidRequestID.WithContext("input", raw)
	}
	return RequestID{value: v}, nil
}

// String 字串表示
func (r RequestID) String() string {
	return r.value
}

// ===========================
// TransactionID - 交易記錄 ID
// ===========================

// TransactionMarker 是 TransactionID 的標記類型
type TransactionMarker struct{}

// TransactionID 交易記錄的唯一標識符
type TransactionID = shared.EntityID[TransactionMarker]

// NewTransactionID 生成新的交易 ID（UUID v4）
func NewTransactionID() TransactionID {
	return shared.NewEntityID[TransactionMarker]()
}

// TransactionIDFromString 從字串解析交易 ID
func TransactionIDFromString(s string) (TransactionID, error) {
	return shared.EntityIDFromString[TransactionMarker](s, ErrInvalidTransaction)
}
