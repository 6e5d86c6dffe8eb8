package ledger

import (
	"time"

	"github.com/google/uuid"
)

// 事件類型
const (
	EventTypeCustomerEnrolled = "ledger.customer_enrolled"
	EventTypePointsCredited   = "ledger.points_credited"
	EventTypePointsDebited    = "ledger.points_debited"
)

// baseEvent 領域事件共用欄位
type baseEvent struct {
	eventID    string
	customerID CustomerID
	occurredAt time.Time
}

func newBaseEvent(customerID CustomerID) baseEvent {
	return baseEvent{
		eventID:    uuid.New().String(),
		customerID: customerID,
		occurredAt: time.Now(),
	}
}

// EventID 實現 DomainEvent 介面
func (e baseEvent) EventID() string {
	return e.eventID
}

// OccurredAt 實現 DomainEvent 介面
func (e baseEvent) OccurredAt() time.Time {
	return e.occurredAt
}

// AggregateID 實現 DomainEvent 介面
func (e baseEvent) AggregateID() string {
	return e.customerID.String()
}

// CustomerID 獲取顧客 ID
func (e baseEvent) CustomerID() CustomerID {
	return e.customerID
}

// ===========================
// CustomerEnrolled
// ===========================

// CustomerEnrolledEvent 顧客首次入帳
type CustomerEnrolledEvent struct {
	baseEvent
	shop ShopDomain
}

// NewCustomerEnrolledEvent 建立事件
func NewCustomerEnrolledEvent(customerID CustomerID, shop ShopDomain) *CustomerEnrolledEvent {
	return &CustomerEnrolledEvent{baseEvent: newBaseEvent(customerID), shop: shop}
}

// EventType 實現 DomainEvent 介面
func (e *CustomerEnrolledEvent) EventType() string {
	return EventTypeCustomerEnrolled
}

// Shop 所屬商店
func (e *CustomerEnrolledEvent) Shop() ShopDomain {
	return e.shop
}

// ===========================
// PointsCredited
// ===========================

// PointsCreditedEvent 訂單積分已入帳
type PointsCreditedEvent struct {
	baseEvent
	orderID OrderID
	amount  PointsAmount
	balance PointsAmount
}

// NewPointsCreditedEvent 建立事件
func NewPointsCreditedEvent(customerID CustomerID, orderID OrderID, amount, balance PointsAmount) *PointsCreditedEvent {
	return &PointsCreditedEvent{
		baseEvent: newBaseEvent(customerID),
		orderID:   orderID,
		amount:    amount,
		balance:   balance,
	}
}

// EventType 實現 DomainEvent 介面
func (e *PointsCreditedEvent) EventType() string {
	return EventTypePointsCredited
}

// OrderID 訂單 ID
func (e *PointsCreditedEvent) OrderID() OrderID {
	return e.orderID
}

// Amount 入帳積分
func (e *PointsCreditedEvent) Amount() PointsAmount {
	return e.amount
}

// Balance 入帳後餘額
func (e *PointsCreditedEvent) Balance() PointsAmount {
	return e.balance
}

// ===========================
// PointsDebited
// ===========================

// PointsDebitedEvent 兌換積分已扣除
type PointsDebitedEvent struct {
	baseEvent
	requestID RequestID
	amount    PointsAmount
	balance   PointsAmount
}

// NewPointsDebitedEvent 建立事件
func NewPointsDebitedEvent(customerID CustomerID, requestID RequestID, amount, balance PointsAmount) *PointsDebitedEvent {
	return &PointsDebitedEvent{
		baseEvent: newBaseEvent(customerID),
		requestID: requestID,
		amount:    amount,
		balance:   balance,
	}
}

// EventType 實現 DomainEvent 介面
func (e *PointsDebitedEvent) EventType() string {
	return EventTypePointsDebited
}

// RequestID 兌換請求 ID
func (e *PointsDebitedEvent) RequestID() RequestID {
	return e.requestID
}

// Amount 扣除積分
func (e *PointsDebitedEvent) Amount() PointsAmount {
	return e.amount
}

// Balance 扣除後餘額
func (e *PointsDebitedEvent) Balance() PointsAmount {
	return e.balance
}
