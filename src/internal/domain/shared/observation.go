package shared

import "context"

// Operation 一次業務操作的結構化觀測記錄
//
// 以 (Name, CustomerID, Outcome) 為索引鍵；
// Fields 放置操作特有的數據（orderId、points、discountCode 等）。
type Operation struct {
	Name       string
	CustomerID string
	Outcome    string
	Fields     map[string]interface{}
	Err        error
}

// OperationRecorder 觀測邊界
//
// 注入到 Ledger、Accrual Handler、Redemption Orchestrator，
// 取代散落在控制流程中的日誌呼叫。
type OperationRecorder interface {
	RecordOperation(ctx context.Context, op Operation)
}

// NopRecorder 不做任何事的 Recorder（測試與未配置時使用）
type NopRecorder struct{}

// RecordOperation 實現 OperationRecorder
func (NopRecorder) RecordOperation(context.Context, Operation) {}

// NopPublisher 不做任何事的 EventPublisher
type NopPublisher struct{}

// Publish 實現 EventPublisher
func (NopPublisher) Publish(context.Context, DomainEvent) error { return nil }

// PublishBatch 實現 EventPublisher
func (NopPublisher) PublishBatch(context.Context, []DomainEvent) error { return nil }
