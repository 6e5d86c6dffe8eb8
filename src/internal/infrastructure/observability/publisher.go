package observability

import (
	"context"

	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
	"go.uber.org/zap"
)

// EventPublisher 將領域事件寫入日誌並計數
//
// 目前沒有外部訂閱者；事件是帳本變更的稽核軌跡。
type EventPublisher struct {
	logger  *zap.Logger
	metrics *Metrics
}

// NewEventPublisher 建立事件發布器
func NewEventPublisher(logger *zap.Logger, metrics *Metrics) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{logger: logger.Named("events"), metrics: metrics}
}

// Publish 實現 shared.EventPublisher
func (p *EventPublisher) Publish(_ context.Context, event shared.DomainEvent) error {
	p.metrics.countEvent(event.EventType())
	p.logger.Info("domain event",
		zap.String("event_id", event.EventID()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// PublishBatch 實現 shared.EventPublisher
func (p *EventPublisher) PublishBatch(ctx context.Context, events []shared.DomainEvent) error {
	for _, e := range events {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
