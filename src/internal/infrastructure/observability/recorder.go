package observability

import (
	"context"
	"sort"

	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Recorder 以 zap 記錄、以 Prometheus 計數的 shared.OperationRecorder
type Recorder struct {
	logger  *zap.Logger
	metrics *Metrics
}

// NewRecorder 建立 Recorder；metrics 可為 nil
func NewRecorder(logger *zap.Logger, metrics *Metrics) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger, metrics: metrics}
}

// RecordOperation 實現 shared.OperationRecorder
func (r *Recorder) RecordOperation(ctx context.Context, op shared.Operation) {
	r.metrics.countOperation(op.Name, op.Outcome)

	fields := make([]zap.Field, 0, len(op.Fields)+5)
	fields = append(fields,
		zap.String("operation", op.Name),
		zap.String("outcome", op.Outcome),
	)
	if op.CustomerID != "" {
		fields = append(fields, zap.String("customer_id", op.CustomerID))
	}
	keys := make([]string, 0, len(op.Fields))
	for k := range op.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, op.Fields[k]))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	if op.Err != nil {
		fields = append(fields, zap.Error(op.Err))
	}

	if ce := r.logger.Check(levelFor(op), op.Name); ce != nil {
		ce.Write(fields...)
	}
}

// levelFor 結果對應的日誌等級
//
// settlement_failed 代表已發出折扣碼但沒有扣點，必須人工對帳
func levelFor(op shared.Operation) zapcore.Level {
	switch op.Outcome {
	case "settlement_failed", "error":
		return zapcore.ErrorLevel
	case "record_stale", "drift", "issuance_failed":
		return zapcore.WarnLevel
	}
	if op.Err != nil {
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}
