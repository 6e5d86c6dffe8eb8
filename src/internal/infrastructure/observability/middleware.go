package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HTTPMiddleware 為每個請求建立 span、記錄指標與存取日誌
type HTTPMiddleware struct {
	logger  *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// NewHTTPMiddleware 建立 HTTP 觀測中介層
func NewHTTPMiddleware(serviceName string, logger *zap.Logger, metrics *Metrics) *HTTPMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	if serviceName == "" {
		serviceName = "vip-points"
	}
	return &HTTPMiddleware{
		logger:  logger.Named("http"),
		metrics: metrics,
		tracer:  otel.Tracer(serviceName),
	}
}

// Handler chi 中介層
//
// 路由樣板（例如 /api/customers/{customerId}/points）在 next 執行後才可得，
// 所以 span 先以 method 命名，結束前再改名。
func (m *HTTPMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := m.tracer.Start(r.Context(), r.Method, trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			))
		defer span.End()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		route := routePattern(r)
		span.SetName(r.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", recorder.status),
		)
		if recorder.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(recorder.status))
		}

		duration := time.Since(start)
		if m.metrics != nil {
			m.metrics.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(recorder.status)).Inc()
			m.metrics.httpDurations.WithLabelValues(route, r.Method).Observe(duration.Seconds())
		}
		m.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", recorder.status),
			zap.Duration("duration", duration),
		)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}
