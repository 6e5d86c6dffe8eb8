// Package httpapi 對外的 HTTP 介面：訂單 webhook、積分查詢、兌換與營運管理端點。
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jackyeh168/vip_points/src/internal/application/accrual"
	eligibilityapp "github.com/jackyeh168/vip_points/src/internal/application/eligibility"
	ledgerapp "github.com/jackyeh168/vip_points/src/internal/application/ledger"
	redemptionapp "github.com/jackyeh168/vip_points/src/internal/application/redemption"
	"github.com/jackyeh168/vip_points/src/internal/domain/eligibility"
)

// ===========================
// 用例介面
// ===========================

// OrderHandler 訂單入帳
type OrderHandler interface {
	Handle(ctx context.Context, event accrual.OrderCompletedEvent) (*accrual.Result, error)
}

// Ledger 帳本查詢
type Ledger interface {
	GetBalance(ctx context.Context, customerID string) (*ledgerapp.BalanceResult, error)
	Reconcile(ctx context.Context, customerID string) (*ledgerapp.ReconciliationResult, error)
	History(ctx context.Context, customerID string) ([]ledgerapp.TransactionView, error)
	Ping(ctx context.Context) error
}

// Redeemer 兌換與對帳
type Redeemer interface {
	Redeem(ctx context.Context, cmd redemptionapp.RedeemCommand) (*redemptionapp.RedeemResult, error)
	ResumeSettlement(ctx context.Context, customerID, requestID string) (*redemptionapp.RedeemResult, error)
	ListUnsettled(ctx context.Context) ([]redemptionapp.RedemptionView, error)
}

// ExclusionAdmin 排除設定管理
type ExclusionAdmin interface {
	Get(ctx context.Context, shop string) (*eligibilityapp.ExclusionsView, error)
	Put(ctx context.Context, shop string, variantIDs []string) (eligibility.ExclusionConfig, error)
}

// ===========================
// Server
// ===========================

// Config 建立 Server 所需的依賴
type Config struct {
	Orders     OrderHandler
	Ledger     Ledger
	Redeemer   Redeemer
	Exclusions ExclusionAdmin

	Logger *zap.Logger
	// Middleware 觀測中介層（可為 nil）
	Middleware func(http.Handler) http.Handler
	// Metrics /metrics 端點（為 nil 時不註冊）
	Metrics http.Handler
	// DefaultShop 管理端點未指定商店時使用（只設定一間商店時）
	DefaultShop    string
	RequestTimeout time.Duration
}

// Server HTTP 介面
type Server struct {
	orders      OrderHandler
	ledger      Ledger
	redeemer    Redeemer
	exclusions  ExclusionAdmin
	logger      *zap.Logger
	defaultShop string
	router      http.Handler
}

// New 建立 Server 並組裝路由
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	s := &Server{
		orders:      cfg.Orders,
		ledger:      cfg.Ledger,
		redeemer:    cfg.Redeemer,
		exclusions:  cfg.Exclusions,
		logger:      cfg.Logger,
		defaultShop: cfg.DefaultShop,
	}
	s.router = s.buildRouter(cfg)
	return s
}

// Handler 已組裝的路由
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.Middleware != nil {
		r.Use(cfg.Middleware)
	}
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.Health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(api chi.Router) {
		api.Use(chimw.Timeout(cfg.RequestTimeout))

		api.Post("/webhooks/orders/create", s.OrderCreated)
		api.Get("/api/vip-points", s.PointsBalance)
		api.Post("/redeem-points", s.RedeemPoints)

		api.Route("/admin", func(admin chi.Router) {
			admin.Get("/exclusions", s.GetExclusions)
			admin.Put("/exclusions", s.PutExclusions)
			admin.Get("/customers/{customerId}/ledger", s.CustomerLedger)
			admin.Get("/redemptions/unsettled", s.UnsettledRedemptions)
			admin.Post("/customers/{customerId}/redemptions/{requestId}/settle", s.ResumeSettlement)
		})
	})

	return r
}

// Health 存活檢查（含資料庫）
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
