// Command vip-points 執行 VIP 積分帳本與兌換服務。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/jackyeh168/vip_points/src/internal/application/accrual"
	eligibilityapp "github.com/jackyeh168/vip_points/src/internal/application/eligibility"
	ledgerapp "github.com/jackyeh168/vip_points/src/internal/application/ledger"
	redemptionapp "github.com/jackyeh168/vip_points/src/internal/application/redemption"
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/infrastructure/config"
	"github.com/jackyeh168/vip_points/src/internal/infrastructure/observability"
	"github.com/jackyeh168/vip_points/src/internal/infrastructure/persistence"
	ledgerstore "github.com/jackyeh168/vip_points/src/internal/infrastructure/persistence/ledger"
	redemptionstore "github.com/jackyeh168/vip_points/src/internal/infrastructure/persistence/redemption"
	"github.com/jackyeh168/vip_points/src/internal/infrastructure/shopify"
	"github.com/jackyeh168/vip_points/src/internal/interfaces/httpapi"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "vip-points: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args, nil)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// 對平台的請求帶上 traceparent
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// ===== 儲存層 =====
	db, err := persistence.Open(persistence.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LogLevel:     cfg.Database.LogLevel,
	})
	if err != nil {
		return err
	}
	defer func() { _ = persistence.Close(db) }()

	models := append(ledgerstore.Models(), redemptionstore.Models()...)
	if err := persistence.Migrate(db, models...); err != nil {
		return err
	}

	// ===== 觀測 =====
	metrics := observability.NewMetrics("vip_points")
	recorder := observability.NewRecorder(logger, metrics)
	publisher := observability.NewEventPublisher(logger, metrics)

	// ===== 用例 =====
	ledgerService := ledgerapp.NewService(
		ledgerstore.NewVipCustomerRepository(db),
		ledgerstore.NewRewardTransactionRepository(db),
		persistence.NewGORMTransactionManager(db),
		publisher,
		recorder,
	)

	rate, err := ledger.ParseAccrualRate(cfg.Loyalty.AccrualRate)
	if err != nil {
		return err
	}

	platform := shopify.NewClient(shopify.Config{
		APIVersion:        cfg.Shopify.APIVersion,
		Timeout:           cfg.Shopify.Timeout,
		RequestsPerSecond: cfg.Shopify.RequestsPerSecond,
		Burst:             cfg.Shopify.Burst,
		CatalogPageSize:   cfg.Shopify.CatalogPageSize,
		Shops:             cfg.Shopify.ShopTokens(),
	})

	orders := accrual.NewHandler(
		platform,
		ledgerService,
		ledger.NewPointsCalculationService(rate),
		cfg.Loyalty.VIPTag,
		recorder,
	)
	orchestrator := redemptionapp.NewOrchestrator(
		ledgerService,
		platform,
		redemptionstore.NewRedemptionRepository(db),
		redemptionapp.WithRecorder(recorder),
		redemptionapp.WithCodePrefix(cfg.Loyalty.CodePrefix),
	)
	exclusions := eligibilityapp.NewExclusionAdmin(platform, platform, recorder)

	// ===== HTTP =====
	var defaultShop string
	if len(cfg.Shopify.Shops) == 1 {
		defaultShop = cfg.Shopify.Shops[0].Domain
	}
	apiCfg := httpapi.Config{
		Orders:         orders,
		Ledger:         ledgerService,
		Redeemer:       orchestrator,
		Exclusions:     exclusions,
		Logger:         logger,
		Middleware:     observability.NewHTTPMiddleware("vip-points", logger, metrics).Handler,
		DefaultShop:    defaultShop,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if cfg.Metrics.Enabled {
		apiCfg.Metrics = metrics.Handler()
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: httpapi.New(apiCfg).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting vip-points",
			zap.String("addr", cfg.Server.Addr),
			zap.String("db_driver", cfg.Database.Driver),
			zap.Int("shops", len(cfg.Shopify.Shops)),
			zap.String("accrual_rate", rate.String()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
