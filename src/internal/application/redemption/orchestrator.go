// Package redemption 協調一次兌換：驗證、計算可兌換範圍、發碼、扣點。
package redemption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ledgerapp "github.com/jackyeh168/vip_points/src/internal/application/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/eligibility"
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/redemption"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// 觀測用的操作名稱
const (
	OperationRedeem = "redemption.redeem"
	OperationSettle = "redemption.settle"
)

const tracerName = "github.com/jackyeh168/vip_points/redemption"

// ===========================
// 外部協作者介面
// ===========================

// CommercePlatform 商務平台（目錄、排除設定、折扣碼）
type CommercePlatform interface {
	FetchCatalog(ctx context.Context, shop ledger.ShopDomain) ([]eligibility.Product, error)
	LoadExclusionConfig(ctx context.Context, shop ledger.ShopDomain) (eligibility.ExclusionConfig, error)
	DiscountCodeExists(ctx context.Context, shop ledger.ShopDomain, code string) (bool, error)
	IssueDiscountCode(ctx context.Context, shop ledger.ShopDomain, req redemption.DiscountRequest) (string, error)
}

// PointsLedger 帳本（餘額查詢與扣點）
type PointsLedger interface {
	GetBalance(ctx context.Context, customerID string) (*ledgerapp.BalanceResult, error)
	Debit(ctx context.Context, cmd ledgerapp.DebitCommand) (*ledgerapp.DebitResult, error)
}

// ===========================
// Command / Result
// ===========================

// RedeemCommand 兌換請求
type RedeemCommand struct {
	CustomerID string
	Points     int
	RequestID  string
}

// RedeemResult 兌換結果
type RedeemResult struct {
	DiscountCode    string
	CustomerID      string
	RequestID       string
	Points          int
	EligibleVariant int
	Replayed        bool // 重送的請求，沒有新的發碼或扣點
}

// RedemptionView 兌換記錄的輸出表示（對帳佇列）
type RedemptionView struct {
	CustomerID    string
	RequestID     string
	Shop          string
	Points        int
	DiscountCode  string
	Status        string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ===========================
// Orchestrator
// ===========================

// Orchestrator 兌換流程協調者
//
// 狀態機（每個 customerID + requestID）：
//  1. Validate  點數為正整數、顧客存在、餘額足夠
//  2. Scope     當次載入排除設定與完整目錄，計算可兌換 Variant
//  3. Issue     確定性折扣碼；平台已存在則不重複建立
//  4. Settle    扣點，不受調用者取消影響
//
// 第 3 步成功後，任何失敗都以 ErrSettlementFailed 呈現，不可當作一般失敗。
type Orchestrator struct {
	ledger      PointsLedger
	platform    CommercePlatform
	redemptions redemption.RedemptionRepository
	recorder    shared.OperationRecorder
	tracer      trace.Tracer
	codePrefix  string
	now         func() time.Time
}

// Option 設定 Orchestrator 的選項
type Option func(*Orchestrator)

// WithRecorder 設定觀測邊界
func WithRecorder(r shared.OperationRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithTracer 設定 tracer（預設使用全域 TracerProvider）
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithCodePrefix 設定折扣碼前綴
func WithCodePrefix(prefix string) Option {
	return func(o *Orchestrator) { o.codePrefix = prefix }
}

// WithClock 設定時鐘（測試用）
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator 建立 Orchestrator
func NewOrchestrator(
	pointsLedger PointsLedger,
	platform CommercePlatform,
	redemptions redemption.RedemptionRepository,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		ledger:      pointsLedger,
		platform:    platform,
		redemptions: redemptions,
		recorder:    shared.NopRecorder{},
		tracer:      otel.Tracer(tracerName),
		codePrefix:  redemption.DefaultCodePrefix,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Redeem 執行一次兌換
//
// 錯誤：
// - shared.ErrInvalidInput：點數非正整數、識別符無效、requestID 參數不一致
// - ledger.ErrInsufficientBalance：顧客不存在或餘額不足（沒有任何副作用）
// - redemption.ErrIssuanceFailed：平台拒絕或無法建立折扣碼（沒有扣點）
// - redemption.ErrSettlementFailed：折扣碼已建立但扣點失敗
func (o *Orchestrator) Redeem(ctx context.Context, cmd RedeemCommand) (*RedeemResult, error) {
	ctx, span := o.tracer.Start(ctx, OperationRedeem, trace.WithAttributes(
		attribute.String("customer.id", cmd.CustomerID),
		attribute.String("redemption.request_id", cmd.RequestID),
		attribute.Int("redemption.points", cmd.Points),
	))
	defer span.End()

	result, err := o.redeem(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.recordFailure(ctx, cmd, err)
		return nil, err
	}

	outcome := "redeemed"
	if result.Replayed {
		outcome = "replayed"
	}
	o.recorder.RecordOperation(ctx, shared.Operation{
		Name:       OperationRedeem,
		CustomerID: result.CustomerID,
		Outcome:    outcome,
		Fields: map[string]interface{}{
			"request_id":       result.RequestID,
			"points":           result.Points,
			"discount_code":    result.DiscountCode,
			"eligible_variant": result.EligibleVariant,
		},
	})
	return result, nil
}

func (o *Orchestrator) redeem(ctx context.Context, cmd RedeemCommand) (*RedeemResult, error) {
	// ===== 1. Validate（輸入） =====
	if cmd.Points <= 0 {
		return nil, shared.ErrInvalidInput.WithContext("field", "points", "reason", "points must be a positive integer", "value", cmd.Points)
	}
	customerID, err := ledger.NewCustomerID(cmd.CustomerID)
	if err != nil {
		return nil, shared.ErrInvalidInput.Wrap(err, "field", "customerId")
	}
	requestID, err := ledger.NewRequestID(cmd.RequestID)
	if err != nil {
		return nil, shared.ErrInvalidInput.Wrap(err, "field", "requestId")
	}
	points, err := ledger.NewPointsAmount(cmd.Points)
	if err != nil {
		return nil, shared.ErrInvalidInput.Wrap(err, "field", "points")
	}

	// 重送：依既有記錄的狀態決定從哪一步繼續
	record, err := o.redemptions.Find(nil, customerID, requestID)
	switch {
	case errors.Is(err, redemption.ErrRedemptionNotFound):
		record = nil
	case err != nil:
		return nil, fmt.Errorf("failed to load redemption: %w", err)
	default:
		if !record.Matches(points) {
			return nil, shared.ErrInvalidInput.Wrap(redemption.ErrRedemptionConflict.WithContext(
				"request_id", requestID.String(),
				"recorded_points", record.Points().Value(),
				"requested_points", points.Value(),
			), "field", "requestId")
		}
		if record.IsSettled() {
			return o.resultFor(record, true), nil
		}
		if record.NeedsSettlement() {
			return o.settle(ctx, record, record.Status())
		}
		// 記錄未確認發碼，但平台上已有折扣碼：先前已發碼，可能也已扣點
		stored, confirmed, err := o.confirmIssued(ctx, OperationRedeem, record)
		if err != nil {
			return nil, err
		}
		if confirmed {
			return o.settle(ctx, record, stored)
		}
	}

	// ===== 1. Validate（餘額） =====
	balance, err := o.ledger.GetBalance(ctx, customerID.String())
	if errors.Is(err, ledger.ErrCustomerNotFound) {
		return nil, ledger.ErrInsufficientBalance.WithContext("customer_id", customerID.String(), "reason", "customer not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if balance.Balance < points.Value() {
		return nil, ledger.ErrInsufficientBalance.WithContext(
			"customer_id", customerID.String(),
			"requested", points.Value(),
			"available", balance.Balance,
		)
	}
	shop, err := ledger.NewShopDomain(balance.Shop)
	if err != nil {
		return nil, err
	}

	if record == nil {
		code := redemption.DeriveDiscountCode(o.codePrefix, customerID, requestID)
		record = redemption.NewRedemption(customerID, requestID, shop, points, code)
		if err := o.redemptions.Create(nil, record); err != nil {
			if errors.Is(err, redemption.ErrRedemptionAlreadyExists) {
				return nil, shared.ErrInvalidInput.Wrap(redemption.ErrRedemptionConflict.WithContext(
					"request_id", requestID.String(),
					"reason", "request is already in progress",
				), "field", "requestId")
			}
			return nil, fmt.Errorf("failed to create redemption: %w", err)
		}
	} else {
		from := record.Status()
		if err := record.Restart(); err != nil {
			return nil, err
		}
		if from != record.Status() {
			if err := o.redemptions.Transition(nil, record, from); err != nil {
				return nil, fmt.Errorf("failed to restart redemption: %w", err)
			}
		}
	}

	// ===== 2. Scope =====
	eligible, err := o.scope(ctx, shop)
	if err != nil {
		o.markIssuanceFailed(ctx, record, "scope: "+err.Error())
		return nil, err
	}

	// ===== 3. Issue =====
	if err := o.issue(ctx, record, eligible); err != nil {
		o.markIssuanceFailed(ctx, record, err.Error())
		return nil, err
	}

	// 折扣碼已存在，ISSUED 寫入失敗仍須扣點；扣點結果會以 PENDING 為條件寫入
	stored := record.Status()
	if err := record.MarkIssued(eligible); err != nil {
		return nil, err
	}
	stored = o.persist(ctx, OperationRedeem, record, stored)

	// ===== 4. Settle =====
	result, err := o.settle(ctx, record, stored)
	if err != nil {
		return nil, err
	}
	result.EligibleVariant = len(eligible)
	return result, nil
}

// scope 當次載入排除設定與完整目錄（不跨請求快取）
func (o *Orchestrator) scope(ctx context.Context, shop ledger.ShopDomain) ([]string, error) {
	ctx, span := o.tracer.Start(ctx, "redemption.scope")
	defer span.End()

	cfg, err := o.platform.LoadExclusionConfig(ctx, shop)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load exclusion config: %w", err)
	}
	catalog, err := o.platform.FetchCatalog(ctx, shop)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	eligible := eligibility.EligibleVariantIDs(catalog, cfg)
	span.SetAttributes(
		attribute.Int("catalog.variants", eligibility.VariantCount(catalog)),
		attribute.Int("exclusions", len(cfg.ExcludedVariantIDs)),
		attribute.Int("eligible.variants", len(eligible)),
	)
	return eligible, nil
}

// issue 建立折扣碼；平台上已有同一個碼（先前的重試已建立）則直接沿用
func (o *Orchestrator) issue(ctx context.Context, record *redemption.Redemption, eligible []string) error {
	ctx, span := o.tracer.Start(ctx, "redemption.issue", trace.WithAttributes(
		attribute.String("discount.code", record.Code()),
	))
	defer span.End()

	exists, err := o.platform.DiscountCodeExists(ctx, record.Shop(), record.Code())
	if err != nil {
		span.RecordError(err)
		return redemption.ErrIssuanceFailed.Wrap(err, "discount_code", record.Code(), "step", "probe")
	}
	if exists {
		span.SetAttributes(attribute.Bool("discount.reused", true))
		return nil
	}

	req := redemption.NewDiscountRequest(record, eligible, o.now())
	if _, err := o.platform.IssueDiscountCode(ctx, record.Shop(), req); err != nil {
		span.RecordError(err)
		return redemption.ErrIssuanceFailed.Wrap(err, "discount_code", record.Code())
	}
	return nil
}

// confirmIssued 查詢平台上是否已有記錄的折扣碼；有則將記錄確認為 ISSUED
//
// 返回：持久化後的狀態（寫入失敗時為原狀態）、是否已確認
func (o *Orchestrator) confirmIssued(ctx context.Context, name string, record *redemption.Redemption) (redemption.Status, bool, error) {
	from := record.Status()
	exists, err := o.platform.DiscountCodeExists(ctx, record.Shop(), record.Code())
	if err != nil {
		return from, false, redemption.ErrIssuanceFailed.Wrap(err, "discount_code", record.Code(), "step", "probe")
	}
	if !exists {
		return from, false, nil
	}
	if err := record.ConfirmIssued(); err != nil {
		return from, false, err
	}
	return o.persist(ctx, name, record, from), true, nil
}

// persist 以 from 為條件寫入記錄的新狀態
//
// 寫入失敗不中斷流程，記錄為 record_stale；返回目前持久化的狀態。
func (o *Orchestrator) persist(ctx context.Context, name string, record *redemption.Redemption, from redemption.Status) redemption.Status {
	if err := o.redemptions.Transition(nil, record, from); err != nil {
		o.recorder.RecordOperation(ctx, shared.Operation{
			Name:       name,
			CustomerID: record.CustomerID().String(),
			Outcome:    "record_stale",
			Fields: map[string]interface{}{
				"request_id":    record.RequestID().String(),
				"discount_code": record.Code(),
				"stored":        from.String(),
				"status":        record.Status().String(),
			},
			Err: err,
		})
		return from
	}
	return record.Status()
}

// settle 扣點，stored 為記錄目前持久化的狀態
//
// 使用脫離調用者取消的 context：折扣碼已存在，請求逾時不代表兌換失敗。
// 帳本對同一 requestID 回報 ErrDuplicateTransaction 表示先前已扣過點。
func (o *Orchestrator) settle(ctx context.Context, record *redemption.Redemption, stored redemption.Status) (*RedeemResult, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := o.tracer.Start(ctx, OperationSettle, trace.WithAttributes(
		attribute.String("discount.code", record.Code()),
	))
	defer span.End()

	_, err := o.ledger.Debit(ctx, ledgerapp.DebitCommand{
		CustomerID: record.CustomerID().String(),
		RequestID:  record.RequestID().String(),
		Points:     record.Points().Value(),
	})
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement failed")

		if markErr := record.MarkSettlementFailed(err.Error()); markErr == nil {
			o.persist(ctx, OperationSettle, record, stored)
		}
		return nil, redemption.ErrSettlementFailed.Wrap(err,
			"customer_id", record.CustomerID().String(),
			"points", record.Points().Value(),
			"discount_code", record.Code(),
			"request_id", record.RequestID().String(),
		)
	}

	// 帳本已有這筆扣點：沒有新的扣點發生
	replayed := errors.Is(err, ledger.ErrDuplicateTransaction)
	if markErr := record.MarkSettled(); markErr == nil {
		o.persist(ctx, OperationSettle, record, stored)
	}

	return o.resultFor(record, replayed), nil
}

// ResumeSettlement 重新嘗試扣點
//
// ISSUED / SETTLEMENT_FAILED 直接扣點；PENDING / ISSUANCE_FAILED 僅在平台上已有折扣碼時扣點。
func (o *Orchestrator) ResumeSettlement(ctx context.Context, rawCustomerID, rawRequestID string) (*RedeemResult, error) {
	customerID, err := ledger.NewCustomerID(rawCustomerID)
	if err != nil {
		return nil, shared.ErrInvalidInput.Wrap(err, "field", "customerId")
	}
	requestID, err := ledger.NewRequestID(rawRequestID)
	if err != nil {
		return nil, shared.ErrInvalidInput.Wrap(err, "field", "requestId")
	}

	record, err := o.redemptions.Find(nil, customerID, requestID)
	if err != nil {
		return nil, err
	}
	if record.IsSettled() {
		return o.resultFor(record, true), nil
	}
	stored := record.Status()
	if !record.NeedsSettlement() {
		var confirmed bool
		stored, confirmed, err = o.confirmIssued(ctx, OperationSettle, record)
		if err != nil {
			return nil, err
		}
		if !confirmed {
			return nil, redemption.ErrInvalidTransition.WithContext(
				"request_id", requestID.String(),
				"from", record.Status().String(),
				"to", redemption.StatusSettled.String(),
			)
		}
	}

	result, err := o.settle(ctx, record, stored)
	if err != nil {
		o.recordSettleFailure(ctx, record, err)
		return nil, err
	}
	o.recorder.RecordOperation(ctx, shared.Operation{
		Name:       OperationSettle,
		CustomerID: customerID.String(),
		Outcome:    "settled",
		Fields: map[string]interface{}{
			"request_id":    requestID.String(),
			"discount_code": record.Code(),
			"points":        record.Points().Value(),
		},
	})
	return result, nil
}

// ListUnsettled 已發碼但尚未扣點的兌換（對帳佇列）
//
// 包含狀態寫入落後的記錄：PENDING / ISSUANCE_FAILED 但平台上已有折扣碼。
func (o *Orchestrator) ListUnsettled(ctx context.Context) ([]RedemptionView, error) {
	statuses := append(redemption.UnsettledStatuses(), redemption.UnconfirmedStatuses()...)
	records, err := o.redemptions.ListByStatus(nil, statuses...)
	if err != nil {
		return nil, err
	}
	views := make([]RedemptionView, 0, len(records))
	for _, r := range records {
		if !r.NeedsSettlement() {
			exists, err := o.platform.DiscountCodeExists(ctx, r.Shop(), r.Code())
			if err != nil {
				return nil, fmt.Errorf("failed to check discount code %s: %w", r.Code(), err)
			}
			if !exists {
				continue
			}
		}
		views = append(views, RedemptionView{
			CustomerID:    r.CustomerID().String(),
			RequestID:     r.RequestID().String(),
			Shop:          r.Shop().String(),
			Points:        r.Points().Value(),
			DiscountCode:  r.Code(),
			Status:        r.Status().String(),
			FailureReason: r.FailureReason(),
			CreatedAt:     r.CreatedAt(),
			UpdatedAt:     r.UpdatedAt(),
		})
	}
	return views, nil
}

// ===========================
// 私有輔助方法
// ===========================

func (o *Orchestrator) resultFor(record *redemption.Redemption, replayed bool) *RedeemResult {
	return &RedeemResult{
		DiscountCode:    record.Code(),
		CustomerID:      record.CustomerID().String(),
		RequestID:       record.RequestID().String(),
		Points:          record.Points().Value(),
		EligibleVariant: len(record.EligibleVariantIDs()),
		Replayed:        replayed,
	}
}

func (o *Orchestrator) markIssuanceFailed(ctx context.Context, record *redemption.Redemption, reason string) {
	if err := record.MarkIssuanceFailed(reason); err != nil {
		return
	}
	o.persist(ctx, OperationRedeem, record, redemption.StatusPending)
}

func (o *Orchestrator) recordFailure(ctx context.Context, cmd RedeemCommand, err error) {
	if errors.Is(err, redemption.ErrSettlementFailed) {
		o.recordSettlementError(ctx, OperationRedeem, cmd.CustomerID, err)
		return
	}

	outcome := "error"
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		outcome = "invalid_input"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		outcome = "insufficient_balance"
	case errors.Is(err, redemption.ErrIssuanceFailed):
		outcome = "issuance_failed"
	}
	o.recorder.RecordOperation(ctx, shared.Operation{
		Name:       OperationRedeem,
		CustomerID: cmd.CustomerID,
		Outcome:    outcome,
		Fields: map[string]interface{}{
			"request_id": cmd.RequestID,
			"points":     cmd.Points,
		},
		Err: err,
	})
}

func (o *Orchestrator) recordSettleFailure(ctx context.Context, record *redemption.Redemption, err error) {
	o.recordSettlementError(ctx, OperationSettle, record.CustomerID().String(), err)
}

// recordSettlementError 對帳所需資訊都在 DomainError.Context 中（customer、points、code、requestID）
func (o *Orchestrator) recordSettlementError(ctx context.Context, name, customerID string, err error) {
	fields := map[string]interface{}{}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		for k, v := range domainErr.Context {
			fields[k] = v
		}
	}
	o.recorder.RecordOperation(ctx, shared.Operation{
		Name:       name,
		CustomerID: customerID,
		Outcome:    "settlement_failed",
		Fields:     fields,
		Err:        err,
	})
}
