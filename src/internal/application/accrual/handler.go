// Package accrual 將訂單完成事件轉換為帳本入帳。
package accrual

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ledgerapp "github.com/jackyeh168/vip_points/src/internal/application/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// OperationAccrue 觀測用的操作名稱
const OperationAccrue = "accrual.handle"

// DefaultVIPTag 預設的 VIP 標籤
const DefaultVIPTag = "VIP"

// Outcome 處理結果（全部都是非錯誤結果）
type Outcome string

const (
	OutcomeCredited   Outcome = "credited"
	OutcomeNotVIP     Outcome = "not_vip"
	OutcomeNoCustomer Outcome = "no_customer"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeOverflow   Outcome = "points_overflow" // 積分超出上限，不入帳也不重試
)

// CustomerDirectory 商務平台的顧客標籤查詢
type CustomerDirectory interface {
	CustomerTags(ctx context.Context, shop ledger.ShopDomain, customerID ledger.CustomerID) ([]string, error)
}

// PointsLedger 帳本入帳介面
type PointsLedger interface {
	Credit(ctx context.Context, cmd ledgerapp.CreditCommand) (*ledgerapp.CreditResult, error)
}

// OrderCompletedEvent 訂單完成事件
type OrderCompletedEvent struct {
	Shop       string
	OrderID    string
	CustomerID string // 可為空：不是每張訂單都有顧客
	Subtotal   string // 十進位金額字串
}

// Result 處理結果
type Result struct {
	Outcome    Outcome
	CustomerID string
	OrderID    string
	Points     int
	Balance    int
}

// Handler 訂單入帳處理器
type Handler struct {
	directory  CustomerDirectory
	ledger     PointsLedger
	calculator *ledger.PointsCalculationService
	vipTag     string
	recorder   shared.OperationRecorder
}

// NewHandler 建立處理器；vipTag 為空時使用 DefaultVIPTag
func NewHandler(
	directory CustomerDirectory,
	pointsLedger PointsLedger,
	calculator *ledger.PointsCalculationService,
	vipTag string,
	recorder shared.OperationRecorder,
) *Handler {
	if vipTag == "" {
		vipTag = DefaultVIPTag
	}
	if recorder == nil {
		recorder = shared.NopRecorder{}
	}
	return &Handler{
		directory:  directory,
		ledger:     pointsLedger,
		calculator: calculator,
		vipTag:     vipTag,
		recorder:   recorder,
	}
}

// Handle 處理一筆訂單完成事件
//
// 執行流程：
// 1. 沒有顧客 → no_customer
// 2. 查詢顧客標籤，沒有 VIP 標籤 → not_vip
// 3. points = floor(subtotal × rate)，小計缺漏或格式錯誤視為 0
// 4. 帳本入帳；同一訂單重送 → duplicate
//
// 積分或餘額溢位 → points_overflow：重送同一事件結果不變，不以 error 返回。
// 只有平台或儲存層失敗才返回 error。
func (h *Handler) Handle(ctx context.Context, event OrderCompletedEvent) (*Result, error) {
	if strings.TrimSpace(event.CustomerID) == "" {
		return h.finish(ctx, &Result{Outcome: OutcomeNoCustomer, OrderID: event.OrderID}, nil), nil
	}

	customerID, err := ledger.NewCustomerID(event.CustomerID)
	if err != nil {
		return nil, shared.ErrInvalidInput.Wrap(err, "field", "customer")
	}
	shop, err := ledger.NewShopDomain(event.Shop)
	if err != nil {
		return nil, shared.ErrInvalidInput.Wrap(err, "field", "shop")
	}
	orderID, err := ledger.NewOrderID(event.OrderID)
	if err != nil {
		return nil, shared.ErrInvalidInput.Wrap(err, "field", "id")
	}

	result := &Result{CustomerID: customerID.String(), OrderID: orderID.String()}

	tags, err := h.directory.CustomerTags(ctx, shop, customerID)
	if err != nil {
		h.recordError(ctx, result, err)
		return nil, fmt.Errorf("failed to load customer tags: %w", err)
	}
	if !h.isVIP(tags) {
		result.Outcome = OutcomeNotVIP
		return h.finish(ctx, result, map[string]interface{}{"tags": tags}), nil
	}

	subtotal, valid := ledger.ParseMonetaryAmount(event.Subtotal)
	points, err := h.calculator.CalculateFromSubtotal(subtotal)
	if errors.Is(err, ledger.ErrPointsOverflow) {
		return h.overflow(ctx, result, subtotal.String(), err), nil
	}
	if err != nil {
		h.recordError(ctx, result, err)
		return nil, err
	}
	result.Points = points.Value()

	credited, err := h.ledger.Credit(ctx, ledgerapp.CreditCommand{
		CustomerID: customerID.String(),
		Shop:       shop.String(),
		OrderID:    orderID.String(),
		Points:     points.Value(),
	})
	if errors.Is(err, ledger.ErrDuplicateTransaction) {
		result.Outcome = OutcomeDuplicate
		return h.finish(ctx, result, nil), nil
	}
	if errors.Is(err, ledger.ErrPointsOverflow) {
		return h.overflow(ctx, result, subtotal.String(), err), nil
	}
	if err != nil {
		h.recordError(ctx, result, err)
		return nil, err
	}

	result.Outcome = OutcomeCredited
	result.Balance = credited.Balance
	return h.finish(ctx, result, map[string]interface{}{
		"subtotal":       subtotal.String(),
		"subtotal_valid": valid,
		"rate":           h.calculator.Rate().String(),
	}), nil
}

func (h *Handler) isVIP(tags []string) bool {
	for _, tag := range tags {
		if strings.TrimSpace(tag) == h.vipTag {
			return true
		}
	}
	return false
}

func (h *Handler) finish(ctx context.Context, result *Result, extra map[string]interface{}) *Result {
	fields := map[string]interface{}{
		"order_id": result.OrderID,
		"points":   result.Points,
	}
	for k, v := range extra {
		fields[k] = v
	}
	h.recorder.RecordOperation(ctx, shared.Operation{
		Name:       OperationAccrue,
		CustomerID: result.CustomerID,
		Outcome:    string(result.Outcome),
		Fields:     fields,
	})
	return result
}

// overflow 記錄溢位並以非錯誤結果返回
func (h *Handler) overflow(ctx context.Context, result *Result, subtotal string, err error) *Result {
	result.Outcome = OutcomeOverflow
	result.Points = 0
	h.recorder.RecordOperation(ctx, shared.Operation{
		Name:       OperationAccrue,
		CustomerID: result.CustomerID,
		Outcome:    string(OutcomeOverflow),
		Fields: map[string]interface{}{
			"order_id": result.OrderID,
			"subtotal": subtotal,
		},
		Err: err,
	})
	return result
}

func (h *Handler) recordError(ctx context.Context, result *Result, err error) {
	h.recorder.RecordOperation(ctx, shared.Operation{
		Name:       OperationAccrue,
		CustomerID: result.CustomerID,
		Outcome:    "error",
		Fields:     map[string]interface{}{"order_id": result.OrderID},
		Err:        err,
	})
}
