package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// ===========================
// Points Ledger Application Service
// ===========================

// 觀測用的操作名稱
const (
	OperationCredit = "ledger.credit"
	OperationDebit  = "ledger.debit"
)

// Service 積分帳本（餘額的唯一事實來源，所有變更都經過它）
//
// 設計原則：
// 1. 每次變更 = 追加交易記錄 + 原子 SQL 更新餘額，兩者在同一事務內
// 2. 冪等：交易記錄的 (customer_id, idempotency_key) 唯一索引擋下重送
// 3. 事件在事務提交後才發布
type Service struct {
	customers    ledger.VipCustomerRepository
	transactions ledger.RewardTransactionRepository
	txManager    shared.TransactionManager
	publisher    shared.EventPublisher
	recorder     shared.OperationRecorder
}

// NewService 建立帳本服務
func NewService(
	customers ledger.VipCustomerRepository,
	transactions ledger.RewardTransactionRepository,
	txManager shared.TransactionManager,
	publisher shared.EventPublisher,
	recorder shared.OperationRecorder,
) *Service {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if recorder == nil {
		recorder = shared.NopRecorder{}
	}
	return &Service{
		customers:    customers,
		transactions: transactions,
		txManager:    txManager,
		publisher:    publisher,
		recorder:     recorder,
	}
}

// ===========================
// Credit
// ===========================

// CreditCommand 訂單入帳命令
type CreditCommand struct {
	CustomerID string
	Shop       string
	OrderID    string
	Points     int
}

// CreditResult 入帳結果
type CreditResult struct {
	CustomerID string
	OrderID    string
	Points     int
	Balance    int
	Enrolled   bool // 本次入帳建立了新顧客
}

// Credit 入帳
//
// 錯誤：
// - ErrNegativePointsAmount / 識別符錯誤：輸入無效
// - ErrDuplicateTransaction：同一訂單已入帳（整個事務回滾）
func (s *Service) Credit(ctx context.Context, cmd CreditCommand) (*CreditResult, error) {
	customerID, err := ledger.NewCustomerID(cmd.CustomerID)
	if err != nil {
		return nil, err
	}
	shop, err := ledger.NewShopDomain(cmd.Shop)
	if err != nil {
		return nil, err
	}
	orderID, err := ledger.NewOrderID(cmd.OrderID)
	if err != nil {
		return nil, err
	}
	amount, err := ledger.NewPointsAmount(cmd.Points)
	if err != nil {
		return nil, err
	}

	record := ledger.NewEarnedTransaction(customerID, orderID, amount)

	var (
		enrolled bool
		balance  ledger.PointsAmount
	)
	err = s.txManager.InTransaction(ctx, func(tx shared.TransactionContext) error {
		// 1. 追加交易記錄（重複訂單在這裡被唯一索引擋下）
		if err := s.transactions.Append(tx, record); err != nil {
			return err
		}

		// 2. 判斷是否為首次入帳，並防止餘額溢位（餘額由下一步原子更新）
		existing, findErr := s.customers.FindByCustomerID(tx, customerID)
		switch {
		case errors.Is(findErr, ledger.ErrCustomerNotFound):
			enrolled = true
		case findErr != nil:
			return findErr
		default:
			if _, err := existing.BalanceAfterCredit(amount); err != nil {
				return err
			}
		}

		// 3. 原子累加（不存在則建立）
		if err := s.customers.ApplyCredit(tx, customerID, shop, amount); err != nil {
			return err
		}

		customer, err := s.customers.FindByCustomerID(tx, customerID)
		if err != nil {
			return err
		}
		balance = customer.RewardPoints()
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, OperationCredit, customerID, err, "order_id", orderID.String(), "points", amount.Value())
		return nil, fmt.Errorf("failed to credit order %s: %w", orderID.String(), err)
	}

	events := make([]shared.DomainEvent, 0, 2)
	if enrolled {
		events = append(events, ledger.NewCustomerEnrolledEvent(customerID, shop))
	}
	events = append(events, ledger.NewPointsCreditedEvent(customerID, orderID, amount, balance))
	s.publish(ctx, events)

	s.recorder.RecordOperation(ctx, shared.Operation{
		Name:       OperationCredit,
		CustomerID: customerID.String(),
		Outcome:    "credited",
		Fields: map[string]interface{}{
			"order_id": orderID.String(),
			"points":   amount.Value(),
			"balance":  balance.Value(),
			"enrolled": enrolled,
		},
	})

	return &CreditResult{
		CustomerID: customerID.String(),
		OrderID:    orderID.String(),
		Points:     amount.Value(),
		Balance:    balance.Value(),
		Enrolled:   enrolled,
	}, nil
}

// ===========================
// Debit
// ===========================

// DebitCommand 兌換扣點命令
type DebitCommand struct {
	CustomerID string
	RequestID  string
	Points     int
}

// DebitResult 扣點結果
type DebitResult struct {
	CustomerID string
	RequestID  string
	Points     int
	Balance    int
}

// Debit 扣點
//
// 檢查與扣減是同一條 SQL（WHERE reward_points >= ?），沒有 check-then-act 的空隙。
//
// 錯誤：
// - ErrInsufficientBalance：餘額不足或顧客不存在，不做任何變更
// - ErrDuplicateTransaction：同一 requestID 已扣過點
func (s *Service) Debit(ctx context.Context, cmd DebitCommand) (*DebitResult, error) {
	customerID, err := ledger.NewCustomerID(cmd.CustomerID)
	if err != nil {
		return nil, err
	}
	requestID, err := ledger.NewRequestID(cmd.RequestID)
	if err != nil {
		return nil, err
	}
	amount, err := ledger.NewPointsAmount(cmd.Points)
	if err != nil {
		return nil, err
	}

	record := ledger.NewRedeemedTransaction(customerID, requestID, amount)

	var balance ledger.PointsAmount
	err = s.txManager.InTransaction(ctx, func(tx shared.TransactionContext) error {
		// 先追加：重送的 requestID 一律得到 ErrDuplicateTransaction，而不是餘額不足
		if err := s.transactions.Append(tx, record); err != nil {
			return err
		}
		if err := s.customers.ApplyDebit(tx, customerID, amount); err != nil {
			return s.explainDebitFailure(tx, customerID, amount, err)
		}

		customer, err := s.customers.FindByCustomerID(tx, customerID)
		if err != nil {
			return err
		}
		balance = customer.RewardPoints()
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, OperationDebit, customerID, err, "request_id", requestID.String(), "points", amount.Value())
		return nil, fmt.Errorf("failed to debit request %s: %w", requestID.String(), err)
	}

	s.publish(ctx, []shared.DomainEvent{ledger.NewPointsDebitedEvent(customerID, requestID, amount, balance)})

	s.recorder.RecordOperation(ctx, shared.Operation{
		Name:       OperationDebit,
		CustomerID: customerID.String(),
		Outcome:    "debited",
		Fields: map[string]interface{}{
			"request_id": requestID.String(),
			"points":     amount.Value(),
			"balance":    balance.Value(),
		},
	})

	return &DebitResult{
		CustomerID: customerID.String(),
		RequestID:  requestID.String(),
		Points:     amount.Value(),
		Balance:    balance.Value(),
	}, nil
}

// explainDebitFailure 條件扣點影響 0 列時，以目前餘額補充 available
func (s *Service) explainDebitFailure(tx shared.TransactionContext, customerID ledger.CustomerID, amount ledger.PointsAmount, err error) error {
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		return err
	}
	customer, findErr := s.customers.FindByCustomerID(tx, customerID)
	if findErr != nil {
		return err
	}
	if _, subErr := customer.BalanceAfterDebit(amount); subErr != nil {
		return subErr
	}
	return err
}

// ===========================
// 查詢
// ===========================

// BalanceResult 餘額查詢結果
type BalanceResult struct {
	CustomerID string
	Shop       string
	Balance    int
	UpdatedAt  time.Time
}

// GetBalance 查詢餘額
// 返回：ErrCustomerNotFound（調用者視為 0）
func (s *Service) GetBalance(ctx context.Context, rawCustomerID string) (*BalanceResult, error) {
	customerID, err := ledger.NewCustomerID(rawCustomerID)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.FindByCustomerID(nil, customerID)
	if err != nil {
		return nil, err
	}

	return &BalanceResult{
		CustomerID: customer.CustomerID().String(),
		Shop:       customer.Shop().String(),
		Balance:    customer.RewardPoints().Value(),
		UpdatedAt:  customer.UpdatedAt(),
	}, nil
}

// ReconciliationResult 對帳結果
type ReconciliationResult struct {
	CustomerID string
	ledger.Reconciliation
}

// Reconcile 以交易記錄合計驗證餘額（在同一事務中讀取，避免讀到半途狀態）
func (s *Service) Reconcile(ctx context.Context, rawCustomerID string) (*ReconciliationResult, error) {
	customerID, err := ledger.NewCustomerID(rawCustomerID)
	if err != nil {
		return nil, err
	}

	var result *ReconciliationResult
	err = s.txManager.InTransaction(ctx, func(tx shared.TransactionContext) error {
		customer, err := s.customers.FindByCustomerID(tx, customerID)
		if err != nil {
			return err
		}
		earned, redeemed, err := s.transactions.SumByCustomerID(tx, customerID)
		if err != nil {
			return err
		}
		result = &ReconciliationResult{
			CustomerID:     customerID.String(),
			Reconciliation: customer.Reconcile(earned, redeemed),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Consistent {
		s.recorder.RecordOperation(ctx, shared.Operation{
			Name:       "ledger.reconcile",
			CustomerID: customerID.String(),
			Outcome:    "drift",
			Fields: map[string]interface{}{
				"balance":  result.Balance,
				"expected": result.Expected,
			},
		})
	}
	return result, nil
}

// TransactionView 交易記錄的輸出表示
type TransactionView struct {
	ID             string
	OrderID        string
	PointsEarned   *int
	PointsRedeemed *int
	IdempotencyKey string
	CreatedAt      time.Time
}

// History 依建立時間列出交易記錄
func (s *Service) History(ctx context.Context, rawCustomerID string) ([]TransactionView, error) {
	customerID, err := ledger.NewCustomerID(rawCustomerID)
	if err != nil {
		return nil, err
	}

	records, err := s.transactions.ListByCustomerID(nil, customerID)
	if err != nil {
		return nil, err
	}

	views := make([]TransactionView, 0, len(records))
	for _, r := range records {
		views = append(views, toView(r))
	}
	return views, nil
}

// Ping 檢查儲存層
func (s *Service) Ping(ctx context.Context) error {
	return s.customers.Ping(nil)
}

// ===========================
// 私有輔助方法
// ===========================

func toView(r *ledger.RewardTransaction) TransactionView {
	v := TransactionView{
		ID:             r.ID().String(),
		OrderID:        r.OrderID(),
		IdempotencyKey: r.IdempotencyKey(),
		CreatedAt:      r.CreatedAt(),
	}
	if p := r.PointsEarned(); p != nil {
		n := p.Value()
		v.PointsEarned = &n
	}
	if p := r.PointsRedeemed(); p != nil {
		n := p.Value()
		v.PointsRedeemed = &n
	}
	return v
}

// publish 事件發布失敗不影響已提交的帳本變更，只記錄
func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if err := s.publisher.PublishBatch(ctx, events); err != nil {
		s.recorder.RecordOperation(ctx, shared.Operation{
			Name:    "ledger.publish",
			Outcome: "error",
			Err:     err,
		})
	}
}

func (s *Service) recordFailure(ctx context.Context, name string, customerID ledger.CustomerID, err error, kv ...interface{}) {
	outcome := "error"
	switch {
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		outcome = "duplicate"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		outcome = "insufficient_balance"
	}

	fields := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			fields[k] = kv[i+1]
		}
	}

	s.recorder.RecordOperation(ctx, shared.Operation{
		Name:       name,
		CustomerID: customerID.String(),
		Outcome:    outcome,
		Fields:     fields,
		Err:        err,
	})
}
