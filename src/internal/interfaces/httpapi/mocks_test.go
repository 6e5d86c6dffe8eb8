package httpapi

import (
	"context"

	"github.com/jackyeh168/vip_points/src/internal/application/accrual"
	eligibilityapp "github.com/jackyeh168/vip_points/src/internal/application/eligibility"
	ledgerapp "github.com/jackyeh168/vip_points/src/internal/application/ledger"
	redemptionapp "github.com/jackyeh168/vip_points/src/internal/application/redemption"
	"github.com/jackyeh168/vip_points/src/internal/domain/eligibility"
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
)

type MockOrderHandler struct {
	result    *accrual.Result
	err       error
	LastEvent accrual.OrderCompletedEvent
}

func (m *MockOrderHandler) Handle(_ context.Context, event accrual.OrderCompletedEvent) (*accrual.Result, error) {
	m.LastEvent = event
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type MockLedger struct {
	balances map[string]int
	err      error
	pingErr  error
	history  []ledgerapp.TransactionView
}

func (m *MockLedger) GetBalance(_ context.Context, customerID string) (*ledgerapp.BalanceResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.balances[customerID]
	if !ok {
		return nil, ledger.ErrCustomerNotFound
	}
	return &ledgerapp.BalanceResult{CustomerID: customerID, Balance: b}, nil
}

func (m *MockLedger) Reconcile(_ context.Context, customerID string) (*ledgerapp.ReconciliationResult, error) {
	b, ok := m.balances[customerID]
	if !ok {
		return nil, ledger.ErrCustomerNotFound
	}
	return &ledgerapp.ReconciliationResult{
		CustomerID:     customerID,
		Reconciliation: ledger.Reconciliation{Balance: b, Earned: b, Expected: b, Consistent: true},
	}, nil
}

func (m *MockLedger) History(context.Context, string) ([]ledgerapp.TransactionView, error) {
	return m.history, nil
}

func (m *MockLedger) Ping(context.Context) error {
	return m.pingErr
}

type MockRedeemer struct {
	result      *redemptionapp.RedeemResult
	err         error
	unsettled   []redemptionapp.RedemptionView
	LastCommand redemptionapp.RedeemCommand
	CallCount   int
}

func (m *MockRedeemer) Redeem(_ context.Context, cmd redemptionapp.RedeemCommand) (*redemptionapp.RedeemResult, error) {
	m.CallCount++
	m.LastCommand = cmd
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *MockRedeemer) ResumeSettlement(_ context.Context, customerID, requestID string) (*redemptionapp.RedeemResult, error) {
	m.LastCommand = redemptionapp.RedeemCommand{CustomerID: customerID, RequestID: requestID}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *MockRedeemer) ListUnsettled(context.Context) ([]redemptionapp.RedemptionView, error) {
	return m.unsettled, m.err
}

type MockExclusionAdmin struct {
	view     *eligibilityapp.ExclusionsView
	err      error
	LastShop string
	LastIDs  []string
}

func (m *MockExclusionAdmin) Get(_ context.Context, shop string) (*eligibilityapp.ExclusionsView, error) {
	m.LastShop = shop
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *MockExclusionAdmin) Put(_ context.Context, shop string, ids []string) (eligibility.ExclusionConfig, error) {
	m.LastShop = shop
	m.LastIDs = ids
	if m.err != nil {
		return eligibility.ExclusionConfig{}, m.err
	}
	return eligibility.NewExclusionConfig(ids), nil
}

func ledgerTransaction(id, orderID string, earned *int) ledgerapp.TransactionView {
	return ledgerapp.TransactionView{ID: id, OrderID: orderID, PointsEarned: earned, IdempotencyKey: "order:" + orderID}
}
