package redemption

import (
	"context"
	"sort"
	"sync"

	ledgerapp "github.com/jackyeh168/vip_points/src/internal/application/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/eligibility"
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/redemption"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// ===========================
// Mock CommercePlatform
// ===========================

type MockPlatform struct {
	mu             sync.Mutex
	catalog        []eligibility.Product
	exclusions     eligibility.ExclusionConfig
	codes          map[string]redemption.DiscountRequest
	issueErr       error
	catalogErr     error
	exclusionsErr  error
	existsErr      error
	IssueCallCount int
	ProbeCallCount int
}

func newMockPlatform() *MockPlatform {
	return &MockPlatform{
		catalog: []eligibility.Product{
			{ID: "P1", Title: "Tea", Variants: []eligibility.Variant{{ID: "V1"}, {ID: "V2"}}},
			{ID: "P2", Title: "Cup", Variants: []eligibility.Variant{{ID: "V3"}}},
		},
		exclusions: eligibility.NewExclusionConfig([]string{"V2"}),
		codes:      make(map[string]redemption.DiscountRequest),
	}
}

func (m *MockPlatform) FetchCatalog(context.Context, ledger.ShopDomain) ([]eligibility.Product, error) {
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	return m.catalog, nil
}

func (m *MockPlatform) LoadExclusionConfig(context.Context, ledger.ShopDomain) (eligibility.ExclusionConfig, error) {
	if m.exclusionsErr != nil {
		return eligibility.ExclusionConfig{}, m.exclusionsErr
	}
	return m.exclusions, nil
}

func (m *MockPlatform) DiscountCodeExists(_ context.Context, _ ledger.ShopDomain, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProbeCallCount++
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.codes[code]
	return ok, nil
}

func (m *MockPlatform) IssueDiscountCode(_ context.Context, _ ledger.ShopDomain, req redemption.DiscountRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IssueCallCount++
	if m.issueErr != nil {
		return "", m.issueErr
	}
	m.codes[req.Code] = req
	return req.Code, nil
}

// ===========================
// Mock PointsLedger
// ===========================

type MockLedger struct {
	mu         sync.Mutex
	balances   map[string]int
	debited    map[string]bool
	debitErr   error
	DebitCalls int
}

func newMockLedger(balances map[string]int) *MockLedger {
	return &MockLedger{balances: balances, debited: make(map[string]bool)}
}

func (m *MockLedger) GetBalance(_ context.Context, customerID string) (*ledgerapp.BalanceResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[customerID]
	if !ok {
		return nil, ledger.ErrCustomerNotFound
	}
	return &ledgerapp.BalanceResult{CustomerID: customerID, Shop: "demo.myshopify.com", Balance: b}, nil
}

func (m *MockLedger) Debit(ctx context.Context, cmd ledgerapp.DebitCommand) (*ledgerapp.DebitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DebitCalls++
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if m.debitErr != nil {
		return nil, m.debitErr
	}
	key := cmd.CustomerID + "|" + cmd.RequestID
	if m.debited[key] {
		return nil, ledger.ErrDuplicateTransaction
	}
	if m.balances[cmd.CustomerID] < cmd.Points {
		return nil, ledger.ErrInsufficientBalance
	}
	m.debited[key] = true
	m.balances[cmd.CustomerID] -= cmd.Points
	return &ledgerapp.DebitResult{CustomerID: cmd.CustomerID, RequestID: cmd.RequestID, Points: cmd.Points, Balance: m.balances[cmd.CustomerID]}, nil
}

// ===========================
// Mock RedemptionRepository
// ===========================

type MockRedemptionRepository struct {
	mu      sync.Mutex
	records map[string]*redemption.Redemption
	order   []string

	// transitionErrs 依目標狀態讓 Transition 失敗
	transitionErrs map[redemption.Status]error
}

func newMockRedemptionRepository() *MockRedemptionRepository {
	return &MockRedemptionRepository{
		records:        make(map[string]*redemption.Redemption),
		transitionErrs: make(map[redemption.Status]error),
	}
}

func redemptionKey(c ledger.CustomerID, r ledger.RequestID) string {
	return c.String() + "|" + r.String()
}

// clone 模擬持久化：存入與取出都是獨立副本
func clone(r *redemption.Redemption) *redemption.Redemption {
	return redemption.ReconstructRedemption(
		r.CustomerID(), r.RequestID(), r.Shop(), r.Points(), r.Code(), r.Status(),
		r.EligibleVariantIDs(), r.FailureReason(), r.CreatedAt(), r.UpdatedAt(),
	)
}

func (m *MockRedemptionRepository) Create(_ shared.TransactionContext, r *redemption.Redemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := redemptionKey(r.CustomerID(), r.RequestID())
	if _, ok := m.records[key]; ok {
		return redemption.ErrRedemptionAlreadyExists
	}
	m.records[key] = clone(r)
	m.order = append(m.order, key)
	return nil
}

func (m *MockRedemptionRepository) Find(_ shared.TransactionContext, c ledger.CustomerID, r ledger.RequestID) (*redemption.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[redemptionKey(c, r)]
	if !ok {
		return nil, redemption.ErrRedemptionNotFound
	}
	return clone(rec), nil
}

func (m *MockRedemptionRepository) Transition(_ shared.TransactionContext, r *redemption.Redemption, from redemption.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transitionErrs[r.Status()]; err != nil {
		return err
	}
	key := redemptionKey(r.CustomerID(), r.RequestID())
	current, ok := m.records[key]
	if !ok || current.Status() != from {
		return redemption.ErrInvalidTransition
	}
	m.records[key] = clone(r)
	return nil
}

func (m *MockRedemptionRepository) ListByStatus(_ shared.TransactionContext, statuses ...redemption.Status) ([]*redemption.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*redemption.Redemption, 0)
	for _, key := range m.order {
		rec := m.records[key]
		for _, st := range statuses {
			if rec.Status() == st {
				out = append(out, clone(rec))
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, nil
}

func (m *MockRedemptionRepository) status(customerID, requestID string) redemption.Status {
	c, _ := ledger.NewCustomerID(customerID)
	r, _ := ledger.NewRequestID(requestID)
	rec, err := m.Find(nil, c, r)
	if err != nil {
		return ""
	}
	return rec.Status()
}

// ===========================
// Mock Recorder
// ===========================

type MockRecorder struct {
	mu  sync.Mutex
	ops []shared.Operation
}

func (m *MockRecorder) RecordOperation(_ context.Context, op shared.Operation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
}

func (m *MockRecorder) outcomes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.ops))
	for _, op := range m.ops {
		out = append(out, op.Outcome)
	}
	return out
}

func (m *MockRecorder) last() shared.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ops) == 0 {
		return shared.Operation{}
	}
	return m.ops[len(m.ops)-1]
}
