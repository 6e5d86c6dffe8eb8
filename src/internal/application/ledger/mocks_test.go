package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// ===========================
// 記憶體版 Repository（支援回滾）
// ===========================

type memCustomer struct {
	shop    string
	balance int
}

type memoryStore struct {
	mu        sync.Mutex
	customers map[string]memCustomer
	records   []*ledger.RewardTransaction
	keys      map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		customers: make(map[string]memCustomer),
		keys:      make(map[string]bool),
	}
}

type memorySnapshot struct {
	customers map[string]memCustomer
	records   []*ledger.RewardTransaction
	keys      map[string]bool
}

func (s *memoryStore) snapshot() memorySnapshot {
	customers := make(map[string]memCustomer, len(s.customers))
	for k, v := range s.customers {
		customers[k] = v
	}
	keys := make(map[string]bool, len(s.keys))
	for k, v := range s.keys {
		keys[k] = v
	}
	return memorySnapshot{
		customers: customers,
		records:   append([]*ledger.RewardTransaction{}, s.records...),
		keys:      keys,
	}
}

func (s *memoryStore) restore(snap memorySnapshot) {
	s.customers = snap.customers
	s.records = snap.records
	s.keys = snap.keys
}

// MockCustomerRepository 記憶體版 VipCustomerRepository
type MockCustomerRepository struct {
	store               *memoryStore
	ApplyCreditCount    int
	ApplyDebitCallCount int
	FailFind            error
}

func (m *MockCustomerRepository) FindByCustomerID(_ shared.TransactionContext, id ledger.CustomerID) (*ledger.VipCustomer, error) {
	if m.FailFind != nil {
		return nil, m.FailFind
	}
	c, ok := m.store.customers[id.String()]
	if !ok {
		return nil, ledger.ErrCustomerNotFound
	}
	shop, _ := ledger.NewShopDomain(c.shop)
	return ledger.ReconstructVipCustomer(id, shop, c.balance, time.Now(), time.Now())
}

func (m *MockCustomerRepository) ApplyCredit(_ shared.TransactionContext, id ledger.CustomerID, shop ledger.ShopDomain, amount ledger.PointsAmount) error {
	m.ApplyCreditCount++
	c, ok := m.store.customers[id.String()]
	if !ok {
		c = memCustomer{shop: shop.String()}
	}
	c.balance += amount.Value()
	m.store.customers[id.String()] = c
	return nil
}

func (m *MockCustomerRepository) ApplyDebit(_ shared.TransactionContext, id ledger.CustomerID, amount ledger.PointsAmount) error {
	m.ApplyDebitCallCount++
	c, ok := m.store.customers[id.String()]
	if !ok || c.balance < amount.Value() {
		return ledger.ErrInsufficientBalance
	}
	c.balance -= amount.Value()
	m.store.customers[id.String()] = c
	return nil
}

func (m *MockCustomerRepository) Ping(shared.TransactionContext) error {
	return nil
}

// MockTransactionRepository 記憶體版 RewardTransactionRepository
type MockTransactionRepository struct {
	store       *memoryStore
	AppendCount int
}

func (m *MockTransactionRepository) Append(_ shared.TransactionContext, record *ledger.RewardTransaction) error {
	m.AppendCount++
	key := record.CustomerID().String() + "|" + record.IdempotencyKey()
	if m.store.keys[key] {
		return ledger.ErrDuplicateTransaction
	}
	m.store.keys[key] = true
	m.store.records = append(m.store.records, record)
	return nil
}

func (m *MockTransactionRepository) ListByCustomerID(_ shared.TransactionContext, id ledger.CustomerID) ([]*ledger.RewardTransaction, error) {
	out := make([]*ledger.RewardTransaction, 0)
	for _, r := range m.store.records {
		if r.CustomerID() == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockTransactionRepository) SumByCustomerID(tx shared.TransactionContext, id ledger.CustomerID) (int, int, error) {
	records, _ := m.ListByCustomerID(tx, id)
	earned, redeemed := 0, 0
	for _, r := range records {
		if r.IsRedemption() {
			redeemed += r.PointsRedeemed().Value()
		} else {
			earned += r.PointsEarned().Value()
		}
	}
	return earned, redeemed, nil
}

// ===========================
// Mock TransactionManager
// ===========================

// MockTransactionManager 序列化執行並在錯誤時還原快照
type MockTransactionManager struct {
	store                  *memoryStore
	InTransactionCallCount int
}

func (m *MockTransactionManager) InTransaction(_ context.Context, fn func(tx shared.TransactionContext) error) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.InTransactionCallCount++

	snap := m.store.snapshot()
	if err := fn(nil); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// ===========================
// Mock 觀測
// ===========================

type MockRecorder struct {
	mu         sync.Mutex
	Operations []shared.Operation
}

func (m *MockRecorder) RecordOperation(_ context.Context, op shared.Operation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Operations = append(m.Operations, op)
}

func (m *MockRecorder) outcomes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Operations))
	for _, op := range m.Operations {
		out = append(out, op.Outcome)
	}
	return out
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []shared.DomainEvent
}

func (m *MockPublisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	return m.PublishBatch(ctx, []shared.DomainEvent{event})
}

func (m *MockPublisher) PublishBatch(_ context.Context, events []shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, events...)
	return nil
}

func (m *MockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.EventType())
	}
	return out
}

// ===========================
// 組裝
// ===========================

type fixture struct {
	store     *memoryStore
	customers *MockCustomerRepository
	records   *MockTransactionRepository
	txManager *MockTransactionManager
	recorder  *MockRecorder
	publisher *MockPublisher
	service   *Service
}

func newFixture() *fixture {
	store := newMemoryStore()
	f := &fixture{
		store:     store,
		customers: &MockCustomerRepository{store: store},
		records:   &MockTransactionRepository{store: store},
		txManager: &MockTransactionManager{store: store},
		recorder:  &MockRecorder{},
		publisher: &MockPublisher{},
	}
	f.service = NewService(f.customers, f.records, f.txManager, f.publisher, f.recorder)
	return f
}
