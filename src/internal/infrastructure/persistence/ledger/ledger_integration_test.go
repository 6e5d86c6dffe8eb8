package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	ledgerapp "github.com/jackyeh168/vip_points/src/internal/application/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===========================
// 帳本服務 + SQLite 整合測試
// ===========================

func newLedgerService(t *testing.T) *ledgerapp.Service {
	t.Helper()
	db := setupTestDB(t)
	return ledgerapp.NewService(
		NewVipCustomerRepository(db),
		NewRewardTransactionRepository(db),
		persistence.NewGORMTransactionManager(db),
		nil,
		nil,
	)
}

func TestLedgerIntegration_CreditDebitReconcile(t *testing.T) {
	// Arrange
	svc := newLedgerService(t)
	ctx := context.Background()

	// Act
	credit, err := svc.Credit(ctx, ledgerapp.CreditCommand{CustomerID: "42", Shop: "demo.myshopify.com", OrderID: "O1", Points: 200})
	require.NoError(t, err)
	_, err = svc.Credit(ctx, ledgerapp.CreditCommand{CustomerID: "42", Shop: "demo.myshopify.com", OrderID: "O1", Points: 200})
	dupErr := err
	debit, err := svc.Debit(ctx, ledgerapp.DebitCommand{CustomerID: "42", RequestID: "r1", Points: 50})
	require.NoError(t, err)
	_, replayErr := svc.Debit(ctx, ledgerapp.DebitCommand{CustomerID: "42", RequestID: "r1", Points: 50})

	// Assert
	assert.True(t, credit.Enrolled)
	assert.Equal(t, 200, credit.Balance)
	assert.ErrorIs(t, dupErr, ledger.ErrDuplicateTransaction)
	assert.Equal(t, 150, debit.Balance)
	assert.ErrorIs(t, replayErr, ledger.ErrDuplicateTransaction)

	recon, err := svc.Reconcile(ctx, "42")
	require.NoError(t, err)
	assert.True(t, recon.Consistent)
	assert.Equal(t, 200, recon.Earned)
	assert.Equal(t, 50, recon.Redeemed)
	assert.Equal(t, 150, recon.Balance)

	history, err := svc.History(ctx, "42")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "order:O1", history[0].IdempotencyKey)
	assert.Equal(t, "redeem:r1", history[1].IdempotencyKey)
}

func TestLedgerIntegration_InsufficientDebitLeavesNoTrace(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()
	_, err := svc.Credit(ctx, ledgerapp.CreditCommand{CustomerID: "42", Shop: "demo.myshopify.com", OrderID: "O1", Points: 10})
	require.NoError(t, err)

	_, err = svc.Debit(ctx, ledgerapp.DebitCommand{CustomerID: "42", RequestID: "r1", Points: 50})

	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	history, err := svc.History(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, history, 1, "失敗的扣點不留下交易記錄")

	// 同一 requestID 在餘額足夠後仍可使用
	_, err = svc.Credit(ctx, ledgerapp.CreditCommand{CustomerID: "42", Shop: "demo.myshopify.com", OrderID: "O2", Points: 40})
	require.NoError(t, err)
	result, err := svc.Debit(ctx, ledgerapp.DebitCommand{CustomerID: "42", RequestID: "r1", Points: 50})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Balance)
}

func TestLedgerIntegration_ConcurrentDebits_NeverOverdraw(t *testing.T) {
	// Arrange：餘額 100，十個請求各扣 30
	svc := newLedgerService(t)
	ctx := context.Background()
	_, err := svc.Credit(ctx, ledgerapp.CreditCommand{CustomerID: "42", Shop: "demo.myshopify.com", OrderID: "O1", Points: 100})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)

	// Act
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Debit(ctx, ledgerapp.DebitCommand{CustomerID: "42", RequestID: fmt.Sprintf("r%d", i), Points: 30})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, ledger.ErrInsufficientBalance) {
				rejected++
			}
		}(i)
	}
	wg.Wait()

	// Assert
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 7, rejected)
	balance, err := svc.GetBalance(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 10, balance.Balance)

	recon, err := svc.Reconcile(ctx, "42")
	require.NoError(t, err)
	assert.True(t, recon.Consistent)
}

func TestLedgerIntegration_ConcurrentCredits_SameOrderOnce(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Credit(ctx, ledgerapp.CreditCommand{CustomerID: "42", Shop: "demo.myshopify.com", OrderID: "O1", Points: 20})
		}()
	}
	wg.Wait()

	balance, err := svc.GetBalance(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 20, balance.Balance)
}
