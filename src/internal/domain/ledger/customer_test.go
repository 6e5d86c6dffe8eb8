package ledger_test

import (
	"math"
	"testing"
	"time"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== 測試輔助函數 =====

func mustCustomerID(t *testing.T, raw string) ledger.CustomerID {
	t.Helper()
	id, err := ledger.NewCustomerID(raw)
	require.NoError(t, err)
	return id
}

func mustShop(t *testing.T) ledger.ShopDomain {
	t.Helper()
	shop, err := ledger.NewShopDomain("demo.myshopify.com")
	require.NoError(t, err)
	return shop
}

func mustPoints(t *testing.T, v int) ledger.PointsAmount {
	t.Helper()
	p, err := ledger.NewPointsAmount(v)
	require.NoError(t, err)
	return p
}

func newCustomerWithBalance(t *testing.T, balance int) *ledger.VipCustomer {
	t.Helper()
	c, err := ledger.ReconstructVipCustomer(mustCustomerID(t, "42"), mustShop(t), balance, time.Now(), time.Now())
	require.NoError(t, err)
	return c
}

func TestReconstructVipCustomer_ValidBalance(t *testing.T) {
	c := newCustomerWithBalance(t, 200)

	assert.Equal(t, "42", c.CustomerID().String())
	assert.Equal(t, "demo.myshopify.com", c.Shop().String())
	assert.Equal(t, 200, c.RewardPoints().Value())
}

func TestReconstructVipCustomer_NegativeBalance_ReturnsCorrupted(t *testing.T) {
	_, err := ledger.ReconstructVipCustomer(mustCustomerID(t, "42"), mustShop(t), -1, time.Now(), time.Now())

	assert.ErrorIs(t, err, ledger.ErrCorruptedBalance)
}

func TestVipCustomer_BalanceAfterDebit(t *testing.T) {
	c := newCustomerWithBalance(t, 50)

	after, err := c.BalanceAfterDebit(mustPoints(t, 50))
	require.NoError(t, err, "剛好等於餘額可兌換")
	assert.True(t, after.IsZero())

	_, err = c.BalanceAfterDebit(mustPoints(t, 51))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, 50, c.RewardPoints().Value(), "快照不變")
}

func TestVipCustomer_BalanceAfterCredit_Overflow(t *testing.T) {
	c := newCustomerWithBalance(t, math.MaxInt-1)

	after, err := c.BalanceAfterCredit(mustPoints(t, 1))
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, after.Value())

	_, err = c.BalanceAfterCredit(mustPoints(t, 2))
	assert.ErrorIs(t, err, ledger.ErrPointsOverflow)
}

func TestVipCustomer_Reconcile(t *testing.T) {
	c := newCustomerWithBalance(t, 50)

	ok := c.Reconcile(200, 150)
	assert.True(t, ok.Consistent)
	assert.Equal(t, 50, ok.Expected)

	drift := c.Reconcile(200, 100)
	assert.False(t, drift.Consistent)
	assert.Equal(t, 100, drift.Expected)
	assert.Equal(t, 50, drift.Balance)
}
