package ledger

import (
	"testing"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVipCustomerRepository_ApplyCredit_CreatesCustomer(t *testing.T) {
	// Arrange
	db := setupTestDB(t)
	repo := NewVipCustomerRepository(db)
	id := mustCustomerID(t, "gid://shopify/Customer/42")

	// Act
	err := repo.ApplyCredit(nil, id, mustShop(t), mustPoints(t, 200))

	// Assert
	require.NoError(t, err)
	customer, err := repo.FindByCustomerID(nil, id)
	require.NoError(t, err)
	assert.Equal(t, "42", customer.CustomerID().String())
	assert.Equal(t, "demo.myshopify.com", customer.Shop().String())
	assert.Equal(t, 200, customer.RewardPoints().Value())
}

func TestVipCustomerRepository_ApplyCredit_IncrementsExisting(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVipCustomerRepository(db)
	id := mustCustomerID(t, "42")

	require.NoError(t, repo.ApplyCredit(nil, id, mustShop(t), mustPoints(t, 200)))
	other, _ := ledger.NewShopDomain("other.myshopify.com")
	require.NoError(t, repo.ApplyCredit(nil, id, other, mustPoints(t, 50)))

	customer, err := repo.FindByCustomerID(nil, id)
	require.NoError(t, err)
	assert.Equal(t, 250, customer.RewardPoints().Value())
	assert.Equal(t, "demo.myshopify.com", customer.Shop().String(), "首次入帳的商店為準")
}

func TestVipCustomerRepository_ApplyDebit_Conditional(t *testing.T) {
	// Arrange
	db := setupTestDB(t)
	repo := NewVipCustomerRepository(db)
	id := mustCustomerID(t, "42")
	require.NoError(t, repo.ApplyCredit(nil, id, mustShop(t), mustPoints(t, 50)))

	// Act & Assert：超過餘額不變更
	err := repo.ApplyDebit(nil, id, mustPoints(t, 51))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// Act & Assert：剛好等於餘額可扣
	require.NoError(t, repo.ApplyDebit(nil, id, mustPoints(t, 50)))
	customer, err := repo.FindByCustomerID(nil, id)
	require.NoError(t, err)
	assert.Equal(t, 0, customer.RewardPoints().Value())
}

func TestVipCustomerRepository_ApplyDebit_UnknownCustomer(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVipCustomerRepository(db)

	err := repo.ApplyDebit(nil, mustCustomerID(t, "999"), mustPoints(t, 1))

	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestVipCustomerRepository_FindByCustomerID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVipCustomerRepository(db)

	_, err := repo.FindByCustomerID(nil, mustCustomerID(t, "404"))

	assert.ErrorIs(t, err, ledger.ErrCustomerNotFound)
}

func TestVipCustomerRepository_CorruptedBalance(t *testing.T) {
	// Arrange：繞過 CHECK 約束以外的路徑寫入損壞資料
	db := setupTestDB(t)
	repo := NewVipCustomerRepository(db)
	require.NoError(t, db.Exec("PRAGMA ignore_check_constraints = ON").Error)
	require.NoError(t, db.Exec(
		"INSERT INTO vip_customers (customer_id, shop, reward_points, created_at, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)",
		"7", "demo.myshopify.com", -5,
	).Error)

	// Act
	_, err := repo.FindByCustomerID(nil, mustCustomerID(t, "7"))

	// Assert
	assert.ErrorIs(t, err, ledger.ErrCorruptedBalance)
}

func TestVipCustomerRepository_Ping(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVipCustomerRepository(db)

	assert.NoError(t, repo.Ping(nil))
}
