package ledger

import (
	"testing"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB 創建測試資料庫（in-memory SQLite，單一連線）
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := persistence.Open(persistence.Config{Driver: persistence.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err, "failed to connect to test database")
	require.NoError(t, persistence.Migrate(db, Models()...), "failed to migrate database schema")

	t.Cleanup(func() { _ = persistence.Close(db) })
	return db
}

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
