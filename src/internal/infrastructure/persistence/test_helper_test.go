package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ===========================
// 測試輔助函數
// ===========================

// ledgerEntryRow 事務測試用的資料表（唯一鍵模擬冪等鍵）
type ledgerEntryRow struct {
	ID  string `gorm:"primaryKey"`
	Key string `gorm:"uniqueIndex"`
}

func (ledgerEntryRow) TableName() string {
	return "ledger_entry_rows"
}

// setupTestDB 創建測試用的 SQLite in-memory 資料庫
//
// 1. 隔離性：每個測試使用獨立的 in-memory DB
// 2. 真實性：使用真實 SQL 引擎，而非 Mock
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err, "failed to connect to test database")
	require.NoError(t, Migrate(db, &ledgerEntryRow{}))

	t.Cleanup(func() { _ = Close(db) })
	return db
}

func countRows(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&ledgerEntryRow{}).Count(&n).Error)
	return n
}
