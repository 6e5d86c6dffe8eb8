package persistence

import (
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
	"gorm.io/gorm"
)

// ===========================
// GORM TransactionContext 實作
// ===========================

// gormTransactionContext GORM 事務上下文實作
// 設計原則：
// 1. 實作 shared.TransactionContext 介面（標記介面）
// 2. 封裝 *gorm.DB，避免洩漏到 Domain Layer
// 3. 提供 GetDB() 方法供 Infrastructure Layer 內部使用
type gormTransactionContext struct {
	db *gorm.DB
}

// NewGORMTransactionContext 創建 GORM 事務上下文
func NewGORMTransactionContext(db *gorm.DB) shared.TransactionContext {
	return &gormTransactionContext{db: db}
}

// GetDB 獲取 GORM DB 連接（僅供 Infrastructure Layer 內部使用）
// 注意：這個方法不在 shared.TransactionContext 介面中，
// Domain Layer 無法訪問 GORM
func (ctx *gormTransactionContext) GetDB() *gorm.DB {
	return ctx.db
}

// DBProvider 各 Repository 子套件用來取出事務 DB 的介面
type DBProvider interface {
	shared.TransactionContext
	GetDB() *gorm.DB
}

// ResolveDB 從 TransactionContext 取得 DB；nil 或非 GORM 上下文時使用 fallback（auto-commit）
func ResolveDB(tx shared.TransactionContext, fallback *gorm.DB) *gorm.DB {
	if provider, ok := tx.(DBProvider); ok {
		return provider.GetDB()
	}
	return fallback
}
