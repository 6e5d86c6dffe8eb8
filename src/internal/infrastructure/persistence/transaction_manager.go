package persistence

import (
	"context"

	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
	"gorm.io/gorm"
)

// GORMTransactionManager 以 GORM 事務實作 shared.TransactionManager
type GORMTransactionManager struct {
	db *gorm.DB
}

// NewGORMTransactionManager 建立事務管理器
func NewGORMTransactionManager(db *gorm.DB) *GORMTransactionManager {
	return &GORMTransactionManager{db: db}
}

// InTransaction 在單一資料庫事務中執行 fn
//
// - fn 返回 error：回滾並原樣返回
// - fn panic：GORM 回滾後 panic 繼續向上拋出
// - ctx 取消：驅動中止事務
func (m *GORMTransactionManager) InTransaction(ctx context.Context, fn func(tx shared.TransactionContext) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMTransactionContext(tx))
	})
}
