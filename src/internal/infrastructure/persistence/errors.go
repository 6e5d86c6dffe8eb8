package persistence

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// uniqueViolationMarkers 各資料庫的唯一約束錯誤訊息
// SQLite: "UNIQUE constraint failed"
// PostgreSQL: "duplicate key value violates unique constraint"
var uniqueViolationMarkers = []string{"UNIQUE constraint", "duplicate key", "Duplicate entry"}

// IsUniqueConstraintError 是否為唯一約束違反
//
// 已知限制：依賴英文錯誤訊息，驅動未開啟 TranslateError 時仍可判斷
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, marker := range uniqueViolationMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsNotFound 是否為查無記錄
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
