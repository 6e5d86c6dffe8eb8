package eligibility

import (
	"bytes"
	"encoding/json"
)

// ===========================
// ExclusionConfig 值對象
// ===========================

// CurrentSchemaVersion 目前寫入的設定版本
//
// 版本 1 即舊版 {"excludedVariantIds": [...]} 格式，
// 缺少 schemaVersion 的資料一律視為版本 1。
const CurrentSchemaVersion = 1

// ExclusionConfig 商店層級的排除設定（平台 metafield 的型別化表示）
//
// 只在平台邊界解碼一次，業務邏輯不再處理原始 JSON。
type ExclusionConfig struct {
	SchemaVersion      int
	ExcludedVariantIDs []string
}

// exclusionConfigDocument 線上格式
type exclusionConfigDocument struct {
	SchemaVersion      *int     `json:"schemaVersion,omitempty"`
	ExcludedVariantIDs []string `json:"excludedVariantIds"`
}

// EmptyExclusionConfig 沒有任何排除項的設定
func EmptyExclusionConfig() ExclusionConfig {
	return ExclusionConfig{SchemaVersion: CurrentSchemaVersion, ExcludedVariantIDs: []string{}}
}

// NewExclusionConfig 由管理介面輸入建立設定（去除空白與重複）
func NewExclusionConfig(variantIDs []string) ExclusionConfig {
	return ExclusionConfig{
		SchemaVersion:      CurrentSchemaVersion,
		ExcludedVariantIDs: dedupe(variantIDs),
	}
}

// DecodeExclusionConfig 解碼平台儲存的設定
//
// - 空值或 null：返回空設定
// - 沒有 schemaVersion：視為版本 1
// - 格式錯誤、版本大於 CurrentSchemaVersion 或小於 1：ErrStoredConfigInvalid
func DecodeExclusionConfig(raw []byte) (ExclusionConfig, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return EmptyExclusionConfig(), nil
	}

	var doc exclusionConfigDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return ExclusionConfig{}, ErrStoredConfigInvalid.Wrap(err)
	}

	version := 1
	if doc.SchemaVersion != nil {
		version = *doc.SchemaVersion
	}
	if version < 1 || version > CurrentSchemaVersion {
		return ExclusionConfig{}, ErrStoredConfigInvalid.WithContext(
			"version", version,
			"supported", CurrentSchemaVersion,
		)
	}

	return ExclusionConfig{
		SchemaVersion:      version,
		ExcludedVariantIDs: dedupe(doc.ExcludedVariantIDs),
	}, nil
}

// Encode 以目前版本編碼
func (c ExclusionConfig) Encode() ([]byte, error) {
	version := CurrentSchemaVersion
	ids := c.ExcludedVariantIDs
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(exclusionConfigDocument{
		SchemaVersion:      &version,
		ExcludedVariantIDs: ids,
	})
}

// excludedSet 集合表示（過濾時使用）
func (c ExclusionConfig) excludedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ExcludedVariantIDs))
	for _, id := range c.ExcludedVariantIDs {
		set[id] = struct{}{}
	}
	return set
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
