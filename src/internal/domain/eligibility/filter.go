// Package eligibility 計算兌換折扣可套用的商品規格。
package eligibility

// EligibleVariantIDs 目錄中未被排除的 Variant ID
//
// 純函數：結果為 V − E，去重，依目錄中首次出現的順序排列。
// 空結果是合法輸出（折扣不適用任何商品），不是錯誤。
func EligibleVariantIDs(catalog []Product, cfg ExclusionConfig) []string {
	excluded := cfg.excludedSet()
	seen := make(map[string]struct{}, VariantCount(catalog))
	eligible := make([]string, 0, VariantCount(catalog))

	for _, p := range catalog {
		for _, v := range p.Variants {
			if v.ID == "" {
				continue
			}
			if _, skip := excluded[v.ID]; skip {
				continue
			}
			if _, dup := seen[v.ID]; dup {
				continue
			}
			seen[v.ID] = struct{}{}
			eligible = append(eligible, v.ID)
		}
	}
	return eligible
}

// ExcludedRows 排除清單中仍存在於目錄的列（附商品名稱）
//
// 已不在目錄中的 ID 以只含 VariantID 的列返回，方便管理者清理。
func ExcludedRows(catalog []Product, cfg ExclusionConfig) []CatalogRow {
	byID := make(map[string]CatalogRow)
	for _, row := range Flatten(catalog) {
		if _, ok := byID[row.VariantID]; !ok {
			byID[row.VariantID] = row
		}
	}

	rows := make([]CatalogRow, 0, len(cfg.ExcludedVariantIDs))
	for _, id := range cfg.ExcludedVariantIDs {
		if row, ok := byID[id]; ok {
			rows = append(rows, row)
			continue
		}
		rows = append(rows, CatalogRow{VariantID: id})
	}
	return rows
}
