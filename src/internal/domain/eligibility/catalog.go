package eligibility

// ===========================
// 商品目錄（平台快照）
// ===========================

// Product 商品，包含有序的 Variant 列表
type Product struct {
	ID       string
	Title    string
	Variants []Variant
}

// Variant 商品規格
type Variant struct {
	ID    string
	Title string
}

// CatalogRow 目錄的扁平化列（管理介面列表使用）
type CatalogRow struct {
	ProductID    string `json:"productId"`
	ProductTitle string `json:"productTitle"`
	VariantID    string `json:"variantId"`
	VariantTitle string `json:"variantTitle"`
	Title        string `json:"title"`
}

// defaultVariantTitle 平台對單一規格商品使用的預設標題
const defaultVariantTitle = "Default Title"

// Flatten 將目錄展開為每個 Variant 一列
//
// Title 為顯示用名稱：預設規格只顯示商品名，其他顯示「商品 - 規格」。
func Flatten(catalog []Product) []CatalogRow {
	rows := make([]CatalogRow, 0, len(catalog))
	for _, p := range catalog {
		for _, v := range p.Variants {
			title := p.Title
			if v.Title != "" && v.Title != defaultVariantTitle {
				title = p.Title + " - " + v.Title
			}
			rows = append(rows, CatalogRow{
				ProductID:    p.ID,
				ProductTitle: p.Title,
				VariantID:    v.ID,
				VariantTitle: v.Title,
				Title:        title,
			})
		}
	}
	return rows
}

// VariantCount 目錄中的 Variant 總數（含重複）
func VariantCount(catalog []Product) int {
	n := 0
	for _, p := range catalog {
		n += len(p.Variants)
	}
	return n
}
