// Package eligibility 排除設定的管理用例。
package eligibility

import (
	"context"
	"fmt"

	"github.com/jackyeh168/vip_points/src/internal/domain/eligibility"
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// CatalogSource 商品目錄來源
type CatalogSource interface {
	FetchCatalog(ctx context.Context, shop ledger.ShopDomain) ([]eligibility.Product, error)
}

// ExclusionStore 排除設定的讀寫（平台 metafield）
type ExclusionStore interface {
	LoadExclusionConfig(ctx context.Context, shop ledger.ShopDomain) (eligibility.ExclusionConfig, error)
	SaveExclusionConfig(ctx context.Context, shop ledger.ShopDomain, cfg eligibility.ExclusionConfig) error
}

// ExclusionsView 管理介面的排除設定檢視
type ExclusionsView struct {
	Shop               string
	SchemaVersion      int
	ExcludedVariantIDs []string
	Excluded           []eligibility.CatalogRow
	Catalog            []eligibility.CatalogRow
}

// ExclusionAdmin 排除設定管理用例
type ExclusionAdmin struct {
	catalog  CatalogSource
	store    ExclusionStore
	recorder shared.OperationRecorder
}

// NewExclusionAdmin 建立管理用例
func NewExclusionAdmin(catalog CatalogSource, store ExclusionStore, recorder shared.OperationRecorder) *ExclusionAdmin {
	if recorder == nil {
		recorder = shared.NopRecorder{}
	}
	return &ExclusionAdmin{catalog: catalog, store: store, recorder: recorder}
}

// Get 讀取目前設定與完整目錄
func (a *ExclusionAdmin) Get(ctx context.Context, rawShop string) (*ExclusionsView, error) {
	shop, err := ledger.NewShopDomain(rawShop)
	if err != nil {
		return nil, shared.ErrInvalidInput.Wrap(err, "field", "shop")
	}

	cfg, err := a.store.LoadExclusionConfig(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusion config: %w", err)
	}
	catalog, err := a.catalog.FetchCatalog(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	return &ExclusionsView{
		Shop:               shop.String(),
		SchemaVersion:      cfg.SchemaVersion,
		ExcludedVariantIDs: cfg.ExcludedVariantIDs,
		Excluded:           eligibility.ExcludedRows(catalog, cfg),
		Catalog:            eligibility.Flatten(catalog),
	}, nil
}

// Put 以新的排除清單覆寫設定，返回寫入後的設定
//
// 不檢查 ID 是否存在於目錄：下架的商品可先行排除。
func (a *ExclusionAdmin) Put(ctx context.Context, rawShop string, variantIDs []string) (eligibility.ExclusionConfig, error) {
	shop, err := ledger.NewShopDomain(rawShop)
	if err != nil {
		return eligibility.ExclusionConfig{}, shared.ErrInvalidInput.Wrap(err, "field", "shop")
	}

	cfg := eligibility.NewExclusionConfig(variantIDs)
	if err := a.store.SaveExclusionConfig(ctx, shop, cfg); err != nil {
		return eligibility.ExclusionConfig{}, fmt.Errorf("failed to save exclusion config: %w", err)
	}

	a.recorder.RecordOperation(ctx, shared.Operation{
		Name:    "eligibility.exclusions_updated",
		Outcome: "saved",
		Fields: map[string]interface{}{
			"shop":     shop.String(),
			"excluded": len(cfg.ExcludedVariantIDs),
		},
	})
	return cfg, nil
}
