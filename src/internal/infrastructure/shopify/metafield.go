package shopify

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackyeh168/vip_points/src/internal/domain/eligibility"
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// 排除設定的 metafield 位置
const (
	ExclusionNamespace = "group_discount"
	ExclusionKey       = "config"
)

const exclusionConfigQuery = `query ExclusionConfig($namespace: String!, $key: String!) {
  shop {
    id
    metafield(namespace: $namespace, key: $key) { value }
  }
}`

const metafieldsSetMutation = `mutation SaveExclusionConfig($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    userErrors { field message }
  }
}`

type shopMetafield struct {
	Shop struct {
		ID        string `json:"id"`
		Metafield *struct {
			Value string `json:"value"`
		} `json:"metafield"`
	} `json:"shop"`
}

func (c *Client) readShopMetafield(ctx context.Context, shop ledger.ShopDomain) (*shopMetafield, error) {
	var data shopMetafield
	if err := c.do(ctx, shop, "exclusionConfig", exclusionConfigQuery, map[string]interface{}{
		"namespace": ExclusionNamespace,
		"key":       ExclusionKey,
	}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// LoadExclusionConfig 讀取並解碼排除設定；尚未設定時返回空設定
func (c *Client) LoadExclusionConfig(ctx context.Context, shop ledger.ShopDomain) (eligibility.ExclusionConfig, error) {
	data, err := c.readShopMetafield(ctx, shop)
	if err != nil {
		return eligibility.ExclusionConfig{}, err
	}
	if data.Shop.Metafield == nil {
		return eligibility.EmptyExclusionConfig(), nil
	}
	cfg, err := eligibility.DecodeExclusionConfig([]byte(data.Shop.Metafield.Value))
	if err != nil {
		return eligibility.ExclusionConfig{}, fmt.Errorf("shop %s: %w", shop, err)
	}
	return cfg, nil
}

// SaveExclusionConfig 以 metafieldsSet 寫入商店層級設定
func (c *Client) SaveExclusionConfig(ctx context.Context, shop ledger.ShopDomain, cfg eligibility.ExclusionConfig) error {
	current, err := c.readShopMetafield(ctx, shop)
	if err != nil {
		return err
	}
	value, err := cfg.Encode()
	if err != nil {
		return err
	}

	var data struct {
		MetafieldsSet struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	if err := c.do(ctx, shop, "metafieldsSet", metafieldsSetMutation, map[string]interface{}{
		"metafields": []map[string]interface{}{{
			"ownerId":   current.Shop.ID,
			"namespace": ExclusionNamespace,
			"key":       ExclusionKey,
			"type":      "json",
			"value":     string(value),
		}},
	}, &data); err != nil {
		return err
	}

	if errs := data.MetafieldsSet.UserErrors; len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			messages = append(messages, e.Message)
		}
		return shared.ErrInvalidInput.WithContext("field", "excludedVariantIds", "reason", strings.Join(messages, "; "))
	}
	return nil
}
