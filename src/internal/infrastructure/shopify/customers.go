package shopify

import (
	"context"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
)

const customerTagsQuery = `query CustomerTags($id: ID!) {
  customer(id: $id) {
    id
    tags
  }
}`

// CustomerTags 查詢顧客標籤；顧客已不存在時返回空標籤
func (c *Client) CustomerTags(ctx context.Context, shop ledger.ShopDomain, customerID ledger.CustomerID) ([]string, error) {
	var data struct {
		Customer *struct {
			ID   string   `json:"id"`
			Tags []string `json:"tags"`
		} `json:"customer"`
	}
	if err := c.do(ctx, shop, "customerTags", customerTagsQuery, map[string]interface{}{
		"id": customerID.GID(),
	}, &data); err != nil {
		return nil, err
	}
	if data.Customer == nil {
		return []string{}, nil
	}
	return data.Customer.Tags, nil
}
