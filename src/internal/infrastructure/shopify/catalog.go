package shopify

import (
	"context"

	"github.com/jackyeh168/vip_points/src/internal/domain/eligibility"
	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
)

const catalogQuery = `query Catalog($first: Int!, $after: String, $variantsFirst: Int!) {
  products(first: $first, after: $after) {
    pageInfo { hasNextPage endCursor }
    nodes {
      id
      title
      variants(first: $variantsFirst) {
        pageInfo { hasNextPage endCursor }
        nodes { id title }
      }
    }
  }
}`

const productVariantsQuery = `query ProductVariants($id: ID!, $first: Int!, $after: String) {
  product(id: $id) {
    variants(first: $first, after: $after) {
      pageInfo { hasNextPage endCursor }
      nodes { id title }
    }
  }
}`

type pageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

type variantNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type variantConnection struct {
	PageInfo pageInfo      `json:"pageInfo"`
	Nodes    []variantNode `json:"nodes"`
}

type productNode struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Variants variantConnection `json:"variants"`
}

// FetchCatalog 讀取完整目錄（商品與 Variant 都分頁讀到底）
func (c *Client) FetchCatalog(ctx context.Context, shop ledger.ShopDomain) ([]eligibility.Product, error) {
	products := make([]eligibility.Product, 0)
	var after *string

	for {
		var data struct {
			Products struct {
				PageInfo pageInfo      `json:"pageInfo"`
				Nodes    []productNode `json:"nodes"`
			} `json:"products"`
		}
		if err := c.do(ctx, shop, "catalog", catalogQuery, map[string]interface{}{
			"first":         c.cfg.CatalogPageSize,
			"after":         after,
			"variantsFirst": c.cfg.VariantPageSize,
		}, &data); err != nil {
			return nil, err
		}

		for _, node := range data.Products.Nodes {
			variants := toVariants(node.Variants.Nodes)
			if node.Variants.PageInfo.HasNextPage {
				rest, err := c.remainingVariants(ctx, shop, node.ID, node.Variants.PageInfo.EndCursor)
				if err != nil {
					return nil, err
				}
				variants = append(variants, rest...)
			}
			products = append(products, eligibility.Product{ID: node.ID, Title: node.Title, Variants: variants})
		}

		if !data.Products.PageInfo.HasNextPage || data.Products.PageInfo.EndCursor == nil {
			return products, nil
		}
		after = data.Products.PageInfo.EndCursor
	}
}

// remainingVariants 讀取單一商品超過第一頁的 Variant
func (c *Client) remainingVariants(ctx context.Context, shop ledger.ShopDomain, productID string, after *string) ([]eligibility.Variant, error) {
	variants := make([]eligibility.Variant, 0)
	for after != nil {
		var data struct {
			Product *struct {
				Variants variantConnection `json:"variants"`
			} `json:"product"`
		}
		if err := c.do(ctx, shop, "productVariants", productVariantsQuery, map[string]interface{}{
			"id":    productID,
			"first": c.cfg.VariantPageSize,
			"after": after,
		}, &data); err != nil {
			return nil, err
		}
		if data.Product == nil {
			break
		}
		variants = append(variants, toVariants(data.Product.Variants.Nodes)...)
		if !data.Product.Variants.PageInfo.HasNextPage {
			break
		}
		after = data.Product.Variants.PageInfo.EndCursor
	}
	return variants, nil
}

func toVariants(nodes []variantNode) []eligibility.Variant {
	out := make([]eligibility.Variant, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, eligibility.Variant{ID: n.ID, Title: n.Title})
	}
	return out
}
