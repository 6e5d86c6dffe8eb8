package shopify

import (
	"context"
	"time"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/redemption"
)

const discountByCodeQuery = `query DiscountByCode($code: String!) {
  codeDiscountNodeByCode(code: $code) { id }
}`

const discountCodeBasicCreateMutation = `mutation discountCodeBasicCreate($basicCodeDiscount: DiscountCodeBasicInput!) {
  discountCodeBasicCreate(basicCodeDiscount: $basicCodeDiscount) {
    userErrors { field message }
    codeDiscountNode {
      id
      codeDiscount {
        ... on DiscountCodeBasic {
          codes(first: 1) { nodes { code } }
        }
      }
    }
  }
}`

// DiscountCodeExists 平台上是否已有此折扣碼
func (c *Client) DiscountCodeExists(ctx context.Context, shop ledger.ShopDomain, code string) (bool, error) {
	var data struct {
		Node *struct {
			ID string `json:"id"`
		} `json:"codeDiscountNodeByCode"`
	}
	if err := c.do(ctx, shop, "discountByCode", discountByCodeQuery, map[string]interface{}{"code": code}, &data); err != nil {
		return false, err
	}
	return data.Node != nil, nil
}

// IssueDiscountCode 建立一次性、限定顧客、限定 Variant 的固定金額折扣碼
//
// 錯誤：
// - *redemption.IssuanceRejectedError：平台以 userErrors 拒絕
// - shared.ErrUpstreamUnavailable：傳輸或 GraphQL 錯誤
func (c *Client) IssueDiscountCode(ctx context.Context, shop ledger.ShopDomain, req redemption.DiscountRequest) (string, error) {
	input := map[string]interface{}{
		"title":      req.Title,
		"code":       req.Code,
		"startsAt":   req.StartsAt.UTC().Format(time.RFC3339),
		"usageLimit": req.UsageLimit,
		"customerSelection": map[string]interface{}{
			"customers": map[string]interface{}{
				"add": []string{req.CustomerID.GID()},
			},
		},
		"customerGets": map[string]interface{}{
			"value": map[string]interface{}{
				"discountAmount": map[string]interface{}{
					"amount":            req.Amount.String(),
					"appliesOnEachItem": false,
				},
			},
			"items": map[string]interface{}{
				"products": map[string]interface{}{
					"productVariantsToAdd": nonNil(req.VariantIDs),
				},
			},
		},
	}

	var data struct {
		Create struct {
			UserErrors       []userError `json:"userErrors"`
			CodeDiscountNode *struct {
				ID           string `json:"id"`
				CodeDiscount struct {
					Codes struct {
						Nodes []struct {
							Code string `json:"code"`
						} `json:"nodes"`
					} `json:"codes"`
				} `json:"codeDiscount"`
			} `json:"codeDiscountNode"`
		} `json:"discountCodeBasicCreate"`
	}
	if err := c.do(ctx, shop, "discountCodeBasicCreate", discountCodeBasicCreateMutation, map[string]interface{}{
		"basicCodeDiscount": input,
	}, &data); err != nil {
		return "", err
	}

	if errs := data.Create.UserErrors; len(errs) > 0 {
		rejected := &redemption.IssuanceRejectedError{Rejections: make([]redemption.IssuanceRejection, 0, len(errs))}
		for _, e := range errs {
			rejected.Rejections = append(rejected.Rejections, redemption.IssuanceRejection{Field: e.Field, Message: e.Message})
		}
		return "", rejected
	}

	if node := data.Create.CodeDiscountNode; node != nil && len(node.CodeDiscount.Codes.Nodes) > 0 {
		return node.CodeDiscount.Codes.Nodes[0].Code, nil
	}
	return req.Code, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
