// Package shopify 以 Admin GraphQL API 實作商務平台的各項查詢與折扣碼建立。
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
	"github.com/jackyeh168/vip_points/src/internal/domain/shared"
)

// 預設值
const (
	DefaultAPIVersion        = "2024-10"
	DefaultTimeout           = 10 * time.Second
	DefaultRequestsPerSecond = 2.0
	DefaultBurst             = 4
	DefaultCatalogPageSize   = 100
	DefaultVariantPageSize   = 50
)

// maxResponseBytes 回應大小上限
const maxResponseBytes = 8 << 20

// Config 平台連線設定
type Config struct {
	APIVersion        string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	CatalogPageSize   int
	VariantPageSize   int
	// Shops 商店網域 → Admin API access token
	Shops map[string]string
	// Endpoint 覆寫 GraphQL 端點（測試用）；為空時使用 https://<shop>/admin/api/<version>/graphql.json
	Endpoint func(shop ledger.ShopDomain) string
	// Transport 底層傳輸；為空時使用 http.DefaultTransport，一律以 otelhttp 包裝
	Transport http.RoundTripper
	// TracerProvider 為空時使用全域設定
	TracerProvider trace.TracerProvider
}

// Client Admin GraphQL 客戶端
//
// 每個商店各有一個 rate.Limiter：平台以商店為單位計算配額。
type Client struct {
	cfg      Config
	http     *http.Client
	tokens   map[string]string
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient 建立客戶端
func NewClient(cfg Config) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.CatalogPageSize <= 0 {
		cfg.CatalogPageSize = DefaultCatalogPageSize
	}
	if cfg.VariantPageSize <= 0 {
		cfg.VariantPageSize = DefaultVariantPageSize
	}

	tokens := make(map[string]string, len(cfg.Shops))
	for domain, token := range cfg.Shops {
		tokens[strings.ToLower(strings.TrimSpace(domain))] = token
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	opts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "shopify.graphql " + r.URL.Host
		}),
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	transport := otelhttp.NewTransport(base, opts...)

	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		tokens:   tokens,
		limiters: make(map[string]*rate.Limiter),
	}
}

// ===========================
// GraphQL 傳輸
// ===========================

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlError struct {
	Message    string                 `json:"message"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// userError mutation 回傳的使用者錯誤
type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// do 執行一次 GraphQL 請求並將 data 解碼到 out
//
// 傳輸錯誤、非 2xx、頂層 errors 一律以 shared.ErrUpstreamUnavailable 返回
func (c *Client) do(ctx context.Context, shop ledger.ShopDomain, operation, query string, variables map[string]interface{}, out interface{}) error {
	token, ok := c.tokens[shop.String()]
	if !ok {
		return shared.ErrUpstreamUnavailable.WithContext("shop", shop.String(), "reason", "no credentials configured for shop")
	}

	if err := c.limiter(shop).Wait(ctx); err != nil {
		return shared.ErrUpstreamUnavailable.Wrap(err, "shop", shop.String(), "operation", operation, "reason", "rate limit wait")
	}

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(shop), bytes.NewReader(body))
	if err != nil {
		return shared.ErrUpstreamUnavailable.Wrap(err, "shop", shop.String(), "operation", operation)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return shared.ErrUpstreamUnavailable.Wrap(err, "shop", shop.String(), "operation", operation)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return shared.ErrUpstreamUnavailable.Wrap(err, "shop", shop.String(), "operation", operation)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return shared.ErrUpstreamUnavailable.WithContext(
			"shop", shop.String(),
			"operation", operation,
			"status", resp.StatusCode,
			"body", truncate(string(raw), 256),
		)
	}

	var envelope graphqlResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return shared.ErrUpstreamUnavailable.Wrap(err, "shop", shop.String(), "operation", operation, "reason", "malformed response")
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return shared.ErrUpstreamUnavailable.WithContext(
			"shop", shop.String(),
			"operation", operation,
			"graphql_errors", strings.Join(messages, "; "),
		)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return shared.ErrUpstreamUnavailable.Wrap(err, "shop", shop.String(), "operation", operation, "reason", "unexpected data shape")
	}
	return nil
}

func (c *Client) endpoint(shop ledger.ShopDomain) string {
	if c.cfg.Endpoint != nil {
		return c.cfg.Endpoint(shop)
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop.String(), c.cfg.APIVersion)
}

func (c *Client) limiter(shop ledger.ShopDomain) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[shop.String()]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.cfg.RequestsPerSecond), c.cfg.Burst)
		c.limiters[shop.String()] = l
	}
	return l
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
