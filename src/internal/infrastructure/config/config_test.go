package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil, envFrom(nil))

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "VIP", cfg.Loyalty.VIPTag)
	assert.Equal(t, "2", cfg.Loyalty.AccrualRate)
	assert.Equal(t, 100, cfg.Shopify.CatalogPageSize)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_Precedence(t *testing.T) {
	// Arrange：檔案 < 環境變數 < 命令列
	path := writeConfig(t, `
server:
  addr: ":9000"
  request_timeout: 5s
database:
  driver: postgres
  dsn: "host=db user=vip"
loyalty:
  vip_tag: Gold
  accrual_rate: "1.5"
shopify:
  timeout: 3s
  shops:
    - domain: Demo.myshopify.com
      access_token: shpat_file
log:
  level: debug
`)
	env := envFrom(map[string]string{
		"VIP_POINTS_CONFIG":          path,
		"VIP_POINTS_LOYALTY_VIP_TAG": "Platinum",
		"VIP_POINTS_DATABASE_DSN":    "host=env",
		"VIP_POINTS_METRICS_ENABLED": "false",
		"VIP_POINTS_SHOPIFY_TIMEOUT": "7s",
	})

	// Act
	cfg, err := Load([]string{"--db-dsn", "host=flag", "--log-level", "warn"}, env)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=flag", cfg.Database.DSN)
	assert.Equal(t, "Platinum", cfg.Loyalty.VIPTag)
	assert.Equal(t, "1.5", cfg.Loyalty.AccrualRate)
	assert.Equal(t, 7*time.Second, cfg.Shopify.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, map[string]string{"demo.myshopify.com": "shpat_file"}, cfg.Shopify.ShopTokens())
}

func TestLoad_ConfigFlagOverridesEnvPath(t *testing.T) {
	fromEnv := writeConfig(t, "server:\n  addr: \":1111\"\n")
	fromFlag := writeConfig(t, "server:\n  addr: \":2222\"\n")

	cfg, err := Load([]string{"--config", fromFlag}, envFrom(map[string]string{"VIP_POINTS_CONFIG": fromEnv}))

	require.NoError(t, err)
	assert.Equal(t, ":2222", cfg.Server.Addr)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load([]string{"--config", path}, envFrom(nil))

	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, "loyalty:\n  vip_tags: VIP\n")

	_, err := Load([]string{"--config", path}, envFrom(nil))

	assert.Error(t, err)
}

func TestLoad_ShopsFromEnv(t *testing.T) {
	cfg, err := Load(nil, envFrom(map[string]string{
		"VIP_POINTS_SHOPIFY_SHOPS": "b.myshopify.com=tok-b, a.myshopify.com=tok-a",
	}))

	require.NoError(t, err)
	require.Len(t, cfg.Shopify.Shops, 2)
	assert.Equal(t, "a.myshopify.com", cfg.Shopify.Shops[0].Domain)
	assert.Equal(t, "tok-b", cfg.Shopify.ShopTokens()["b.myshopify.com"])
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	_, err := Load(nil, envFrom(map[string]string{"VIP_POINTS_SHOPIFY_BURST": "many"}))

	assert.ErrorContains(t, err, "VIP_POINTS_SHOPIFY_BURST")
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	cfg.Loyalty.AccrualRate = "-1"
	cfg.Shopify.Shops = []ShopCredential{{Domain: "demo.myshopify.com"}}

	err := cfg.Validate()

	require.Error(t, err)
	assert.ErrorContains(t, err, "database.driver")
	assert.ErrorContains(t, err, "loyalty.accrual_rate")
	assert.ErrorContains(t, err, "access_token")
}

func TestParseShops_Malformed(t *testing.T) {
	_, err := ParseShops("demo.myshopify.com")

	assert.Error(t, err)
}
