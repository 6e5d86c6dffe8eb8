// Package config 載入服務設定：預設值 → YAML 檔 → VIP_POINTS_* 環境變數 → 命令列參數。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/jackyeh168/vip_points/src/internal/domain/ledger"
)

// EnvPrefix 環境變數前綴
const EnvPrefix = "VIP_POINTS_"

// Config 服務設定
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Loyalty  LoyaltyConfig  `yaml:"loyalty"`
	Shopify  ShopifyConfig  `yaml:"shopify"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // sqlite | postgres
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	LogLevel     string `yaml:"log_level"`
}

type LoyaltyConfig struct {
	VIPTag      string `yaml:"vip_tag"`
	AccrualRate string `yaml:"accrual_rate"` // 十進位字串，例如 "2" 或 "1.5"
	CodePrefix  string `yaml:"code_prefix"`
}

// ShopCredential 單一商店的 Admin API 憑證
type ShopCredential struct {
	Domain      string `yaml:"domain"`
	AccessToken string `yaml:"access_token"`
}

type ShopifyConfig struct {
	APIVersion        string           `yaml:"api_version"`
	RequestsPerSecond float64          `yaml:"requests_per_second"`
	Burst             int              `yaml:"burst"`
	Timeout           time.Duration    `yaml:"timeout"`
	CatalogPageSize   int              `yaml:"catalog_page_size"`
	Shops             []ShopCredential `yaml:"shops"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default 預設設定（本機開發可直接啟動）
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			DSN:      "vip_points.db",
			LogLevel: "warn",
		},
		Loyalty: LoyaltyConfig{
			VIPTag:      "VIP",
			AccrualRate: "2",
			CodePrefix:  "VIP",
		},
		Shopify: ShopifyConfig{
			APIVersion:        "2024-10",
			RequestsPerSecond: 2,
			Burst:             4,
			Timeout:           10 * time.Second,
			CatalogPageSize:   100,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load 依序套用預設值、設定檔、環境變數與命令列參數，最後驗證
//
// 設定檔路徑來自 --config 或 VIP_POINTS_CONFIG；兩者皆空時不讀檔。
// lookupEnv 為 nil 時使用 os.LookupEnv。
func Load(args []string, lookupEnv func(string) (string, bool)) (Config, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	// 命令列先解析到暫存設定，等檔案與環境變數套用後再覆寫
	scratch := Default()
	flags := newFlagSet(&scratch)
	var path string
	flags.StringVar(&path, "config", "", "path to YAML config file")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	if path == "" {
		path, _ = lookupEnv(EnvPrefix + "CONFIG")
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(lookupEnv); err != nil {
		return Config{}, err
	}
	if err := applyChangedFlags(&cfg, flags); err != nil {
		return Config{}, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	// 空檔案視為沒有設定
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// ===========================
// 環境變數
// ===========================

func (cfg *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("SERVER_ADDR", &cfg.Server.Addr)
	duration("SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	str("DATABASE_DRIVER", &cfg.Database.Driver)
	str("DATABASE_DSN", &cfg.Database.DSN)
	integer("DATABASE_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	str("LOYALTY_VIP_TAG", &cfg.Loyalty.VIPTag)
	str("LOYALTY_ACCRUAL_RATE", &cfg.Loyalty.AccrualRate)
	str("LOYALTY_CODE_PREFIX", &cfg.Loyalty.CodePrefix)
	str("SHOPIFY_API_VERSION", &cfg.Shopify.APIVersion)
	integer("SHOPIFY_BURST", &cfg.Shopify.Burst)
	duration("SHOPIFY_TIMEOUT", &cfg.Shopify.Timeout)
	integer("SHOPIFY_CATALOG_PAGE_SIZE", &cfg.Shopify.CatalogPageSize)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_FILE", &cfg.Log.File)
	integer("LOG_MAX_SIZE_MB", &cfg.Log.MaxSizeMB)
	integer("LOG_MAX_BACKUPS", &cfg.Log.MaxBackups)

	if v, ok := lookup(EnvPrefix + "SHOPIFY_REQUESTS_PER_SECOND"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSHOPIFY_REQUESTS_PER_SECOND: %w", EnvPrefix, err))
		} else {
			cfg.Shopify.RequestsPerSecond = f
		}
	}
	if v, ok := lookup(EnvPrefix + "METRICS_ENABLED"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMETRICS_ENABLED: %w", EnvPrefix, err))
		} else {
			cfg.Metrics.Enabled = b
		}
	}
	// 格式：shop-a.myshopify.com=token,shop-b.myshopify.com=token
	if v, ok := lookup(EnvPrefix + "SHOPIFY_SHOPS"); ok {
		shops, err := ParseShops(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSHOPIFY_SHOPS: %w", EnvPrefix, err))
		} else {
			cfg.Shopify.Shops = shops
		}
	}
	return errors.Join(errs...)
}

// ParseShops 解析 domain=token 以逗號分隔的清單
func ParseShops(raw string) ([]ShopCredential, error) {
	var shops []ShopCredential
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		domain, token, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q must be domain=token", part)
		}
		shops = append(shops, ShopCredential{Domain: domain, AccessToken: token})
	}
	return shops, nil
}

// ===========================
// 命令列參數
// ===========================

func newFlagSet(cfg *Config) *pflag.FlagSet {
	flags := pflag.NewFlagSet("vip-points", pflag.ContinueOnError)
	flags.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "HTTP listen address")
	flags.StringVar(&cfg.Database.Driver, "db-driver", cfg.Database.Driver, "database driver (sqlite|postgres)")
	flags.StringVar(&cfg.Database.DSN, "db-dsn", cfg.Database.DSN, "database DSN")
	flags.StringVar(&cfg.Loyalty.VIPTag, "vip-tag", cfg.Loyalty.VIPTag, "customer tag that marks VIP members")
	flags.StringVar(&cfg.Loyalty.AccrualRate, "accrual-rate", cfg.Loyalty.AccrualRate, "points earned per currency unit")
	flags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level (debug|info|warn|error)")
	flags.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format (json|console)")
	flags.BoolVar(&cfg.Metrics.Enabled, "metrics", cfg.Metrics.Enabled, "expose /metrics")
	return flags
}

// applyChangedFlags 只套用命令列上明確給定的參數
func applyChangedFlags(cfg *Config, parsed *pflag.FlagSet) error {
	target := newFlagSet(cfg)
	var err error
	parsed.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || err != nil {
			return
		}
		err = target.Set(f.Name, f.Value.String())
	})
	return err
}

// ===========================
// 正規化與驗證
// ===========================

func (cfg *Config) normalize() {
	cfg.Server.Addr = strings.TrimSpace(cfg.Server.Addr)
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Database.DSN = strings.TrimSpace(cfg.Database.DSN)
	cfg.Loyalty.VIPTag = strings.TrimSpace(cfg.Loyalty.VIPTag)
	cfg.Loyalty.AccrualRate = strings.TrimSpace(cfg.Loyalty.AccrualRate)
	cfg.Loyalty.CodePrefix = strings.TrimSpace(cfg.Loyalty.CodePrefix)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	shops := make([]ShopCredential, 0, len(cfg.Shopify.Shops))
	for _, s := range cfg.Shopify.Shops {
		domain := strings.ToLower(strings.TrimSpace(s.Domain))
		token := strings.TrimSpace(s.AccessToken)
		if domain == "" && token == "" {
			continue
		}
		shops = append(shops, ShopCredential{Domain: domain, AccessToken: token})
	}
	sort.SliceStable(shops, func(i, j int) bool { return shops[i].Domain < shops[j].Domain })
	cfg.Shopify.Shops = shops
}

// Validate 檢查設定，返回所有問題
func (cfg Config) Validate() error {
	var errs []error
	if cfg.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if cfg.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}
	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be sqlite or postgres", cfg.Database.Driver))
	}
	if cfg.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if cfg.Loyalty.VIPTag == "" {
		errs = append(errs, errors.New("loyalty.vip_tag is required"))
	}
	if _, err := ledger.ParseAccrualRate(cfg.Loyalty.AccrualRate); err != nil {
		errs = append(errs, fmt.Errorf("loyalty.accrual_rate: %w", err))
	}
	if cfg.Shopify.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("shopify.requests_per_second must be positive"))
	}
	if cfg.Shopify.CatalogPageSize < 1 || cfg.Shopify.CatalogPageSize > 250 {
		errs = append(errs, errors.New("shopify.catalog_page_size must be between 1 and 250"))
	}
	seen := make(map[string]bool, len(cfg.Shopify.Shops))
	for _, s := range cfg.Shopify.Shops {
		if _, err := ledger.NewShopDomain(s.Domain); err != nil {
			errs = append(errs, fmt.Errorf("shopify.shops: invalid domain %q", s.Domain))
			continue
		}
		if s.AccessToken == "" {
			errs = append(errs, fmt.Errorf("shopify.shops: %s has no access_token", s.Domain))
		}
		if seen[s.Domain] {
			errs = append(errs, fmt.Errorf("shopify.shops: %s listed twice", s.Domain))
		}
		seen[s.Domain] = true
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", cfg.Log.Format))
	}
	return errors.Join(errs...)
}

// ShopTokens 商店網域 → access token
func (c ShopifyConfig) ShopTokens() map[string]string {
	out := make(map[string]string, len(c.Shops))
	for _, s := range c.Shops {
		out[s.Domain] = s.AccessToken
	}
	return out
}
