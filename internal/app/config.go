package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
)

// Catalog sources.
const (
	CatalogPostgres = "postgres"
	CatalogStatic   = "static"
)

// Cart backends.
const (
	CartMemory   = "memory"
	CartPostgres = "postgres"
	CartRedis    = "redis"
	CartSQLite   = "sqlite"
)

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), a .env file, flags, or YAML
// config files.
type Config struct {
	Addr          string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string        `usage:"PostgreSQL connection URL (STOREFRONT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL  string        `default:"" usage:"Base URL for relative image paths" flag:"image-base-url"`
	CatalogSource string        `default:"postgres" usage:"Catalog source: postgres or static (embedded seed)" flag:"catalog-source"`
	CartBackend   string        `default:"postgres" usage:"Cart persistence: memory, postgres, redis or sqlite" flag:"cart-backend"`
	RedisURL      string        `usage:"Redis URL for the redis cart backend (STOREFRONT_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	SQLitePath    string        `default:"storefront.db" usage:"Database file for the sqlite cart backend" flag:"sqlite-path"`
	FetchTimeout  time.Duration `default:"5s" usage:"Timeout of every catalog fetch" flag:"fetch-timeout"`
	Pricing       PricingConfig
	Sessions      SessionsConfig
	CatalogCache  CatalogCacheConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// PricingConfig holds the charges shown in the cart summary.
type PricingConfig struct {
	ShippingFlat string `default:"50" usage:"Flat shipping fee for non-empty carts" flag:"shipping-flat"`
	TaxRate      string `default:"0.1" usage:"Tax rate applied to the subtotal" flag:"tax-rate"`
}

// SessionsConfig bounds cart sessions.
type SessionsConfig struct {
	MaxLive      int           `default:"10000" usage:"Carts kept in memory" flag:"sessions-max-live"`
	IdleTTL      time.Duration `default:"30m" usage:"Evict in-memory carts idle for this long" flag:"sessions-idle-ttl"`
	LoadTimeout  time.Duration `default:"5s" usage:"Timeout of a cart restore from the backend" flag:"sessions-load-timeout"`
	CookieTTL    time.Duration `default:"720h" usage:"Lifetime of the cart session cookie and redis keys" flag:"sessions-cookie-ttl"`
	CookieSecure bool          `default:"false" usage:"Send the session cookie over HTTPS only" flag:"sessions-cookie-secure"`
}

// CatalogCacheConfig controls the read-through catalog cache.
type CatalogCacheConfig struct {
	Size int           `default:"256" usage:"Catalog cache entries, 0 disables the cache" flag:"catalog-cache-size"`
	TTL  time.Duration `default:"1m" usage:"Catalog cache entry lifetime" flag:"catalog-cache-ttl"`
}

// RateLimitConfig controls the sliding window rate limits.
type RateLimitConfig struct {
	Max     int           `default:"100" usage:"Max requests per client IP and window, 0 disables"`
	CartMax int           `default:"60" usage:"Max cart mutations per cart session and window, 0 disables" flag:"rate-limit-cart-max"`
	Window  time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from a .env file, environment variables,
// YAML config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate checks that the selected backends are known and configured.
func (c *Config) Validate() error {
	switch c.CatalogSource {
	case CatalogPostgres, CatalogStatic:
	default:
		return errors.Errorf("unknown catalog source %q", c.CatalogSource)
	}
	switch c.CartBackend {
	case CartMemory, CartPostgres, CartSQLite:
	case CartRedis:
		if c.RedisURL == "" {
			return errors.New("redis URL is required for the redis cart backend: set STOREFRONT_REDIS_URL or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown cart backend %q", c.CartBackend)
	}
	if c.NeedsPostgres() && c.DatabaseURL == "" {
		return errors.New("database URL is required: set STOREFRONT_DATABASE_URL or DATABASE_URL")
	}
	if _, err := c.Pricing.Parse(); err != nil {
		return err
	}
	return nil
}

// NeedsPostgres reports whether any selected backend reads from PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return c.CatalogSource == CatalogPostgres || c.CartBackend == CartPostgres
}

// Parse converts the configured charges into cart pricing. Negative values
// are rejected.
func (p PricingConfig) Parse() (cart.Pricing, error) {
	shipping, err := decimal.NewFromString(p.ShippingFlat)
	if err != nil {
		return cart.Pricing{}, errors.Wrapf(err, "parse shipping fee %q", p.ShippingFlat)
	}
	rate, err := decimal.NewFromString(p.TaxRate)
	if err != nil {
		return cart.Pricing{}, errors.Wrapf(err, "parse tax rate %q", p.TaxRate)
	}
	if shipping.IsNegative() || rate.IsNegative() {
		return cart.Pricing{}, errors.New("shipping fee and tax rate must not be negative")
	}
	return cart.Pricing{ShippingFlat: shipping, TaxRate: rate}, nil
}
