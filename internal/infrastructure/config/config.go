package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	OpenRouter  OpenRouterConfig `mapstructure:"openrouter"`
	Queue       QueueConfig      `mapstructure:"queue"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Catalog     CatalogConfig    `mapstructure:"catalog"`
	Quota       QuotaConfig      `mapstructure:"quota"`
	Aggregator  AggregatorConfig `mapstructure:"aggregator"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// QueueConfig 生成請求隊列
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory | redis
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig PostgreSQL 連線設定
type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Name        string `mapstructure:"name"`
	SSLMode     string `mapstructure:"ssl_mode"`
	TimeZone    string `mapstructure:"timezone"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// DSN 組出 gorm postgres 連線字串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone)
}

// CatalogConfig 外部食譜目錄 (TheMealDB) 設定
type CatalogConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxConcurrency   int           `mapstructure:"max_concurrency"`
	BreakerTimeout   time.Duration `mapstructure:"breaker_timeout"`
	BreakerInterval  time.Duration `mapstructure:"breaker_interval"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	MinRequests      uint32        `mapstructure:"min_requests"`
}

// QuotaConfig 每日 AI 額度
type QuotaConfig struct {
	DailyLimit int    `mapstructure:"daily_limit"`
	TimeZone   string `mapstructure:"timezone"`
}

// Location 解析時區，失敗時回退 UTC
func (q QuotaConfig) Location() *time.Location {
	if q.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(q.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AggregatorConfig 聚合流程設定
type AggregatorConfig struct {
	SufficiencyThreshold int  `mapstructure:"sufficiency_threshold"`
	DefaultLimit         int  `mapstructure:"default_limit"`
	MaxLimit             int  `mapstructure:"max_limit"`
	AutoPersist          bool `mapstructure:"auto_persist"`
	EnableGenerative     bool `mapstructure:"enable_generative"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// MetricsConfig Prometheus 指標
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時以環境變數與預設值為準
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	v.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	v.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	v.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	v.BindEnv("queue.workers", "QUEUE_WORKERS")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("cache.backend", "CACHE_BACKEND")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("quota.daily_limit", "AI_DAILY_LIMIT")
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	v.BindEnv("dedup_window", "DEDUP_WINDOW")
	v.BindEnv("log_level", "LOG_LEVEL")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-aggregator")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "45s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// OpenRouter 設定
	v.SetDefault("openrouter.enabled", true)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "meta-llama/llama-3.1-8b-instruct:free")
	v.SetDefault("openrouter.max_tokens", 1200)
	v.SetDefault("openrouter.temperature", 0.7)
	v.SetDefault("openrouter.timeout", "30s")

	// 隊列設定
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.max_size", 100)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "6h")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// 資料庫設定
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "recipes")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.timezone", "America/Sao_Paulo")
	v.SetDefault("database.auto_migrate", true)

	// 外部目錄設定
	v.SetDefault("catalog.base_url", "https://www.themealdb.com/api/json/v1/1")
	v.SetDefault("catalog.timeout", "8s")
	v.SetDefault("catalog.max_concurrency", 3)
	v.SetDefault("catalog.breaker_timeout", "60s")
	v.SetDefault("catalog.breaker_interval", "30s")
	v.SetDefault("catalog.failure_threshold", 0.8)
	v.SetDefault("catalog.min_requests", 5)

	// 額度設定
	v.SetDefault("quota.daily_limit", 3)
	v.SetDefault("quota.timezone", "America/Sao_Paulo")

	// 聚合設定
	v.SetDefault("aggregator.sufficiency_threshold", 2)
	v.SetDefault("aggregator.default_limit", 20)
	v.SetDefault("aggregator.max_limit", 50)
	v.SetDefault("aggregator.auto_persist", true)
	v.SetDefault("aggregator.enable_generative", true)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Cache.Enabled {
		if config.Cache.Backend != "memory" && config.Cache.Backend != "redis" {
			return fmt.Errorf("invalid cache backend %q", config.Cache.Backend)
		}
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Queue.Workers <= 0 || config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue settings")
	}

	if config.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog timeout must be positive")
	}
	if config.Catalog.MaxConcurrency <= 0 {
		return fmt.Errorf("invalid catalog max concurrency")
	}
	if config.OpenRouter.Enabled && config.OpenRouter.Timeout <= 0 {
		return fmt.Errorf("openrouter timeout must be positive")
	}
	if config.Quota.DailyLimit < 0 {
		return fmt.Errorf("invalid quota daily limit")
	}
	if config.Aggregator.SufficiencyThreshold <= 0 {
		return fmt.Errorf("invalid sufficiency threshold")
	}
	if config.Aggregator.DefaultLimit <= 0 || config.Aggregator.MaxLimit < config.Aggregator.DefaultLimit {
		return fmt.Errorf("invalid aggregator limits")
	}

	return nil
}
