package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 汇总应用配置，可来自 .env 文件或环境变量。
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Render   RenderConfig   `mapstructure:"render"`
	Adapter  AdapterConfig  `mapstructure:"adapter"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
}

// APIConfig 包含 HTTP 服务配置。
type APIConfig struct {
	Port int `mapstructure:"port"`
	// AllowedOrigins 为空时 WebSocket 只接受同源连接。
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig 包含 PostgreSQL 连接选项。
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	LogSQL   bool   `mapstructure:"log_sql"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr 返回 go-redis 与 asynq 使用的 host:port。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig 包含 MinIO/S3 兼容存储的连接选项。
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// RenderConfig 保存请求未指定时使用的默认值。
type RenderConfig struct {
	Backend        string        `mapstructure:"backend"`
	Variant        string        `mapstructure:"variant"`
	PageSize       string        `mapstructure:"page_size"`
	Locale         string        `mapstructure:"locale"`
	MarginMM       float64       `mapstructure:"margin_mm"`
	MaxPhotoBytes  int           `mapstructure:"max_photo_bytes"`
	Concurrency    int           `mapstructure:"concurrency"`
	ChromiumBin    string        `mapstructure:"chromium_bin"`
	BrowserTimeout time.Duration `mapstructure:"browser_timeout"`
	// FontFile 等为 fpdf 后端额外嵌入的 TTF 字体（例如中文字体），优先于内置字体使用。
	FontFile       string `mapstructure:"font_file"`
	FontBoldFile   string `mapstructure:"font_bold_file"`
	FontItalicFile string `mapstructure:"font_italic_file"`
}

// AdapterConfig 配置用于改写 CV 的补全 API。
type AdapterConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	Temperature  float32       `mapstructure:"temperature"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	HistoryLimit int           `mapstructure:"history_limit"`
	// SessionStore 取 "redis" 或 "memory"；MaxSessions 只约束后者。
	SessionStore string        `mapstructure:"session_store"`
	MaxSessions  int           `mapstructure:"max_sessions"`
	RatePerMin   int           `mapstructure:"rate_per_min"`
	ClientLimit  int           `mapstructure:"client_limit"`
}

// Enabled 表示是否配置了 API key。
func (a AdapterConfig) Enabled() bool { return a.APIKey != "" }

// SecurityConfig 包含上传扫描选项。
type SecurityConfig struct {
	ClamdAddr string `mapstructure:"clamd_addr"`
}

// DSN 构造 lib/pq 兼容的连接串。
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load 先读取可选的 .env 文件，再读取环境变量（带默认值）。
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad 包装 Load，失败时 panic。
func MustLoad(envFiles ...string) *Config {
	cfg, err := Load(envFiles...)
	if err != nil {
		panic(err)
	}
	return cfg
}

// loadDotEnv 不会覆盖环境中已存在的变量。
// 默认的 .env 不存在没关系；显式指定的文件不存在则报错。
func loadDotEnv(files []string) error {
	if len(files) == 0 {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "cvstudio")
	v.SetDefault("database.user", "cvstudio")
	v.SetDefault("database.password", "cvstudio")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_sql", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "cvs")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("render.backend", "fpdf")
	v.SetDefault("render.variant", "two-column")
	v.SetDefault("render.page_size", "A4")
	v.SetDefault("render.locale", "en")
	v.SetDefault("render.margin_mm", 20.0)
	v.SetDefault("render.max_photo_bytes", 5<<20)
	v.SetDefault("render.concurrency", 0)
	v.SetDefault("render.browser_timeout", 60*time.Second)
	v.SetDefault("adapter.model", "gemini-1.5-flash")
	v.SetDefault("adapter.temperature", 0.7)
	v.SetDefault("adapter.session_ttl", 2*time.Hour)
	v.SetDefault("adapter.history_limit", 10)
	v.SetDefault("adapter.session_store", "redis")
	v.SetDefault("adapter.max_sessions", 1000)
	v.SetDefault("adapter.rate_per_min", 30)
	v.SetDefault("adapter.client_limit", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                 "API_PORT",
		"database.host":            "DATABASE_HOST",
		"database.port":            "DATABASE_PORT",
		"database.name":            "POSTGRES_DB",
		"database.user":            "POSTGRES_USER",
		"database.password":        "POSTGRES_PASSWORD",
		"database.sslmode":         "DATABASE_SSLMODE",
		"database.log_sql":         "DATABASE_LOG_SQL",
		"redis.host":               "REDIS_HOST",
		"redis.port":               "REDIS_PORT",
		"minio.endpoint":           "MINIO_ENDPOINT",
		"minio.public_endpoint":    "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":      "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":  "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":            "MINIO_USE_SSL",
		"minio.bucket":             "MINIO_BUCKET",
		"minio.region":             "MINIO_REGION",
		"minio.bucket_lookup":      "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket": "MINIO_AUTO_CREATE_BUCKET",
		"render.backend":           "RENDER_BACKEND",
		"render.variant":           "RENDER_VARIANT",
		"render.page_size":         "RENDER_PAGE_SIZE",
		"render.locale":            "RENDER_LOCALE",
		"render.margin_mm":         "RENDER_MARGIN_MM",
		"render.max_photo_bytes":   "RENDER_MAX_PHOTO_BYTES",
		"render.concurrency":       "RENDER_CONCURRENCY",
		"render.chromium_bin":      "CHROMIUM_BIN",
		"render.browser_timeout":   "RENDER_BROWSER_TIMEOUT",
		"render.font_file":         "RENDER_FONT_FILE",
		"render.font_bold_file":    "RENDER_FONT_BOLD_FILE",
		"render.font_italic_file":  "RENDER_FONT_ITALIC_FILE",
		"adapter.api_key":          "GEMINI_API_KEY",
		"adapter.model":            "ADAPTER_MODEL",
		"adapter.temperature":      "ADAPTER_TEMPERATURE",
		"adapter.session_ttl":      "ADAPTER_SESSION_TTL",
		"adapter.history_limit":    "ADAPTER_HISTORY_LIMIT",
		"adapter.session_store":    "ADAPTER_SESSION_STORE",
		"adapter.max_sessions":     "ADAPTER_MAX_SESSIONS",
		"adapter.rate_per_min":     "ADAPTER_RATE_PER_MIN",
		"adapter.client_limit":     "ADAPTER_CLIENT_LIMIT",
		"security.clamd_addr":      "CLAMD_ADDR",
		"api.allowed_origins":      "API_ALLOWED_ORIGINS",
		"log.level":                "LOG_LEVEL",
		"log.format":               "LOG_FORMAT",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	switch cfg.Render.Backend {
	case "fpdf", "rod", "chromedp":
	default:
		return fmt.Errorf("unknown render backend %q", cfg.Render.Backend)
	}
	if cfg.Render.MarginMM < 0 {
		return errors.New("render margin must not be negative")
	}
	if cfg.Render.MaxPhotoBytes <= 0 {
		return errors.New("render max photo bytes must be positive")
	}
	if cfg.Render.FontFile == "" && (cfg.Render.FontBoldFile != "" || cfg.Render.FontItalicFile != "") {
		return errors.New("render font bold/italic files require RENDER_FONT_FILE")
	}
	if cfg.Adapter.HistoryLimit <= 0 {
		return errors.New("adapter history limit must be positive")
	}
	if cfg.Adapter.SessionTTL <= 0 {
		return errors.New("adapter session ttl must be positive")
	}
	if cfg.Adapter.SessionStore != "redis" && cfg.Adapter.SessionStore != "memory" {
		return fmt.Errorf("unknown adapter session store %q", cfg.Adapter.SessionStore)
	}
	if _, err := cfg.Log.level(); err != nil {
		return err
	}
	return nil
}
