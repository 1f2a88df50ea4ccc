package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Bot      BotConfig      `mapstructure:"bot"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Lock     LockConfig     `mapstructure:"lock"`
	Board    BoardConfig    `mapstructure:"board"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	// PublicURL is the web client base used in notification links.
	PublicURL string `mapstructure:"public_url"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Path            string        `mapstructure:"path"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	ExpiresIn time.Duration `mapstructure:"expires_in"`
	Issuer    string        `mapstructure:"issuer"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
	BcryptCost         int           `mapstructure:"bcrypt_cost"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StorageConfig selects the attachment object store.
type StorageConfig struct {
	Type         string   `mapstructure:"type"` // local, minio, azureblob
	Folder       string   `mapstructure:"folder"`
	MaxFileSize  int64    `mapstructure:"max_file_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`

	LocalPath    string `mapstructure:"local_path"`
	LocalBaseURL string `mapstructure:"local_base_url"`

	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`
	MinioPublicURL string `mapstructure:"minio_public_url"`

	AzureAccountName string `mapstructure:"azure_account_name"`
	AzureAccountKey  string `mapstructure:"azure_account_key"`
	AzureEndpoint    string `mapstructure:"azure_endpoint"`
	AzureContainer   string `mapstructure:"azure_container"`
}

// BotConfig holds Bot Framework credentials. The bot is disabled when AppID is empty.
type BotConfig struct {
	AppID       string        `mapstructure:"app_id"`
	AppPassword string        `mapstructure:"app_password"`
	TenantID    string        `mapstructure:"tenant_id"`
	TokenURL    string        `mapstructure:"token_url"`
	JWKSURL     string        `mapstructure:"jwks_url"`
	Issuer      string        `mapstructure:"issuer"`
	SkipAuth    bool          `mapstructure:"skip_auth"`
	LinkStore   string        `mapstructure:"link_store"` // memory, redis
	LinkCodeTTL time.Duration `mapstructure:"link_code_ttl"`
	SweepEvery  time.Duration `mapstructure:"sweep_every"`
}

// NotifyConfig bounds the mention dispatcher.
type NotifyConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxInFlight    int           `mapstructure:"max_in_flight"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
}

// LockConfig selects the column lock used by card moves.
type LockConfig struct {
	Type   string        `mapstructure:"type"` // memory, redis
	Expiry time.Duration `mapstructure:"expiry"`
}

// BoardConfig holds board creation defaults.
type BoardConfig struct {
	DefaultColumns []string `mapstructure:"default_columns"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Planner")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.public_url", "http://localhost:5173")

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "planner")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.path", "planner.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "30s")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// JWT defaults
	v.SetDefault("jwt.secret", "your-super-secret-jwt-key")
	v.SetDefault("jwt.expires_in", "168h") // 7 days
	v.SetDefault("jwt.issuer", "planner-api")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")

	// Security defaults
	v.SetDefault("security.cors_allowed_origins", "*")
	v.SetDefault("security.rate_limit_requests", 100)
	v.SetDefault("security.rate_limit_window", "1m")
	v.SetDefault("security.bcrypt_cost", 10)

	v.SetDefault("metrics.enabled", true)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.folder", "planner-attachments")
	v.SetDefault("storage.max_file_size", 10*1024*1024)
	v.SetDefault("storage.allowed_types", []string{"jpg", "jpeg", "png", "gif", "pdf", "doc", "docx", "xls", "xlsx", "txt", "zip"})
	v.SetDefault("storage.local_path", "./data/files")
	v.SetDefault("storage.local_base_url", "http://localhost:8080/files")
	v.SetDefault("storage.minio_bucket", "planner")
	v.SetDefault("storage.azure_container", "planner")

	// Bot defaults
	v.SetDefault("bot.token_url", "https://login.microsoftonline.com/botframework.com/oauth2/v2.0/token")
	v.SetDefault("bot.jwks_url", "https://login.botframework.com/v1/.well-known/keys")
	v.SetDefault("bot.issuer", "https://api.botframework.com")
	v.SetDefault("bot.skip_auth", false)
	v.SetDefault("bot.link_store", "memory")
	v.SetDefault("bot.link_code_ttl", "10m")
	v.SetDefault("bot.sweep_every", "60s")

	// Notify defaults
	v.SetDefault("notify.enabled", true)
	v.SetDefault("notify.max_in_flight", 16)
	v.SetDefault("notify.webhook_timeout", "10s")

	v.SetDefault("lock.type", "memory")
	v.SetDefault("lock.expiry", "8s")

	v.SetDefault("board.default_columns", []string{"Por hacer", "En progreso", "Hecho"})
}

func bindEnvVars(v *viper.Viper) {
	binds := map[string]string{
		// App
		"app.name":        "APP_NAME",
		"app.version":     "APP_VERSION",
		"app.environment": "APP_ENVIRONMENT",
		"app.debug":       "APP_DEBUG",
		"app.public_url":  "APP_URL",

		// Server
		"server.port":            "PORT",
		"server.host":            "SERVER_HOST",
		"server.read_timeout":    "SERVER_READ_TIMEOUT",
		"server.write_timeout":   "SERVER_WRITE_TIMEOUT",
		"server.idle_timeout":    "SERVER_IDLE_TIMEOUT",
		"server.request_timeout": "SERVER_REQUEST_TIMEOUT",

		// Database
		"database.driver":             "DB_DRIVER",
		"database.host":               "DB_HOST",
		"database.port":               "DB_PORT",
		"database.name":               "DB_NAME",
		"database.user":               "DB_USER",
		"database.password":           "DB_PASSWORD",
		"database.ssl_mode":           "DB_SSL_MODE",
		"database.path":               "DB_PATH",
		"database.auto_migrate":       "DB_AUTO_MIGRATE",
		"database.max_open_conns":     "DB_MAX_OPEN_CONNS",
		"database.max_idle_conns":     "DB_MAX_IDLE_CONNS",
		"database.conn_max_lifetime":  "DB_CONN_MAX_LIFETIME",
		"database.conn_max_idle_time": "DB_CONN_MAX_IDLE_TIME",

		// Redis
		"redis.host":     "REDIS_HOST",
		"redis.port":     "REDIS_PORT",
		"redis.password": "REDIS_PASSWORD",
		"redis.db":       "REDIS_DB",

		// JWT
		"jwt.secret":     "JWT_SECRET",
		"jwt.expires_in": "JWT_EXPIRES_IN",
		"jwt.issuer":     "JWT_ISSUER",

		// Logger
		"logger.level":  "LOG_LEVEL",
		"logger.format": "LOG_FORMAT",
		"logger.output": "LOG_OUTPUT",

		// Security
		"security.cors_allowed_origins": "CORS_ALLOWED_ORIGINS",
		"security.rate_limit_requests":  "RATE_LIMIT_REQUESTS",
		"security.rate_limit_window":    "RATE_LIMIT_WINDOW",
		"security.bcrypt_cost":          "BCRYPT_COST",

		"metrics.enabled": "ENABLE_METRICS",

		// Storage
		"storage.type":               "STORAGE_TYPE",
		"storage.folder":             "STORAGE_FOLDER",
		"storage.max_file_size":      "STORAGE_MAX_FILE_SIZE",
		"storage.local_path":         "STORAGE_LOCAL_PATH",
		"storage.local_base_url":     "STORAGE_LOCAL_BASE_URL",
		"storage.minio_endpoint":     "MINIO_ENDPOINT",
		"storage.minio_access_key":   "MINIO_ACCESS_KEY",
		"storage.minio_secret_key":   "MINIO_SECRET_KEY",
		"storage.minio_bucket":       "MINIO_BUCKET",
		"storage.minio_use_ssl":      "MINIO_USE_SSL",
		"storage.minio_public_url":   "MINIO_PUBLIC_URL",
		"storage.azure_account_name": "AZURE_STORAGE_ACCOUNT",
		"storage.azure_account_key":  "AZURE_STORAGE_KEY",
		"storage.azure_endpoint":     "AZURE_STORAGE_ENDPOINT",
		"storage.azure_container":    "AZURE_STORAGE_CONTAINER",

		// Bot
		"bot.app_id":        "MICROSOFT_APP_ID",
		"bot.app_password":  "MICROSOFT_APP_PASSWORD",
		"bot.tenant_id":     "MICROSOFT_APP_TENANT_ID",
		"bot.token_url":     "BOT_TOKEN_URL",
		"bot.jwks_url":      "BOT_JWKS_URL",
		"bot.issuer":        "BOT_ISSUER",
		"bot.skip_auth":     "BOT_SKIP_AUTH",
		"bot.link_store":    "BOT_LINK_STORE",
		"bot.link_code_ttl": "BOT_LINK_CODE_TTL",
		"bot.sweep_every":   "BOT_SWEEP_EVERY",

		// Notify
		"notify.enabled":         "NOTIFY_ENABLED",
		"notify.max_in_flight":   "NOTIFY_MAX_IN_FLIGHT",
		"notify.webhook_timeout": "NOTIFY_WEBHOOK_TIMEOUT",

		"lock.type":   "LOCK_TYPE",
		"lock.expiry": "LOCK_EXPIRY",
	}
	for key, env := range binds {
		_ = v.BindEnv(key, env)
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if cfg.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
	case "sqlite":
		if cfg.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.JWT.Secret == "" || (cfg.App.IsProduction() && cfg.JWT.Secret == "your-super-secret-jwt-key") {
		return fmt.Errorf("JWT secret must be set and should not use default value")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	switch cfg.Storage.Type {
	case "local", "minio", "azureblob":
	default:
		return fmt.Errorf("unsupported storage type %q", cfg.Storage.Type)
	}

	switch cfg.Lock.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported lock type %q", cfg.Lock.Type)
	}

	switch cfg.Bot.LinkStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported link store %q", cfg.Bot.LinkStore)
	}

	if len(cfg.Board.DefaultColumns) == 0 {
		return fmt.Errorf("at least one default board column is required")
	}

	return nil
}

// GetDSN returns the database connection string
func (cfg *DatabaseConfig) GetDSN() string {
	if cfg.Driver == "sqlite" {
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", cfg.Path)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

// GetAddr returns the Redis address
func (cfg *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}

// Enabled reports whether Bot Framework credentials were supplied.
func (cfg *BotConfig) Enabled() bool {
	return cfg.AppID != ""
}
