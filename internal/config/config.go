package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the despensa service
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Sefaz      SefazConfig      `mapstructure:"sefaz"`
	OCR        OCRConfig        `mapstructure:"ocr"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Expiry     ExpiryConfig     `mapstructure:"expiry"`
	Notify     NotifyConfig     `mapstructure:"notify"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string   `mapstructure:"address"`
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`
	WriteTimeout int      `mapstructure:"write_timeout"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	AdminPassword string `mapstructure:"admin_password"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path"`
}

// SefazConfig holds settings for the tax-authority consultation client
type SefazConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	RequestsPerMin   int    `mapstructure:"requests_per_min"`
	BreakerThreshold uint32 `mapstructure:"breaker_threshold"`
	UserAgent        string `mapstructure:"user_agent"`
	CacheTTLHours    int    `mapstructure:"cache_ttl_hours"`
	BackendURL       string `mapstructure:"backend_url"`
}

// OCRConfig holds OCR and QR decode capability settings
type OCRConfig struct {
	TesseractPath string `mapstructure:"tesseract_path"`
	ZbarPath      string `mapstructure:"zbar_path"`
	Language      string `mapstructure:"language"`
}

// ExtractionConfig holds extraction pipeline tunables
type ExtractionConfig struct {
	MinHTMLLineLen       int    `mapstructure:"min_html_line_len"`
	MinContinuationLen   int    `mapstructure:"min_continuation_len"`
	MaxNameLen           int    `mapstructure:"max_name_len"`
	PlaceholderOnEmpty   bool   `mapstructure:"placeholder_on_empty"`
	CategoryKeywordsFile string `mapstructure:"category_keywords_file"`
}

// ExpiryConfig holds the expiration-alert job settings
type ExpiryConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Schedule  string `mapstructure:"schedule"`
	DaysAhead int    `mapstructure:"days_ahead"`
}

// NotifyConfig holds alert channel settings
type NotifyConfig struct {
	TelegramEnabled bool   `mapstructure:"telegram_enabled"`
	TelegramToken   string `mapstructure:"telegram_token"`
	TelegramChatID  int64  `mapstructure:"telegram_chat_id"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "despensa.db"))
	v.SetDefault("storage.badger_path", filepath.Join(dataDir, "badger"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "despensa.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (DESPENSA_SERVER_PORT, DESPENSA_AUTH_JWT_SECRET, etc.)
	v.SetEnvPrefix("DESPENSA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("auth.token_ttl_hours", 168)

	v.SetDefault("sefaz.timeout_seconds", 20)
	v.SetDefault("sefaz.requests_per_min", 30)
	v.SetDefault("sefaz.breaker_threshold", 5)
	v.SetDefault("sefaz.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("sefaz.cache_ttl_hours", 24)

	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.zbar_path", "zbarimg")
	v.SetDefault("ocr.language", "por")

	v.SetDefault("extraction.min_html_line_len", 10)
	v.SetDefault("extraction.min_continuation_len", 5)
	v.SetDefault("extraction.max_name_len", 100)
	v.SetDefault("extraction.placeholder_on_empty", true)

	v.SetDefault("expiry.enabled", true)
	v.SetDefault("expiry.schedule", "0 8 * * *")
	v.SetDefault("expiry.days_ahead", 7)
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "despensa")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "despensa")
}

// loadEnvOverrides loads specific env vars that Viper doesn't pick up reliably
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	cfg.Auth.JWTSecret = getEnv("DESPENSA_AUTH_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.AdminPassword = getEnv("DESPENSA_AUTH_ADMIN_PASSWORD", cfg.Auth.AdminPassword)
	cfg.Notify.TelegramToken = getEnv("DESPENSA_NOTIFY_TELEGRAM_TOKEN", cfg.Notify.TelegramToken)
	cfg.Sefaz.BackendURL = getEnv("DESPENSA_SEFAZ_BACKEND_URL", cfg.Sefaz.BackendURL)

	cfg.Server.Address = getEnv("DESPENSA_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("DESPENSA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	cfg.Storage.DataDir = getEnv("DESPENSA_STORAGE_DATA_DIR", cfg.Storage.DataDir)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Sefaz.TimeoutSeconds <= 0 {
		return fmt.Errorf("sefaz.timeout_seconds must be positive")
	}

	if cfg.Extraction.MaxNameLen <= 0 {
		return fmt.Errorf("extraction.max_name_len must be positive")
	}

	if cfg.Notify.TelegramEnabled && cfg.Notify.TelegramToken == "" {
		return fmt.Errorf("notify.telegram_token is required when telegram is enabled")
	}

	// Generate JWT secret if not provided
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = generateRandomString(32)
	}

	return nil
}

func generateRandomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random secret: %v", err))
	}
	return hex.EncodeToString(b)
}
