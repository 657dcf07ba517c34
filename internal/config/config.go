package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"libraryhub/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Backend    BackendConfig    `yaml:"backend"`
	Fines      FinesConfig      `yaml:"fines"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Cache      CacheConfig      `yaml:"cache"`
	Sync       SyncConfig       `yaml:"sync"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Notify     NotifyConfig     `yaml:"notify"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	Timeout int    `yaml:"timeout"` // секунды
	// Source выбирает источник чтения: "backend" или "mirror".
	Source string `yaml:"source"`
}

// FinesConfig fields are pointers so an explicit 0 (no fines, no due-soon window)
// is kept and only an absent key gets the default.
type FinesConfig struct {
	DailyRate   *float64 `yaml:"daily_rate"`
	DueSoonDays *int     `yaml:"due_soon_days"`
}

type DatabaseConfig struct {
	// Driver: sqlite3 или postgres
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	DBName         string `yaml:"dbname"`
	SSLMode        string `yaml:"sslmode"`
	MaxConnections int    `yaml:"max_connections"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTL     int  `yaml:"ttl"` // секунды
}

type SyncConfig struct {
	Enabled  bool `yaml:"enabled"`
	Interval int  `yaml:"interval"` // секунды
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	ReportSpreadSheetID   string `yaml:"report_spreadsheet_id"`
	ReportSheetName       string `yaml:"report_sheet_name"`
}

type NotifyConfig struct {
	Enabled      bool    `yaml:"enabled"`
	BotToken     string  `yaml:"bot_token"`
	ChatIDs      []int64 `yaml:"chat_ids"`
	ReminderTime string  `yaml:"reminder_time"`
	Debug        bool    `yaml:"debug"`
	// Commands включает интерактивного бота для библиотекарей
	Commands     bool    `yaml:"commands"`
	LibrarianIDs []int64 `yaml:"librarian_ids"`
	PageSize     int     `yaml:"page_size"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}
	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend base_url %q is not an absolute URL", c.Backend.BaseURL)
	}

	switch c.Backend.Source {
	case SourceBackend, SourceMirror:
	default:
		return fmt.Errorf("unknown backend source %q", c.Backend.Source)
	}

	if c.Fines.Rate() < 0 {
		return errors.New("fines.daily_rate must not be negative")
	}
	if c.Fines.DueSoonDays != nil && *c.Fines.DueSoonDays < 0 {
		return errors.New("fines.due_soon_days must not be negative")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case DriverPostgres:
		if c.Database.Postgres.Host == "" || c.Database.Postgres.DBName == "" {
			return errors.New("database.postgres host and dbname are required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Backend.Source == SourceMirror && !c.Sync.Enabled {
		return errors.New("backend source mirror requires sync.enabled")
	}

	if c.Notify.Enabled {
		if c.Notify.BotToken == "" || c.Notify.BotToken == "YOUR_BOT_TOKEN_HERE" {
			return errors.New("notify.bot_token is required when notify is enabled")
		}
		if len(c.Notify.ChatIDs) == 0 {
			return errors.New("notify.chat_ids is required when notify is enabled")
		}
		if c.Notify.Commands && len(c.Notify.LibrarianIDs) == 0 {
			return errors.New("notify.librarian_ids is required when notify.commands is enabled")
		}
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if strings.TrimSpace(k.Key) == "" {
			return fmt.Errorf("api key '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for client '%s'", k.Name)
		}
		seen[k.Key] = true
	}
	return nil
}

const (
	SourceBackend = "backend"
	SourceMirror  = "mirror"

	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

func (c *Config) applyDefaults() {
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = models.DefaultBackendTimeout
	}
	if c.Backend.Source == "" {
		c.Backend.Source = SourceBackend
	}

	if c.Fines.DailyRate == nil {
		rate := float64(models.DefaultDailyRate)
		c.Fines.DailyRate = &rate
	}
	if c.Fines.DueSoonDays == nil {
		days := models.DefaultDueSoonDays
		c.Fines.DueSoonDays = &days
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverPostgres {
		if c.Database.Postgres.Port == 0 {
			c.Database.Postgres.Port = 5432
		}
		if c.Database.Postgres.SSLMode == "" {
			c.Database.Postgres.SSLMode = "disable"
		}
	}

	if c.Cache.TTL == 0 {
		c.Cache.TTL = models.DefaultCacheTTL
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = models.DefaultSyncInterval
	}

	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Google.ReportSheetName == "" {
		c.Google.ReportSheetName = "Borrowings"
	}
	if c.Notify.ReminderTime == "" {
		c.Notify.ReminderTime = fmt.Sprintf("%02d:00", models.ReminderHour)
	}
	if c.Notify.PageSize == 0 {
		c.Notify.PageSize = models.DefaultPageSize
	}
}

// Rate returns the daily fine, 0 when unset.
func (f FinesConfig) Rate() float64 {
	if f.DailyRate == nil {
		return 0
	}
	return *f.DailyRate
}

// DueSoonWithin returns the due-soon threshold as a duration.
func (f FinesConfig) DueSoonWithin() time.Duration {
	if f.DueSoonDays == nil {
		return 0
	}
	return time.Duration(*f.DueSoonDays) * 24 * time.Hour
}

// PostgresDSN builds a key/value connection string for the pgx driver.
func (p PostgresConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}
