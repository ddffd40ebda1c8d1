package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Persistence backends.
const (
	BackendLocal    = "local"
	BackendPostgres = "postgres"
	BackendAirtable = "airtable"
)

// ModeRelease matches gin.ReleaseMode.
const ModeRelease = "release"

// DefaultJWTSecret is only acceptable outside release mode.
const DefaultJWTSecret = "change-me"

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `json:"server"`
	Database    DatabaseConfig    `json:"database"`
	Persistence PersistenceConfig `json:"persistence"`
	Airtable    AirtableConfig    `json:"airtable"`
	Storage     StorageConfig     `json:"storage"`
	Alerts      AlertsConfig      `json:"alerts"`
	Security    SecurityConfig    `json:"security"`
	Logging     LoggingConfig     `json:"logging"`
	Dashboard   DashboardConfig   `json:"dashboard"`
	Inventory   InventoryConfig   `json:"inventory"`
	Wizard      WizardConfig      `json:"wizard"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	ReadTimeout    Duration `json:"read_timeout"`
	WriteTimeout   Duration `json:"write_timeout"`
	IdleTimeout    Duration `json:"idle_timeout"`
	Mode           string   `json:"mode"`
	AllowedOrigins []string `json:"allowed_origins"`
	CompanyName    string   `json:"company_name"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	User           string   `json:"user"`
	Password       string   `json:"password"`
	DBName         string   `json:"db_name"`
	SSLMode        string   `json:"ssl_mode"`
	MaxConnections int      `json:"max_connections"`
	MaxIdleConns   int      `json:"max_idle_conns"`
	MaxLifetime    Duration `json:"max_lifetime"`
	AutoMigrate    bool     `json:"auto_migrate"`
}

// PersistenceConfig selects where records live: local, postgres or airtable.
type PersistenceConfig struct {
	Backend string `json:"backend"`
}

type AirtableConfig struct {
	APIKey          string   `json:"api_key"`
	BaseID          string   `json:"base_id"`
	BaseURL         string   `json:"base_url"`
	Timeout         Duration `json:"timeout"`
	InspectionTable string   `json:"inspection_table"`
	InventoryTable  string   `json:"inventory_table"`
	WorkOrderTable  string   `json:"work_order_table"`
	StatsTable      string   `json:"stats_table"`
}

// StorageConfig is the S3 archive for generated reports. Empty bucket disables it.
type StorageConfig struct {
	Bucket          string   `json:"bucket"`
	Region          string   `json:"region"`
	Endpoint        string   `json:"endpoint"`
	Prefix          string   `json:"prefix"`
	AccessKeyID     string   `json:"access_key_id"`
	SecretAccessKey string   `json:"secret_access_key"`
	URLTTL          Duration `json:"url_ttl"`
}

// AlertsConfig enables SNS defect alerts when a topic is set.
type AlertsConfig struct {
	TopicARN string `json:"topic_arn"`
	Region   string `json:"region"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string   `json:"jwt_secret"`
	TokenTTL  Duration `json:"token_ttl"`
}

// LoggingConfig
type LoggingConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

type DashboardConfig struct {
	CacheTTL          Duration `json:"cache_ttl"`
	RefreshCron       string   `json:"refresh_cron"`
	PendingWindowDays int      `json:"pending_window_days"`
	RecentInspections int      `json:"recent_inspections"`
}

type InventoryConfig struct {
	LowStockThreshold int `json:"low_stock_threshold"`
}

type WizardConfig struct {
	SessionTTL    Duration `json:"session_ttl"`
	MaxPhotoBytes int      `json:"max_photo_bytes"`
}

// Duration accepts either a Go duration string ("15m") or nanoseconds in JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d.Duration = parsed
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  Duration{15 * time.Second},
			WriteTimeout: Duration{30 * time.Second},
			IdleTimeout:  Duration{60 * time.Second},
			Mode:         "debug",
			CompanyName:  "Fleet Maintenance",
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "fleetops_portal",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    Duration{5 * time.Minute},
		},
		Persistence: PersistenceConfig{Backend: BackendLocal},
		Airtable: AirtableConfig{
			Timeout:         Duration{30 * time.Second},
			InspectionTable: "Inspections",
			InventoryTable:  "Inventory",
			WorkOrderTable:  "Work Orders",
			StatsTable:      "Dashboard Stats",
		},
		Storage: StorageConfig{Region: "us-east-1", Prefix: "reports", URLTTL: Duration{15 * time.Minute}},
		Security: SecurityConfig{
			JWTSecret: DefaultJWTSecret,
			TokenTTL:  Duration{24 * time.Hour},
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Dashboard: DashboardConfig{
			CacheTTL:          Duration{5 * time.Minute},
			RefreshCron:       "*/5 * * * *",
			PendingWindowDays: 30,
			RecentInspections: 5,
		},
		Inventory: InventoryConfig{LowStockThreshold: 10},
		Wizard: WizardConfig{
			SessionTTL:    Duration{2 * time.Hour},
			MaxPhotoBytes: 10 << 20,
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
// A .env file in the working directory is applied to the environment first.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Persistence.Backend {
	case BackendLocal, BackendPostgres:
	case BackendAirtable:
		if c.Airtable.APIKey == "" || c.Airtable.BaseID == "" {
			return fmt.Errorf("airtable backend requires airtable.api_key and airtable.base_id")
		}
	default:
		return fmt.Errorf("unknown persistence backend %q", c.Persistence.Backend)
	}
	if c.Dashboard.PendingWindowDays <= 0 {
		return fmt.Errorf("dashboard.pending_window_days must be positive")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret must not be empty")
	}
	if c.Server.Mode == ModeRelease && c.Security.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("security.jwt_secret must be changed in release mode")
	}
	return nil
}

func overrideWithEnv(config *Config) {
	setString(&config.Server.Host, "SERVER_HOST")
	setInt(&config.Server.Port, "SERVER_PORT")
	setString(&config.Server.Mode, "GIN_MODE")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		config.Server.AllowedOrigins = strings.Split(v, ",")
	}

	setString(&config.Database.Host, "DATABASE_HOST")
	setInt(&config.Database.Port, "DATABASE_PORT")
	setString(&config.Database.User, "DATABASE_USER")
	setString(&config.Database.Password, "DATABASE_PASSWORD")
	setString(&config.Database.DBName, "DATABASE_DBNAME")
	setString(&config.Database.SSLMode, "DATABASE_SSLMODE")
	setBool(&config.Database.AutoMigrate, "DATABASE_AUTO_MIGRATE")

	setString(&config.Persistence.Backend, "PERSISTENCE_BACKEND")

	setString(&config.Airtable.APIKey, "AIRTABLE_API_KEY")
	setString(&config.Airtable.BaseID, "AIRTABLE_BASE_ID")
	setString(&config.Airtable.BaseURL, "AIRTABLE_BASE_URL")

	setString(&config.Storage.Bucket, "S3_BUCKET")
	setString(&config.Storage.Region, "AWS_REGION")
	setString(&config.Storage.Endpoint, "S3_ENDPOINT")
	setString(&config.Storage.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&config.Storage.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")

	setString(&config.Alerts.TopicARN, "ALERTS_TOPIC_ARN")
	setString(&config.Alerts.Region, "AWS_REGION")

	setString(&config.Security.JWTSecret, "JWT_SECRET")

	setString(&config.Logging.Level, "LOG_LEVEL")
	setString(&config.Logging.File, "LOG_FILE")

	setString(&config.Dashboard.RefreshCron, "DASHBOARD_REFRESH_CRON")
	setInt(&config.Inventory.LowStockThreshold, "INVENTORY_LOW_STOCK_THRESHOLD")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
