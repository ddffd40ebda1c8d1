package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PERSISTENCE_BACKEND", "")
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, BackendLocal, cfg.Persistence.Backend)
	assert.Equal(t, 10, cfg.Inventory.LowStockThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL.Duration)
	assert.Equal(t, "Dashboard Stats", cfg.Airtable.StatsTable)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.GetServerAddr())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 9090, "read_timeout": "5s"},
		"dashboard": {"refresh_cron": "@hourly", "pending_window_days": 14},
		"storage": {"bucket": "fleet-reports", "url_ttl": "30m"}
	}`), 0o600))

	t.Setenv("INVENTORY_LOW_STOCK_THRESHOLD", "25")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Duration)
	assert.Equal(t, "@hourly", cfg.Dashboard.RefreshCron)
	assert.Equal(t, 14, cfg.Dashboard.PendingWindowDays)
	assert.Equal(t, 30*time.Minute, cfg.Storage.URLTTL.Duration)
	assert.Equal(t, 25, cfg.Inventory.LowStockThreshold)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Persistence.Backend = BackendAirtable
	assert.Error(t, cfg.Validate())

	cfg.Airtable.APIKey = "key"
	cfg.Airtable.BaseID = "app1"
	assert.NoError(t, cfg.Validate())

	cfg.Persistence.Backend = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Security.JWTSecret = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateReleaseRequiresSecret(t *testing.T) {
	cfg := Default()
	cfg.Server.Mode = ModeRelease
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")

	cfg.Security.JWTSecret = "s3cr3t-from-vault"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Server.Mode = "debug"
	assert.NoError(t, cfg.Validate(), "the default secret is fine for local development")
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"90s"`)))
	assert.Equal(t, 90*time.Second, d.Duration)

	require.NoError(t, d.UnmarshalJSON([]byte(`1000000000`)))
	assert.Equal(t, time.Second, d.Duration)

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
}

func TestDatabaseURL(t *testing.T) {
	db := DatabaseConfig{User: "fleet", Password: "pw", Host: "db", Port: 5432, DBName: "fleetops", SSLMode: "disable"}
	assert.Equal(t, "postgres://fleet:pw@db:5432/fleetops?sslmode=disable", db.GetDatabaseURL())
}
