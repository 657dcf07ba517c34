package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("LIBRARY_BACKEND_TOKEN", "secret-token")

	yamlContent := `
backend:
  base_url: "http://localhost:6543/api/"
  token: "${LIBRARY_BACKEND_TOKEN}"
database:
  path: "test.db"
fines:
  daily_rate: 1000
api:
  auth:
    api_keys:
      - key: "k1"
        extra: "e1"
        name: "dashboard"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:6543/api", cfg.Backend.BaseURL)
	assert.Equal(t, "secret-token", cfg.Backend.Token)
	assert.Equal(t, SourceBackend, cfg.Backend.Source)
	assert.Equal(t, 1000.0, cfg.Fines.Rate())
	require.NotNil(t, cfg.Fines.DueSoonDays)
	assert.Equal(t, 5, *cfg.Fines.DueSoonDays)
	assert.Equal(t, 5*24*time.Hour, cfg.Fines.DueSoonWithin())
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, "09:00", cfg.Notify.ReminderTime)
	assert.Equal(t, "Borrowings", cfg.Google.ReportSheetName)
	assert.Equal(t, 10, cfg.Notify.PageSize)
}

func TestLoadConfig_ExplicitZeroFines(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
backend:
  base_url: "http://localhost:6543/api"
database:
  path: "test.db"
fines:
  daily_rate: 0
  due_soon_days: 0
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	require.NotNil(t, cfg.Fines.DailyRate)
	assert.Equal(t, 0.0, cfg.Fines.Rate())
	require.NotNil(t, cfg.Fines.DueSoonDays)
	assert.Equal(t, 0, *cfg.Fines.DueSoonDays)
	assert.Equal(t, time.Duration(0), cfg.Fines.DueSoonWithin())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		c := Config{
			Backend:  BackendConfig{BaseURL: "http://backend:6543/api"},
			Database: DatabaseConfig{Path: "mirror.db"},
		}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.Backend.BaseURL = "" }, wantErr: true},
		{name: "relative base url", mutate: func(c *Config) { c.Backend.BaseURL = "/api" }, wantErr: true},
		{name: "unknown source", mutate: func(c *Config) { c.Backend.Source = "disk" }, wantErr: true},
		{name: "mirror without sync", mutate: func(c *Config) { c.Backend.Source = SourceMirror }, wantErr: true},
		{
			name: "mirror with sync",
			mutate: func(c *Config) {
				c.Backend.Source = SourceMirror
				c.Sync.Enabled = true
			},
		},
		{name: "negative rate", mutate: func(c *Config) { c.Fines.DailyRate = ptr(-1.0) }, wantErr: true},
		{name: "negative due soon", mutate: func(c *Config) { c.Fines.DueSoonDays = ptr(-1) }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "oracle" }, wantErr: true},
		{name: "postgres without host", mutate: func(c *Config) { c.Database.Driver = DriverPostgres }, wantErr: true},
		{
			name: "postgres",
			mutate: func(c *Config) {
				c.Database.Driver = DriverPostgres
				c.Database.Postgres = PostgresConfig{Host: "db", DBName: "library"}
			},
		},
		{name: "notify without token", mutate: func(c *Config) { c.Notify.Enabled = true }, wantErr: true},
		{
			name: "notify without chats",
			mutate: func(c *Config) {
				c.Notify.Enabled = true
				c.Notify.BotToken = "123:abc"
			},
			wantErr: true,
		},
		{
			name: "commands without librarians",
			mutate: func(c *Config) {
				c.Notify = NotifyConfig{Enabled: true, BotToken: "123:abc", ChatIDs: []int64{1}, Commands: true}
			},
			wantErr: true,
		},
		{
			name: "commands with librarians",
			mutate: func(c *Config) {
				c.Notify = NotifyConfig{Enabled: true, BotToken: "123:abc", ChatIDs: []int64{1}, Commands: true, LibrarianIDs: []int64{1}}
			},
		},
		{
			name: "duplicate api key",
			mutate: func(c *Config) {
				c.API.Auth.APIKeys = []APIClientKey{{Key: "a", Name: "one"}, {Key: "a", Name: "two"}}
			},
			wantErr: true,
		},
		{
			name: "empty api key",
			mutate: func(c *Config) {
				c.API.Auth.APIKeys = []APIClientKey{{Key: " ", Name: "blank"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "lib", Password: "pw", DBName: "library", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=lib password=pw dbname=library sslmode=disable", p.PostgresDSN())
}
