package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid minimal config",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
auth:
  base_url: http://localhost:9999/auth/v1
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "testdb", cfg.Database.Name)
				assert.Equal(t, "testuser", cfg.Database.User)
				assert.Equal(t, "http://localhost:9999/auth/v1", cfg.Auth.BaseURL)
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
auth:
  base_url: http://localhost:9999/auth/v1
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.Database.PoolSize)
				assert.Equal(t, "es", cfg.Geocoding.Language)
				assert.Equal(t, "supermarket", cfg.Geocoding.PlaceType)
				assert.Equal(t, "https://nominatim.openstreetmap.org/search", cfg.Geocoding.NominatimURL)
				assert.Equal(t, "crowdprice/1.0", cfg.Geocoding.UserAgent)
				assert.InDelta(t, 1.0, cfg.Geocoding.RateLimit.PerSecond, 1e-9)
				assert.Equal(t, 2, cfg.Geocoding.RateLimit.Burst)
				assert.Equal(t, int64(2500), cfg.Geocoding.RateLimit.DailyLimit)
				assert.Equal(t, 5*time.Minute, cfg.Schedule.SweepInterval)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "env var substitution",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
  password: "${TEST_DB_PASSWORD}"
auth:
  base_url: http://localhost:9999/auth/v1
  api_key: "${TEST_AUTH_KEY}"
`,
			envVars: map[string]string{
				"TEST_DB_PASSWORD": "secret123",
				"TEST_AUTH_KEY":    "anon-key",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "secret123", cfg.Database.Password)
				assert.Equal(t, "anon-key", cfg.Auth.APIKey)
			},
		},
		{
			name: "missing required database.host",
			yaml: `
database:
  name: testdb
  user: testuser
auth:
  base_url: http://localhost:9999/auth/v1
`,
			wantErr: "database.host is required",
		},
		{
			name: "missing required auth.base_url",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
`,
			wantErr: "auth.base_url is required",
		},
		{
			name: "webhook enabled without url",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
auth:
  base_url: http://localhost:9999/auth/v1
notifications:
  webhook:
    enabled: true
`,
			wantErr: "notifications.webhook.url is required",
		},
		{
			name: "invalid logging level",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
auth:
  base_url: http://localhost:9999/auth/v1
logging:
  level: verbose
`,
			wantErr: "logging.level must be one of",
		},
		{
			name:    "invalid yaml",
			yaml:    `database: [`,
			wantErr: "parsing config YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			cfg, err := Load(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.checkFunc(t, cfg)
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		Name:     "crowdprice",
		User:     "app",
		Password: "pw",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 dbname=crowdprice user=app password=pw sslmode=require",
		d.DSN(),
	)
}
