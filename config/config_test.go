package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDefaultsWithoutFile(t *testing.T) {
	c, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, 72*time.Hour, c.TokenTTL)
	assert.Equal(t, 20, c.FeedPageSize)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, "local", c.StorageMode)
}

func TestReadGroupedJSONAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"app": {"port": "9000", "jwt_secret": "from-file", "admin_usernames": ["root"]},
		"database": {"driver": "mysql", "name": "faith"},
		"feed": {"page_size": 15, "cache_ttl": "1m"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	c, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, "from-env", c.JWTSecret)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, []string{"root"}, c.AdminUsernames)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.Equal(t, 15, c.FeedPageSize)
	assert.Equal(t, time.Minute, c.FeedCacheTTL)
}

func TestReadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Read(path)
	assert.Error(t, err)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, AppConfig{DefaultTimeZone: "Not/AZone"}.Location())
	assert.Equal(t, time.UTC, AppConfig{}.Location())
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "custom", DSN(AppConfig{DatabaseURI: "custom", DBDriver: "mysql"}))
	assert.Contains(t, DSN(AppConfig{DBDriver: "mysql", DBUser: "u", DBHost: "h", DBPort: "3306", DBName: "n"}), "u:@tcp(h:3306)/n")
	assert.Contains(t, DSN(AppConfig{DBDriver: "postgres", DBHost: "h", DBName: "n"}), "dbname=n")
}
