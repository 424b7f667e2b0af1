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
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddress)
	assert.Equal(t, "marketplace", cfg.DBName)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.ProductCacheTTL)
	assert.Equal(t, "orders_exchange", cfg.OrderExchange)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("RUN_ADDRESS", ":9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("TOKEN_TTL", "1h")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.RunAddress)
	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBUser:     "app",
		DBPassword: "secret",
		DBHost:     "db.internal",
		DBPort:     "3306",
		DBName:     "marketplace",
	}
	assert.Equal(t, "app:secret@tcp(db.internal:3306)/marketplace?parseTime=true&charset=utf8mb4", cfg.DSN())
}

func TestSecretFileOverridesEnv(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "jwt_secret")
	require.NoError(t, os.WriteFile(secretPath, []byte("from-file\n"), 0o600))

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("JWT_SECRET_FILE", secretPath)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
}

func TestSecretFileMissingFallsBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("JWT_SECRET_FILE", "/nonexistent/jwt_secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWTSecret)
}
