package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-inventory-sales/pkg/jwt"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Database.AcquireTimeout)
	assert.Equal(t, 5*1024*1024, cfg.UploadMaxBytes)
	assert.True(t, cfg.WSEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "dev.db")
	t.Setenv("DB_ACQUIRE_TIMEOUT", "250ms")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,,")
	t.Setenv("WS_ENABLED", "false")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev.db", cfg.Database.DSN())
	assert.Equal(t, 250*time.Millisecond, cfg.Database.AcquireTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.False(t, cfg.WSEnabled)
}

func TestPostgresDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", User: "u", Password: "p", Name: "inv", Port: "5432", SSLMode: "disable", TimeZone: "UTC"}
	assert.Equal(t, "host=db user=u password=p dbname=inv port=5432 sslmode=disable TimeZone=UTC", d.DSN())

	d.URL = "postgres://u:p@db/inv"
	assert.Equal(t, "postgres://u:p@db/inv", d.DSN())
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, err := FromViper(newViper())
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := FromViper(newViper())
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.NotEqual(t, jwt.DefaultSecret, cfg.JWT.Secret)
}

func TestUnsupportedDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err := FromViper(newViper())
	assert.Error(t, err)
}
