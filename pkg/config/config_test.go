package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StoreDriverPostgres, cfg.Ledger.Driver)
	assert.Equal(t, 5*time.Second, cfg.Ledger.TxTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Catalog.CacheTTL)
	assert.False(t, cfg.UsesMemoryLedger())
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("LEDGER_TX_TIMEOUT", "750ms")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("CATALOG_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.UsesMemoryLedger())
	assert.Equal(t, 750*time.Millisecond, cfg.Ledger.TxTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 2*time.Minute, cfg.Catalog.CacheTTL)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
