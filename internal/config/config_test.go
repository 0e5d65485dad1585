package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TENANCY_MODE", "")
	t.Setenv("AUTH_TOKEN_TTL", "")

	cfg := Load()
	assert.Equal(t, TenancyModeDomain, cfg.TenancyMode)
	assert.False(t, cfg.SingleTenant())
	assert.Equal(t, 24*time.Hour, cfg.AuthTokenTTL)
	assert.Equal(t, "public", cfg.SingleTenantSchema)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TENANCY_MODE", "SINGLE")
	t.Setenv("AUTH_TOKEN_TTL", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := Load()
	assert.True(t, cfg.SingleTenant())
	assert.Equal(t, 2*time.Hour, cfg.AuthTokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.Redis.Enabled())
}

func TestDefaultsHolderFallsBackToBuiltins(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewDefaultsHolder(Config{DefaultsPath: dir})
	require.NoError(t, err)
	settings := holder.Get().Settings
	assert.Equal(t, "USD", settings["company_currency"])
	assert.Contains(t, settings, "last_invoice_number")
}

func TestDefaultsHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	body := []byte("tenant:\n  settings:\n    company_currency: EUR\n    default_tax_rate: 19\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "defaults.yml"), body, 0o600))

	holder, err := NewDefaultsHolder(Config{DefaultsPath: dir})
	require.NoError(t, err)
	settings := holder.Get().Settings
	assert.Equal(t, "EUR", settings["company_currency"])
	assert.EqualValues(t, 19, settings["default_tax_rate"])
}
