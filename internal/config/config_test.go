package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeout(t *testing.T) {
	viper.Set("REQ_TIMEOUT", "")
	timeout := GetRequestTimeout()
	assert.Equal(t, timeout, defaultRequestTimeout)

	viper.Set("REQ_TIMEOUT", "14s")
	timeout = GetRequestTimeout()
	assert.Equal(t, timeout, 14*time.Second)
}

func TestPort(t *testing.T) {
	viper.Set("PORT", "")
	assert.Equal(t, defaultLocalPort, GetPort())

	viper.Set("PORT", "9000")
	assert.Equal(t, ":9000", GetPort())
	viper.Set("PORT", "")
}

func TestRateLimit(t *testing.T) {
	viper.Set("RATE_LIMIT_RPS", "")
	viper.Set("RATE_LIMIT_BURST", "")
	assert.Equal(t, defaultRateLimit, GetRateLimit())
	assert.Equal(t, defaultRateBurst, GetRateBurst())

	viper.Set("RATE_LIMIT_RPS", "2.5")
	viper.Set("RATE_LIMIT_BURST", "4")
	assert.Equal(t, 2.5, GetRateLimit())
	assert.Equal(t, 4, GetRateBurst())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("DB_NAME: archive\nDISTRIBUTION_CHECK_INTERVAL: 5m\n"), 0o600))

	viper.Set("CONFIG_FILE", path)
	defer viper.Set("CONFIG_FILE", "")
	require.NoError(t, Load())

	assert.Equal(t, "archive", GetDatabaseName())
	assert.Equal(t, 5*time.Minute, GetDistributionCheckInterval())
}
