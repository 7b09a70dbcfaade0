package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
service:
  name: exec_test
exchange:
  mode: live
  api_key: file-key
  api_secret: file-secret
  rate_per_sec: 20
market:
  symbols: [BTCUSDT, ETHUSDT]
  poll_interval: 2s
order:
  rate_limit_base: 1s
  rate_limit_attempts: 4
futures:
  - symbol: BTCUSDT
    leverage: 10
    margin_mode: ISOLATED
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "exec_test", cfg.Service.Name)
	assert.Equal(t, ModeLive, cfg.Exchange.Mode)
	assert.Equal(t, "file-key", cfg.Exchange.APIKey)
	assert.Equal(t, 20.0, cfg.Exchange.RatePerSec)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Market.Symbols)
	assert.Equal(t, 2*time.Second, cfg.Market.PollInterval)
	assert.Equal(t, time.Second, cfg.Order.RateLimitBase)
	assert.Equal(t, 4, cfg.Order.RateLimitAttempts)
	// дефолты, которых нет в файле
	assert.Equal(t, 3, cfg.Order.TransientAttempts)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)

	require.Len(t, cfg.Futures, 1)
	assert.Equal(t, 10, cfg.Futures[0].Leverage)
	assert.EqualValues(t, "ISOLATED", cfg.Futures[0].MarginMode)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("EXCHANGE_API_KEY", "env-key")
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/db")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Exchange.APIKey)
	assert.Equal(t, "postgres://u:p@localhost:5432/db", cfg.DB)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
}

func TestUseMockForcesMockMode(t *testing.T) {
	t.Setenv("USE_MOCK", "true")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, ModeMock, cfg.Exchange.Mode)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ModeMock, cfg.Exchange.Mode)
	assert.Equal(t, 5*time.Second, cfg.Market.PollInterval)
}

func TestLiveWithoutCredentialsFails(t *testing.T) {
	_, err := Load(writeConfig(t, "exchange:\n  mode: live\n"))
	assert.Error(t, err)
}
