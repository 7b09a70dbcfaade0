package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"exec_bot/internal/models"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
	defaultConfigFile = "values_local.yaml"
)

const (
	ModeMock   = "mock"
	ModeDryRun = "dry_run"
	ModeLive   = "live"
)

// Config ...
type Config struct {
	Service struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"service"`
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`

	Exchange ExchangeConfig `mapstructure:"exchange"`
	Market   MarketConfig   `mapstructure:"market"`
	Order    OrderConfig    `mapstructure:"order"`

	// Настройки фьючерсов, применяются на старте
	Futures []models.FuturesSettings `mapstructure:"futures"`
	// yaml с пресетами стратегий (пусто, не грузим)
	StrategiesFile string `mapstructure:"strategies_file"`

	DB       string `mapstructure:"db_dsn"`
	Telegram struct {
		Token  string `mapstructure:"token"`
		ChatID int64  `mapstructure:"chat_id"`
	} `mapstructure:"telegram"`
	Tracing struct {
		Enabled bool   `mapstructure:"enabled"`
		Host    string `mapstructure:"host"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"tracing"`
}

type ExchangeConfig struct {
	Mode       string        `mapstructure:"mode"` // mock | dry_run | live
	UseMock    bool          `mapstructure:"use_mock"`
	BaseURL    string        `mapstructure:"base_url"`
	WSURL      string        `mapstructure:"ws_url"`
	APIKey     string        `mapstructure:"api_key"`
	APISecret  string        `mapstructure:"api_secret"`
	RecvWindow time.Duration `mapstructure:"recv_window"`
	Timeout    time.Duration `mapstructure:"timeout"`
	// общий бюджет запросов на все символы
	RatePerSec float64       `mapstructure:"rate_per_sec"`
	Burst      int           `mapstructure:"burst"`
	FiltersTTL time.Duration `mapstructure:"filters_ttl"`
}

type MarketConfig struct {
	Symbols      []string      `mapstructure:"symbols"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Stream       bool          `mapstructure:"stream"`
	// снапшот из стрима старше этого, идём в REST
	MaxStaleness time.Duration `mapstructure:"max_staleness"`
	// стартовая цена симулятора в режиме mock
	MockBase float64 `mapstructure:"mock_base"`
}

type OrderConfig struct {
	RateLimitBase     time.Duration `mapstructure:"rate_limit_base"`
	RateLimitMax      time.Duration `mapstructure:"rate_limit_max"`
	RateLimitAttempts int           `mapstructure:"rate_limit_attempts"`
	TransientAttempts int           `mapstructure:"transient_attempts"`
	TransientBase     time.Duration `mapstructure:"transient_base"`
	MaxQty            float64       `mapstructure:"max_qty"`      // 0 = без лимита
	MaxNotional       float64       `mapstructure:"max_notional"` // 0 = без лимита
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
}

func NewConfig() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	name := getenvDefault(configFilePathENV, defaultConfigFile)
	return Load(filepath.Join(configDir, name))
}

// Load читает yaml через viper; переменные окружения перекрывают файл
// (exchange.api_key -> EXCHANGE_API_KEY). Отсутствующий файл, не ошибка.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("db_dsn", "DB_DSN", "DATABASE_DSN")
	_ = v.BindEnv("exchange.use_mock", "EXCHANGE_USE_MOCK", "USE_MOCK")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if cfg.Exchange.UseMock {
		cfg.Exchange.Mode = ModeMock
	}
	cfg.Exchange.Mode = strings.ToLower(strings.TrimSpace(cfg.Exchange.Mode))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "exec_bot")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("exchange.mode", ModeMock)
	v.SetDefault("exchange.use_mock", false)
	v.SetDefault("exchange.base_url", "https://fapi.binance.com")
	v.SetDefault("exchange.ws_url", "wss://fstream.binance.com/ws")
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.api_secret", "")
	v.SetDefault("exchange.recv_window", "5s")
	v.SetDefault("exchange.timeout", "10s")
	v.SetDefault("exchange.rate_per_sec", 10.0)
	v.SetDefault("exchange.burst", 5)
	v.SetDefault("exchange.filters_ttl", "1h")

	v.SetDefault("market.symbols", []string{})
	v.SetDefault("market.poll_interval", "5s")
	v.SetDefault("market.stream", false)
	v.SetDefault("market.max_staleness", "15s")
	v.SetDefault("market.mock_base", 100.0)

	v.SetDefault("order.rate_limit_base", "500ms")
	v.SetDefault("order.rate_limit_max", "30s")
	v.SetDefault("order.rate_limit_attempts", 5)
	v.SetDefault("order.transient_attempts", 3)
	v.SetDefault("order.transient_base", "200ms")
	v.SetDefault("order.max_qty", 0.0)
	v.SetDefault("order.max_notional", 0.0)
	v.SetDefault("order.refresh_interval", "2s")

	v.SetDefault("strategies_file", "")
	v.SetDefault("db_dsn", "")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)
}

func (c *Config) Validate() error {
	switch c.Exchange.Mode {
	case ModeMock, ModeDryRun:
	case ModeLive:
		if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
			return errors.New("exchange.mode=live requires api_key and api_secret")
		}
	default:
		return errors.Errorf("unknown exchange.mode %q", c.Exchange.Mode)
	}
	if c.Market.PollInterval <= 0 {
		return errors.New("market.poll_interval must be positive")
	}
	if c.Order.RateLimitAttempts < 1 || c.Order.TransientAttempts < 1 {
		return errors.New("order retry attempts must be >= 1")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
