package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"API_TELEGRAM"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// Backoff bounds for the polling loop after a failed getUpdates call.
	RetryMinMS int `yaml:"retry_min_ms" envconfig:"TELEGRAM_RETRY_MIN_MS"`
	RetryMaxMS int `yaml:"retry_max_ms" envconfig:"TELEGRAM_RETRY_MAX_MS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order" ignored:"true"`
	DebugSample string `yaml:"debug_sample" ignored:"true"`
	Dir         string `yaml:"dir" ignored:"true"`
	BotFile     string `yaml:"bot_file" ignored:"true"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// WeatherConfig configures the OpenWeatherMap client.
type WeatherConfig struct {
	APIKey  string `yaml:"api_key" envconfig:"API_FOR"`
	BaseURL string `yaml:"base_url" envconfig:"WEATHER_BASE_URL"`
}

// RatesConfig points the exchange-rate fetchers at their upstreams.
type RatesConfig struct {
	PrivatBankURL string `yaml:"privatbank_url" envconfig:"PRIVATBANK_URL"`
	XRatesURL     string `yaml:"xrates_url" envconfig:"XRATES_URL"`
}

// FetchConfig bounds outbound calls to third-party APIs.
type FetchConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"FETCH_TIMEOUT_SECONDS"`
}

// DatabaseConfig holds the optional chat directory connection settings.
// The directory is disabled when Host is empty.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Enabled reports whether a database has been configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.Host) != ""
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	DefaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5/weather"
	DefaultPrivatBankURL  = "https://api.privatbank.ua/p24api/pubinfo?exchange&json&coursid=11"
	DefaultXRatesURL      = "https://www.x-rates.com/table/"
	DefaultFetchTimeout   = 10
	DefaultRetryMinMS     = 1000
	DefaultRetryMaxMS     = 30000
)

// ErrMissingSecret is returned when a required credential is absent.
var ErrMissingSecret = errors.New("config: missing secret")

// Config aggregates the bot configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Logging  LoggingConfig  `yaml:"logging"`
	Weather  WeatherConfig  `yaml:"weather"`
	Rates    RatesConfig    `yaml:"rates"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Database DatabaseConfig `yaml:"database"`
}

// CoreConfig satisfies the runner's config carrier.
func (c *Config) CoreConfig() *Config {
	return c
}

// Load reads configuration from an optional YAML file and environment variables.
// A missing file is not an error; env-only deployments are common for this bot.
func Load(path string) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	// Sections are processed one by one so the tags above are the literal
	// variable names instead of being prefixed with the section name.
	sections := []any{&cfg.Telegram, &cfg.Webhook, &cfg.Logging, &cfg.Weather, &cfg.Rates, &cfg.Fetch, &cfg.Database}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("failed to process env: %w", err)
		}
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("%w: telegram token (API_TELEGRAM) is required", ErrMissingSecret)
	}
	if strings.TrimSpace(cfg.Weather.APIKey) == "" {
		return fmt.Errorf("%w: weather api key (API_FOR) is required", ErrMissingSecret)
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.Telegram.RetryMinMS <= 0 {
		cfg.Telegram.RetryMinMS = DefaultRetryMinMS
	}
	if cfg.Telegram.RetryMaxMS < cfg.Telegram.RetryMinMS {
		cfg.Telegram.RetryMaxMS = max(DefaultRetryMaxMS, cfg.Telegram.RetryMinMS)
	}

	if cfg.Fetch.TimeoutSeconds <= 0 {
		cfg.Fetch.TimeoutSeconds = DefaultFetchTimeout
	}
	if strings.TrimSpace(cfg.Weather.BaseURL) == "" {
		cfg.Weather.BaseURL = DefaultWeatherBaseURL
	}
	if strings.TrimSpace(cfg.Rates.PrivatBankURL) == "" {
		cfg.Rates.PrivatBankURL = DefaultPrivatBankURL
	}
	if strings.TrimSpace(cfg.Rates.XRatesURL) == "" {
		cfg.Rates.XRatesURL = DefaultXRatesURL
	}

	if cfg.Database.Enabled() {
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
		if cfg.Database.MigrationsDir == "" {
			cfg.Database.MigrationsDir = "migrations"
		}
	}
	return nil
}
