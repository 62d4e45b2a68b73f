// Package config loads runtime configuration from .env, an optional YAML file
// and environment overrides, then validates it.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"index-signal-lab/internal/domain"
)

// Config holds all configuration values.
type Config struct {
	Symbol    string `yaml:"symbol" validate:"required"`
	StartDate string `yaml:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `yaml:"end_date" validate:"omitempty,datetime=2006-01-02"`

	Source   SourceConfig   `yaml:"source"`
	Strategy StrategyConfig `yaml:"strategy"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Storage  StorageConfig  `yaml:"storage"`
	Influx   InfluxConfig   `yaml:"influx"`
	Telegram TelegramConfig `yaml:"telegram"`
	Chart    ChartConfig    `yaml:"chart"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// SourceConfig selects where daily bars come from.
type SourceConfig struct {
	Kind         string `yaml:"kind" validate:"oneof=yahoo csv influx"`
	YahooBaseURL string `yaml:"yahoo_base_url" validate:"omitempty,url"`
	CSVPath      string `yaml:"csv_path" validate:"required_if=Kind csv"`
	CSVEncoding  string `yaml:"csv_encoding" validate:"omitempty,oneof=auto utf-8 utf-16 euc-kr"`
	// Archive fetched bars to InfluxDB when it is configured.
	Archive bool `yaml:"archive"`
}

// StrategyConfig holds signal machine parameters.
type StrategyConfig struct {
	Type               string  `yaml:"type" validate:"oneof=threshold reversal"`
	Period             int     `yaml:"period" validate:"gte=2"`
	BuyThreshold       float64 `yaml:"buy_threshold"`
	SellThreshold      float64 `yaml:"sell_threshold"`
	PriceDiffThreshold float64 `yaml:"price_diff_threshold" validate:"gte=0"`
}

// SweepConfig is the parameter grid for threshold sweeps.
type SweepConfig struct {
	PeriodFrom int     `yaml:"period_from" validate:"gte=2"`
	PeriodTo   int     `yaml:"period_to" validate:"gtefield=PeriodFrom"`
	PeriodStep int     `yaml:"period_step" validate:"gte=1"`
	BuyFrom    float64 `yaml:"buy_from"`
	BuyTo      float64 `yaml:"buy_to"`
	BuyStep    float64 `yaml:"buy_step" validate:"ne=0"`
	SellFrom   float64 `yaml:"sell_from"`
	SellTo     float64 `yaml:"sell_to"`
	SellStep   float64 `yaml:"sell_step" validate:"ne=0"`
	Workers    int     `yaml:"workers" validate:"gte=1,lte=64"`
	Top        int     `yaml:"top" validate:"gte=0"`
}

// StorageConfig holds database DSNs. Empty DSNs fall back to memory stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// InfluxConfig enables the InfluxDB bar archive when URL is set.
type InfluxConfig struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Token  string `yaml:"token" validate:"required_with=URL"`
	Org    string `yaml:"org" validate:"required_with=URL"`
	Bucket string `yaml:"bucket" validate:"required_with=URL"`
}

// TelegramConfig enables alerts when both values are set.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	APIURL   string `yaml:"api_url" validate:"omitempty,url"`
}

// Enabled reports whether alerts can be sent.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// ChartConfig controls chart series export.
type ChartConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format" validate:"oneof=csv arrow"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Symbol:    domain.DefaultSymbol,
		StartDate: domain.DefaultStartDate,
		Source: SourceConfig{
			Kind:        "yahoo",
			CSVEncoding: "auto",
		},
		Strategy: StrategyConfig{
			Type:               "threshold",
			Period:             domain.DefaultPeriod,
			BuyThreshold:       domain.DefaultBuyThreshold,
			SellThreshold:      domain.DefaultSellThreshold,
			PriceDiffThreshold: domain.DefaultPriceDiffThreshold,
		},
		Sweep: SweepConfig{
			PeriodFrom: 5,
			PeriodTo:   20,
			PeriodStep: 1,
			BuyFrom:    100,
			BuyTo:      150,
			BuyStep:    5,
			SellFrom:   -100,
			SellTo:     -150,
			SellStep:   -5,
			Workers:    4,
			Top:        20,
		},
		Chart:  ChartConfig{Format: "csv"},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty), then environment overrides. A .env file in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envOverrides = []struct {
	key   string
	field func(*Config) *string
}{
	{"SIGNALLAB_SYMBOL", func(c *Config) *string { return &c.Symbol }},
	{"SIGNALLAB_START_DATE", func(c *Config) *string { return &c.StartDate }},
	{"SIGNALLAB_LOG_LEVEL", func(c *Config) *string { return &c.Log.Level }},
	{"POSTGRES_DSN", func(c *Config) *string { return &c.Storage.PostgresDSN }},
	{"CLICKHOUSE_DSN", func(c *Config) *string { return &c.Storage.ClickhouseDSN }},
	{"INFLUXDB_URL", func(c *Config) *string { return &c.Influx.URL }},
	{"INFLUXDB_TOKEN", func(c *Config) *string { return &c.Influx.Token }},
	{"INFLUXDB_ORG", func(c *Config) *string { return &c.Influx.Org }},
	{"INFLUXDB_BUCKET", func(c *Config) *string { return &c.Influx.Bucket }},
	{"TELEGRAM_BOT_TOKEN", func(c *Config) *string { return &c.Telegram.BotToken }},
	{"TELEGRAM_CHAT_ID", func(c *Config) *string { return &c.Telegram.ChatID }},
}

func (c *Config) applyEnv() {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.field(c) = v
		}
	}
}

var validate = validator.New()

// Validate checks struct constraints and normalizes the symbol.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid config: %w", verrs)
		}
		return fmt.Errorf("validate config: %w", err)
	}
	symbol, err := domain.NormalizeSymbol(c.Symbol)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	c.Symbol = symbol
	return nil
}

// Range returns the parsed start and end dates. A zero end means "until today".
func (c *Config) Range() (start, end time.Time, err error) {
	start, err = domain.ParseDay(c.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start_date: %w", err)
	}
	if c.EndDate != "" {
		end, err = domain.ParseDay(c.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse end_date: %w", err)
		}
	}
	return start, end, nil
}

// DomainStrategy converts the strategy section into a domain config.
func (c *Config) DomainStrategy() domain.StrategyConfig {
	if c.Strategy.Type == "reversal" {
		return domain.ReversalConfig(c.Strategy.PriceDiffThreshold)
	}
	return domain.ThresholdConfig(c.Strategy.Period, c.Strategy.BuyThreshold, c.Strategy.SellThreshold)
}
