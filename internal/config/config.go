package config

import (
	"fmt"
	"os"
	"strings"

	"StrategyLab/internal/model"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Strategy struct {
		ShortWindow   int     `yaml:"short_window"`
		LongWindow    int     `yaml:"long_window"`
		UseRSIFilter  *bool   `yaml:"use_rsi_filter"`
		RSIPeriod     int     `yaml:"rsi_period"`
		RSIOversold   float64 `yaml:"rsi_oversold"`
		RSIOverbought float64 `yaml:"rsi_overbought"`
	} `yaml:"strategy"`
	Backtest struct {
		InitialCapital float64 `yaml:"initial_capital"`
		StopLossPct    float64 `yaml:"stop_loss_pct"`
		RiskFreeRate   float64 `yaml:"risk_free_rate"`
	} `yaml:"backtest"`
	Portfolio struct {
		Tickers         []string        `yaml:"tickers"`
		TotalCapital    float64         `yaml:"total_capital"`
		NotionalCapital float64         `yaml:"notional_capital"`
		SmartAllocation *bool           `yaml:"smart_allocation"`
		FloorEpsilon    float64         `yaml:"floor_epsilon"`
		GapPolicy       model.GapPolicy `yaml:"gap_policy"`
		LookbackDays    int             `yaml:"lookback_days"`
		Workers         int             `yaml:"workers"`
	} `yaml:"portfolio"`
	DataSource struct {
		Provider          string  `yaml:"provider"` // yahoo or mock
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"data_source"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		PortfolioCron string `yaml:"portfolio_cron"`
	} `yaml:"schedule"`
	Database struct {
		Driver string `yaml:"driver"` // sqlite, postgres or empty for none
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Proxy    string `yaml:"proxy"`
	LogLevel string `yaml:"log_level"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		var id int64
		if _, err := fmt.Sscanf(v, "%d", &id); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("PORTFOLIO_TICKERS"); v != "" {
		cfg.Portfolio.Tickers = strings.Split(v, ",")
	}
	if v := os.Getenv("TOTAL_CAPITAL"); v != "" {
		var capital float64
		if _, err := fmt.Sscanf(v, "%f", &capital); err == nil {
			cfg.Portfolio.TotalCapital = capital
		}
	}
	if v := os.Getenv("CRON_PORTFOLIO"); v != "" {
		cfg.Schedule.PortfolioCron = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Strategy.ShortWindow == 0 {
		c.Strategy.ShortWindow = 20
	}
	if c.Strategy.LongWindow == 0 {
		c.Strategy.LongWindow = 50
	}
	if c.Strategy.UseRSIFilter == nil {
		t := true
		c.Strategy.UseRSIFilter = &t
	}
	if c.Strategy.RSIPeriod == 0 {
		c.Strategy.RSIPeriod = 14
	}
	if c.Strategy.RSIOversold == 0 {
		c.Strategy.RSIOversold = 35
	}
	if c.Strategy.RSIOverbought == 0 {
		c.Strategy.RSIOverbought = 70
	}
	if c.Backtest.InitialCapital == 0 {
		c.Backtest.InitialCapital = 100000
	}
	if c.Backtest.RiskFreeRate == 0 {
		c.Backtest.RiskFreeRate = 0.02
	}
	if c.Portfolio.TotalCapital == 0 {
		c.Portfolio.TotalCapital = 100000
	}
	if c.Portfolio.NotionalCapital == 0 {
		c.Portfolio.NotionalCapital = 10000
	}
	if c.Portfolio.SmartAllocation == nil {
		t := true
		c.Portfolio.SmartAllocation = &t
	}
	if c.Portfolio.FloorEpsilon == 0 {
		c.Portfolio.FloorEpsilon = 0.01
	}
	if c.Portfolio.GapPolicy == "" {
		c.Portfolio.GapPolicy = model.GapZero
	}
	if c.Portfolio.LookbackDays == 0 {
		c.Portfolio.LookbackDays = 365
	}
	if c.Portfolio.Workers == 0 {
		c.Portfolio.Workers = 4
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.RequestsPerSecond == 0 {
		c.DataSource.RequestsPerSecond = 2
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "strategylab.portfolio-runs"
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = "data/strategylab.db"
	}
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if c.Strategy.ShortWindow < 1 {
		return fmt.Errorf("strategy.short_window must be >= 1")
	}
	if c.Strategy.LongWindow < c.Strategy.ShortWindow {
		return fmt.Errorf("strategy.long_window must be >= strategy.short_window")
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive")
	}
	if c.Backtest.StopLossPct < 0 || c.Backtest.StopLossPct >= 1 {
		return fmt.Errorf("backtest.stop_loss_pct must be in [0, 1)")
	}
	if c.Portfolio.TotalCapital <= 0 {
		return fmt.Errorf("portfolio.total_capital must be positive")
	}
	if !c.Portfolio.GapPolicy.Valid() {
		return fmt.Errorf("portfolio.gap_policy must be %q or %q", model.GapZero, model.GapForwardFill)
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.provider must be yahoo or mock")
	}
	switch c.Database.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres")
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for postgres")
	}
	if c.Schedule.PortfolioCron != "" && len(c.Portfolio.Tickers) == 0 {
		return fmt.Errorf("portfolio.tickers is required when schedule.portfolio_cron is set")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
