package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DateLayout is the format of start_date and end_date.
const DateLayout = "2006-01-02"

// EnvPrefix prefixes every environment override, e.g. OHLC_DATABASE_SQLITE_PATH.
const EnvPrefix = "OHLC"

// Config holds all application configuration.
type Config struct {
	Tickers   []string `yaml:"tickers" envconfig:"TICKERS" validate:"required,min=1,dive,required"`
	StartDate string   `yaml:"start_date" envconfig:"START_DATE" validate:"required,datetime=2006-01-02"`
	// EndDate is exclusive. Empty means today.
	EndDate string `yaml:"end_date" envconfig:"END_DATE" validate:"omitempty,datetime=2006-01-02"`

	Retry struct {
		MaxAttempts int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS" validate:"min=1"`
		Delay       time.Duration `yaml:"delay" envconfig:"DELAY" validate:"min=0"`
	} `yaml:"retry" envconfig:"RETRY"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
		Table      string `yaml:"table" envconfig:"TABLE" validate:"required"`
		FreshRun   bool   `yaml:"fresh_run" envconfig:"FRESH_RUN"`
	} `yaml:"database" envconfig:"DATABASE"`
	DataSource struct {
		Name       string `yaml:"name" envconfig:"NAME" validate:"oneof=yahoo rest csv mock"`
		BaseURL    string `yaml:"base_url" envconfig:"BASE_URL" validate:"omitempty,url"`
		APIKey     string `yaml:"api_key" envconfig:"API_KEY"`
		CSVDir     string `yaml:"csv_dir" envconfig:"CSV_DIR"`
		AutoAdjust bool   `yaml:"auto_adjust" envconfig:"AUTO_ADJUST"`
	} `yaml:"data_source" envconfig:"DATA_SOURCE"`
	Proxy  string `yaml:"proxy" envconfig:"PROXY" validate:"omitempty,url"`
	Export struct {
		Format string `yaml:"format" envconfig:"FORMAT" validate:"omitempty,oneof=csv json parquet xlsx"`
		Dir    string `yaml:"dir" envconfig:"DIR"`
	} `yaml:"export" envconfig:"EXPORT"`
	Metrics struct {
		TextfilePath string `yaml:"textfile_path" envconfig:"TEXTFILE_PATH"`
	} `yaml:"metrics" envconfig:"METRICS"`
	Schedule struct {
		Cron string `yaml:"cron" envconfig:"CRON"`
	} `yaml:"schedule" envconfig:"SCHEDULE"`
	Telegram struct {
		BotToken string `yaml:"bot_token" envconfig:"BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"CHAT_ID"`
	} `yaml:"telegram" envconfig:"TELEGRAM"`
	Log struct {
		Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=console json"`
	} `yaml:"log" envconfig:"LOG"`
	Sample struct {
		Rows int `yaml:"rows" envconfig:"ROWS" validate:"min=0"`
	} `yaml:"sample" envconfig:"SAMPLE"`
}

// Default returns the configuration used for keys absent from both the YAML
// file and the environment. An explicit empty or zero value overrides it.
func Default() *Config {
	cfg := &Config{
		Tickers:   []string{"AAPL", "MSFT", "GOOG", "AMZN", "TSLA", "NVDA", "JPM", "V", "PG", "KO"},
		StartDate: "2020-01-01",
	}
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.Delay = 5 * time.Second
	cfg.Database.SQLitePath = "data/ohlc_data.db"
	cfg.Database.Table = "ohlc_processed_data"
	cfg.DataSource.Name = "yahoo"
	cfg.Export.Dir = "data/export"
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	cfg.Sample.Rows = 5
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	// HTTPS_PROXY is honoured the same way the data fetchers always have.
	if v := os.Getenv("HTTPS_PROXY"); v != "" && cfg.Proxy == "" {
		cfg.Proxy = v
	}

	for i, t := range cfg.Tickers {
		cfg.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	return cfg, nil
}

// Validate checks field constraints and the date range.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	start, end, err := c.Range(time.Now())
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("start_date %s must be before end_date %s", c.StartDate, end.Format(DateLayout))
	}

	switch c.DataSource.Name {
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest source")
		}
	case "csv":
		if c.DataSource.CSVDir == "" {
			return fmt.Errorf("data_source.csv_dir is required for the csv source")
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Range returns the start (inclusive) and end (exclusive) dates in UTC. An
// empty end date resolves to the UTC calendar day of now.
func (c *Config) Range(now time.Time) (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, c.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date: %w", err)
	}
	if c.EndDate == "" {
		y, m, d := now.UTC().Date()
		return start, time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	end, err := time.Parse(DateLayout, c.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date: %w", err)
	}
	return start, end, nil
}

// NotifyEnabled reports whether a Telegram summary should be sent.
func (c *Config) NotifyEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
