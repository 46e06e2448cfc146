// Package config loads service configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/logger"
	"github.com/newthinker/signalbook/internal/paper"
	"github.com/newthinker/signalbook/internal/parser"
	"github.com/newthinker/signalbook/internal/risk"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Log       logger.Config             `mapstructure:"log"`
	Account   AccountConfig             `mapstructure:"account"`
	Risk      risk.Settings             `mapstructure:"risk"`
	Market    MarketConfig              `mapstructure:"market"`
	Parser    ParserConfig              `mapstructure:"parser"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Sources   SourcesConfig             `mapstructure:"sources"`
	Scoring   ScoringConfig             `mapstructure:"scoring"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Scheduler SchedulerConfig           `mapstructure:"scheduler"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	StreamInterval time.Duration `mapstructure:"stream_interval"`
}

// AccountConfig seeds the paper account.
type AccountConfig struct {
	InitialBalance float64 `mapstructure:"initial_balance"`
	AccountType    string  `mapstructure:"account_type"`
}

// MarketConfig drives the synthetic price feed.
type MarketConfig struct {
	// Symbols maps a ticker to its starting reference price.
	Symbols         map[string]float64 `mapstructure:"symbols"`
	TickJitterPct   float64            `mapstructure:"tick_jitter_pct"`
	QuoteJitterPct  float64            `mapstructure:"quote_jitter_pct"`
	RefreshInterval time.Duration      `mapstructure:"refresh_interval"`
}

type ParserConfig struct {
	// DefaultQuantities maps a ticker to the quantity assigned to parsed signals.
	DefaultQuantities map[string]float64 `mapstructure:"default_quantities"`
}

type StorageConfig struct {
	MaxSignals int `mapstructure:"max_signals"`
}

type SourcesConfig struct {
	Telegram TelegramSourceConfig `mapstructure:"telegram"`
}

// TelegramSourceConfig configures getUpdates polling for alert chats.
type TelegramSourceConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BotToken     string        `mapstructure:"bot_token"`
	ChatIDs      []string      `mapstructure:"chat_ids"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BaseURL      string        `mapstructure:"base_url"`
}

// ScoringConfig bounds concurrent scoring of polled signals.
type ScoringConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

type NotifierConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	BaseURL  string `mapstructure:"base_url"`
	// Webhook notifier fields
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// SchedulerConfig holds cron specs for periodic jobs.
type SchedulerConfig struct {
	// DailyReport is a standard five-field cron spec; empty disables the report.
	DailyReport string `mapstructure:"daily_report"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	// A configured symbol table replaces the default one instead of merging.
	if v.IsSet("market.symbols") {
		cfg.Market.Symbols = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	pc := paper.DefaultConfig()
	symbols := make(map[string]float64, len(pc.ReferencePrices))
	for sym, price := range pc.ReferencePrices {
		symbols[strings.ToLower(string(sym))] = price
	}
	quantities := make(map[string]float64)
	for sym, qty := range parser.DefaultConfig().DefaultQuantities {
		quantities[strings.ToLower(string(sym))] = qty
	}

	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			Mode:           "release",
			StreamInterval: 5 * time.Second,
		},
		Log: logger.Config{Level: "info"},
		Account: AccountConfig{
			InitialBalance: pc.InitialBalance,
			AccountType:    pc.AccountType,
		},
		Risk: risk.DefaultSettings(),
		Market: MarketConfig{
			Symbols:         symbols,
			TickJitterPct:   pc.TickJitterPct,
			QuoteJitterPct:  pc.QuoteJitterPct,
			RefreshInterval: 5 * time.Second,
		},
		Parser:  ParserConfig{DefaultQuantities: quantities},
		Storage: StorageConfig{MaxSignals: 1000},
		Sources: SourcesConfig{
			Telegram: TelegramSourceConfig{PollInterval: 10 * time.Second},
		},
		Scoring:   ScoringConfig{MaxConcurrency: 4},
		Scheduler: SchedulerConfig{DailyReport: "0 21 * * *"},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Account.InitialBalance <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_balance must be positive, got %v", c.Account.InitialBalance))
	}

	if err := c.Risk.Validate(); err != nil {
		return err
	}

	if _, err := c.PaperConfig(); err != nil {
		return err
	}
	if c.Market.RefreshInterval <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("refresh_interval must be positive, got %s", c.Market.RefreshInterval))
	}
	if _, err := c.ParserConfig(); err != nil {
		return err
	}

	if tg := c.Sources.Telegram; tg.Enabled {
		if tg.BotToken == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("sources.telegram.bot_token required when enabled"))
		}
		if tg.PollInterval <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("sources.telegram.poll_interval must be positive, got %s", tg.PollInterval))
		}
	}

	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		switch name {
		case "telegram":
			if n.BotToken == "" || n.ChatID == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("notifiers.telegram requires bot_token and chat_id"))
			}
		case "webhook":
			if n.URL == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("notifiers.webhook requires url"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown notifier %q", name))
		}
	}

	if spec := c.Scheduler.DailyReport; spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("scheduler.daily_report: %w", err))
		}
	}

	return nil
}

// PaperConfig converts the account and market sections to engine settings.
func (c *Config) PaperConfig() (paper.Config, error) {
	refs, err := symbolMap("market.symbols", c.Market.Symbols)
	if err != nil {
		return paper.Config{}, err
	}
	if len(refs) == 0 {
		return paper.Config{}, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("market.symbols must list at least one symbol"))
	}
	for name, pct := range map[string]float64{
		"tick_jitter_pct":  c.Market.TickJitterPct,
		"quote_jitter_pct": c.Market.QuoteJitterPct,
	} {
		if pct < 0 || pct >= 50 {
			return paper.Config{}, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("market.%s must be in [0, 50), got %v", name, pct))
		}
	}

	return paper.Config{
		InitialBalance:  c.Account.InitialBalance,
		AccountType:     c.Account.AccountType,
		ReferencePrices: refs,
		TickJitterPct:   c.Market.TickJitterPct,
		QuoteJitterPct:  c.Market.QuoteJitterPct,
	}, nil
}

// ParserConfig converts the parser section.
func (c *Config) ParserConfig() (parser.Config, error) {
	qty, err := symbolMap("parser.default_quantities", c.Parser.DefaultQuantities)
	if err != nil {
		return parser.Config{}, err
	}
	return parser.Config{DefaultQuantities: qty}, nil
}

// symbolMap resolves ticker keys, which viper lowercases, to symbols.
func symbolMap(key string, in map[string]float64) (map[core.Symbol]float64, error) {
	out := make(map[core.Symbol]float64, len(in))
	for name, v := range in {
		sym, ok := core.ParseSymbol(name)
		if !ok {
			return nil, core.WrapError(core.ErrUnknownSymbol, fmt.Errorf("%s: %q", key, name))
		}
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s.%s must be positive, got %v", key, name, v))
		}
		out[sym] = v
	}
	return out, nil
}
