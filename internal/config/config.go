package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/backtest"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/core"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/notifier"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/panel"
	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/storage"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Data sources
const (
	SourceSynthetic = "synthetic"
	SourceYahoo     = "yahoo"
)

// Storage backends
const (
	StorageLocalFS = "localfs"
	StorageS3      = "s3"
)

// Notifier types
const (
	NotifierWebhook  = "webhook"
	NotifierTelegram = "telegram"
	NotifierEmail    = "email"
)

type Config struct {
	Project     string            `mapstructure:"project" yaml:"project"`
	OutputsRoot string            `mapstructure:"outputs_root" yaml:"outputs_root"`
	Data        DataConfig        `mapstructure:"data" yaml:"data"`
	Synthetic   SyntheticConfig   `mapstructure:"synthetic" yaml:"synthetic"`
	Strategy    StrategyConfig    `mapstructure:"strategy" yaml:"strategy"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Artifacts   ArtifactsConfig   `mapstructure:"artifacts" yaml:"artifacts"`
	Notifiers   []notifier.Config `mapstructure:"notifiers" yaml:"notifiers"`
}

// DataConfig selects where prices come from
type DataConfig struct {
	// Source is "synthetic" or "yahoo"
	Source  string        `mapstructure:"source" yaml:"source"`
	Tickers []string      `mapstructure:"tickers" yaml:"tickers"`
	// Start and End are YYYY-MM-DD; End is exclusive
	Start   string        `mapstructure:"start" yaml:"start"`
	End     string        `mapstructure:"end" yaml:"end"`
	Refresh bool          `mapstructure:"refresh" yaml:"refresh"`
	MaxFill int           `mapstructure:"max_fill" yaml:"max_fill"`
	Cache   StorageConfig `mapstructure:"cache" yaml:"cache"`
	Yahoo   YahooConfig   `mapstructure:"yahoo" yaml:"yahoo"`
}

// YahooConfig holds Yahoo Finance client settings
type YahooConfig struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// StorageConfig selects a blob storage backend
type StorageConfig struct {
	Type string   `mapstructure:"type" yaml:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path" yaml:"path"` // For localfs
	S3   S3Config `mapstructure:"s3" yaml:"s3"`     // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

// SyntheticConfig parameterizes the random-walk price generator
type SyntheticConfig struct {
	Assets int     `mapstructure:"n_assets" yaml:"n_assets"`
	Days   int     `mapstructure:"n_days" yaml:"n_days"`
	Seed   uint64  `mapstructure:"seed" yaml:"seed"`
	Mu     float64 `mapstructure:"mu" yaml:"mu"`
	Sigma  float64 `mapstructure:"sigma" yaml:"sigma"`
}

// StrategyConfig holds the momentum strategy parameters
type StrategyConfig struct {
	Lookback  int     `mapstructure:"lookback" yaml:"lookback"`
	LongFrac  float64 `mapstructure:"long_frac" yaml:"long_frac"`
	ShortFrac float64 `mapstructure:"short_frac" yaml:"short_frac"`
	Rebalance string  `mapstructure:"rebalance" yaml:"rebalance"`
	CostBps   float64 `mapstructure:"cost_bps" yaml:"cost_bps"`
}

// MetricsConfig holds performance metric settings.
type MetricsConfig struct {
	PeriodsPerYear int `mapstructure:"periods_per_year" yaml:"periods_per_year"`
}

// ArtifactsConfig holds run output settings. Artifacts are always written to
// the local run directory and mirrored when Mirror.Type is set.
type ArtifactsConfig struct {
	Parquet bool          `mapstructure:"parquet" yaml:"parquet"`
	Mirror  StorageConfig `mapstructure:"mirror" yaml:"mirror"`
}

// LoadMap reads a YAML file whose top level must be a mapping
func LoadMap(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("config not found: %s", path))
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("parsing yaml: %w", err))
	}

	m, ok := doc.(map[string]any)
	if !ok {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("yaml config must be a mapping at top level"))
	}
	return m, nil
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	m, err := LoadMap(path)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix("QUANTLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.MergeConfigMap(m); err != nil {
		return nil, fmt.Errorf("merging config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		if val, ok := v.Get(key).(string); ok {
			if expanded, ok := expandPlaceholder(val); ok {
				v.Set(key, expanded)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// List entries are not viper keys
	for _, n := range cfg.Notifiers {
		for k, val := range n.Params {
			if str, ok := val.(string); ok {
				if expanded, ok := expandPlaceholder(str); ok {
					n.Params[k] = expanded
				}
			}
		}
	}

	return &cfg, nil
}

// expandPlaceholder resolves a whole-value ${VAR} reference
func expandPlaceholder(val string) (string, bool) {
	if !strings.HasPrefix(val, "${") || !strings.HasSuffix(val, "}") {
		return "", false
	}
	return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")), true
}

// setDefaults registers every default so env overrides and partial files
// resolve against them.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("project", d.Project)
	v.SetDefault("outputs_root", d.OutputsRoot)

	v.SetDefault("data.source", d.Data.Source)
	v.SetDefault("data.tickers", d.Data.Tickers)
	v.SetDefault("data.start", d.Data.Start)
	v.SetDefault("data.end", d.Data.End)
	v.SetDefault("data.refresh", d.Data.Refresh)
	v.SetDefault("data.max_fill", d.Data.MaxFill)
	v.SetDefault("data.cache.type", d.Data.Cache.Type)
	v.SetDefault("data.cache.path", d.Data.Cache.Path)
	v.SetDefault("data.yahoo.base_url", d.Data.Yahoo.BaseURL)
	v.SetDefault("data.yahoo.timeout", d.Data.Yahoo.Timeout)
	v.SetDefault("data.yahoo.requests_per_second", d.Data.Yahoo.RequestsPerSecond)

	v.SetDefault("synthetic.n_assets", d.Synthetic.Assets)
	v.SetDefault("synthetic.n_days", d.Synthetic.Days)
	v.SetDefault("synthetic.seed", d.Synthetic.Seed)
	v.SetDefault("synthetic.mu", d.Synthetic.Mu)
	v.SetDefault("synthetic.sigma", d.Synthetic.Sigma)

	v.SetDefault("strategy.lookback", d.Strategy.Lookback)
	v.SetDefault("strategy.long_frac", d.Strategy.LongFrac)
	v.SetDefault("strategy.short_frac", d.Strategy.ShortFrac)
	v.SetDefault("strategy.rebalance", d.Strategy.Rebalance)
	v.SetDefault("strategy.cost_bps", d.Strategy.CostBps)

	v.SetDefault("metrics.periods_per_year", d.Metrics.PeriodsPerYear)
	v.SetDefault("artifacts.parquet", d.Artifacts.Parquet)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	sim := panel.DefaultSimConfig()
	strat := backtest.DefaultMomentumConfig()

	return &Config{
		Project:     "flagship_equity_signals",
		OutputsRoot: "outputs",
		Data: DataConfig{
			Source:  SourceSynthetic,
			MaxFill: 5,
			Cache: StorageConfig{
				Type: StorageLocalFS,
				Path: "data/raw",
			},
			Yahoo: YahooConfig{
				BaseURL:           "https://query1.finance.yahoo.com/v8/finance/chart",
				Timeout:           10 * time.Second,
				RequestsPerSecond: 2,
			},
		},
		Synthetic: SyntheticConfig{
			Assets: sim.Assets,
			Days:   sim.Days,
			Seed:   sim.Seed,
			Mu:     sim.Mu,
			Sigma:  sim.Sigma,
		},
		Strategy: StrategyConfig{
			Lookback:  strat.Lookback,
			LongFrac:  strat.LongFrac,
			ShortFrac: strat.ShortFrac,
			Rebalance: strat.Rebalance.String(),
			CostBps:   strat.CostBps,
		},
		Metrics: MetricsConfig{
			PeriodsPerYear: backtest.TradingDaysPerYear,
		},
		Artifacts: ArtifactsConfig{
			Parquet: true,
		},
	}
}

// Momentum converts the strategy section into an engine configuration
func (c *Config) Momentum() (backtest.MomentumConfig, error) {
	r, err := backtest.ParseRebalance(c.Strategy.Rebalance)
	if err != nil {
		return backtest.MomentumConfig{}, err
	}
	mc := backtest.MomentumConfig{
		Lookback:  c.Strategy.Lookback,
		LongFrac:  c.Strategy.LongFrac,
		ShortFrac: c.Strategy.ShortFrac,
		Rebalance: r,
		CostBps:   c.Strategy.CostBps,
	}
	return mc, mc.Validate()
}

// SimConfig converts the synthetic section into a generator configuration
func (c *Config) SimConfig() panel.SimConfig {
	return panel.SimConfig{
		Assets: c.Synthetic.Assets,
		Days:   c.Synthetic.Days,
		Seed:   c.Synthetic.Seed,
		Mu:     c.Synthetic.Mu,
		Sigma:  c.Synthetic.Sigma,
	}
}

// PriceRequest returns the request identifying the configured price panel
func (c *Config) PriceRequest() core.PriceRequest {
	return core.PriceRequest{
		Tickers: c.Data.Tickers,
		Start:   c.Data.Start,
		End:     c.Data.End,
	}
}

// Options converts the section into storage backend options
func (s StorageConfig) Options() storage.Options {
	return storage.Options{
		Type: s.Type,
		Path: s.Path,
		S3: storage.S3Config{
			Bucket:    s.S3.Bucket,
			Endpoint:  s.S3.Endpoint,
			Region:    s.S3.Region,
			AccessKey: s.S3.AccessKey,
			SecretKey: s.S3.SecretKey,
			Prefix:    s.S3.Prefix,
		},
	}
}

// Redacted returns a copy safe to persist, with credentials masked
func (c *Config) Redacted() *Config {
	out := *c
	out.Data.Tickers = append([]string(nil), c.Data.Tickers...)
	for _, s3 := range []*S3Config{&out.Data.Cache.S3, &out.Artifacts.Mirror.S3} {
		if s3.AccessKey != "" {
			s3.AccessKey = redacted
		}
		if s3.SecretKey != "" {
			s3.SecretKey = redacted
		}
	}

	out.Notifiers = make([]notifier.Config, len(c.Notifiers))
	for i, n := range c.Notifiers {
		params := make(map[string]any, len(n.Params))
		for k, v := range n.Params {
			if isSecretParam(k) {
				v = redacted
			}
			params[k] = v
		}
		out.Notifiers[i] = notifier.Config{Type: n.Type, Params: params}
	}
	return &out
}

const redacted = "***"

func isSecretParam(key string) bool {
	key = strings.ToLower(key)
	for _, marker := range []string{"token", "password", "secret", "headers"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Project == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("project name required"))
	}

	if _, err := c.Momentum(); err != nil {
		return err
	}

	if c.Metrics.PeriodsPerYear < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("periods_per_year must be positive, got %d", c.Metrics.PeriodsPerYear))
	}

	switch c.Data.Source {
	case SourceSynthetic:
		if c.Synthetic.Assets < 1 || c.Synthetic.Days < 1 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("synthetic n_assets and n_days must be positive, got %d and %d",
					c.Synthetic.Assets, c.Synthetic.Days))
		}
		if c.Synthetic.Sigma < 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("synthetic sigma cannot be negative, got %f", c.Synthetic.Sigma))
		}
	case SourceYahoo:
		if len(c.Data.Tickers) == 0 {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("tickers required when source is yahoo"))
		}
		start, end, err := c.PriceRequest().Range()
		if err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("data dates: %w", err))
		}
		if end.Before(start) {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("end date %s is before start date %s", c.Data.End, c.Data.Start))
		}
		if c.Data.MaxFill < 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("max_fill cannot be negative, got %d", c.Data.MaxFill))
		}
		if err := c.Data.Cache.validate("data.cache", false); err != nil {
			return err
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data source %q, use synthetic or yahoo", c.Data.Source))
	}

	if err := c.Artifacts.Mirror.validate("artifacts.mirror", true); err != nil {
		return err
	}

	for i, n := range c.Notifiers {
		switch n.Type {
		case NotifierWebhook, NotifierTelegram, NotifierEmail:
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("notifiers[%d].type %q unknown, use webhook, telegram or email", i, n.Type))
		}
	}
	return nil
}

func (s StorageConfig) validate(name string, optional bool) error {
	switch s.Type {
	case "":
		if optional {
			return nil
		}
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("%s.type required", name))
	case StorageLocalFS:
		if s.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("%s.path required when type is localfs", name))
		}
	case StorageS3:
		if s.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("%s.s3.bucket required when type is s3", name))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("%s.type %q unknown, use localfs or s3", name, s.Type))
	}
	return nil
}
