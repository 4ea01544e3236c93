package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Pair struct {
	BaseSymbol   string `toml:"base_symbol"`
	QuoteSymbol  string `toml:"quote_symbol"`
	BaseAddress  string `toml:"base_address"`
	QuoteAddress string `toml:"quote_address"`
}

// Venue is one price source. Kind "simulated" needs only the tuning
// knobs; kind "ws" additionally needs a URL. Venue behavior is pure
// configuration, never a per-venue type.
type Venue struct {
	Name        string  `toml:"name"`
	Kind        string  `toml:"kind"` // "simulated" | "ws"
	URL         string  `toml:"url"`
	UpdateMs    int     `toml:"update_ms"`
	FeeBps      float64 `toml:"fee_bps"`
	Reliability float64 `toml:"reliability"`
	BasePrice   float64 `toml:"base_price"`
	Liquidity   float64 `toml:"liquidity"`
	HasBook     bool    `toml:"has_book"`
}

type Config struct {
	App struct {
		Verbose bool `toml:"verbose"`
	} `toml:"app"`

	Pairs []Pair `toml:"pairs"`

	Venues []Venue `toml:"venues"`

	Engine struct {
		ProfitThresholdPercent float64 `toml:"profit_threshold_percent"`
		TradeSizeUSD           float64 `toml:"trade_size_usd"`
		MinConfidence          float64 `toml:"min_confidence"`
		ReportWindowSec        int     `toml:"report_window_sec"`
	} `toml:"engine"`

	Fees struct {
		NativePriceUSD float64 `toml:"native_price_usd"`
		VenueFeeBps    float64 `toml:"venue_fee_bps"`
		FailureRate    float64 `toml:"failure_rate"`
		MEVPremium     float64 `toml:"mev_premium"`
		WrappedMint    string  `toml:"wrapped_mint"`
	} `toml:"fees"`

	Cache struct {
		TTLSec         int `toml:"ttl_sec"`
		HistoryCap     int `toml:"history_cap"`
		HistoryMaxMin  int `toml:"history_max_min"`
		OpportunityCap int `toml:"opportunity_cap"`
		SweepSec       int `toml:"sweep_sec"`
	} `toml:"cache"`

	Monitor struct {
		FullRefreshSec  int `toml:"full_refresh_sec"`
		StaleRefreshSec int `toml:"stale_refresh_sec"`
		HealthCheckSec  int `toml:"health_check_sec"`
		StaleSec        int `toml:"stale_sec"`
		FetchTimeoutSec int `toml:"fetch_timeout_sec"`
		SlotTickMs      int `toml:"slot_tick_ms"` // 0 disables the sync signal
	} `toml:"monitor"`

	Storage struct {
		Driver     string `toml:"driver"` // none | sqlite | postgres | redis | composite
		SQLitePath string `toml:"sqlite_path"`
		PostgresDSN string `toml:"postgres_dsn"`
		RedisAddr  string `toml:"redis_addr"`
		RedisPrefix string `toml:"redis_prefix"`
	} `toml:"storage"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Engine.ProfitThresholdPercent <= 0 {
		cfg.Engine.ProfitThresholdPercent = 0.5
	}
	if cfg.Engine.TradeSizeUSD <= 0 {
		cfg.Engine.TradeSizeUSD = 100
	}
	if cfg.Engine.ReportWindowSec <= 0 {
		cfg.Engine.ReportWindowSec = 30
	}
	if cfg.Cache.TTLSec <= 0 {
		cfg.Cache.TTLSec = 30
	}
	if cfg.Cache.HistoryCap <= 0 {
		cfg.Cache.HistoryCap = 100
	}
	if cfg.Cache.HistoryMaxMin <= 0 {
		cfg.Cache.HistoryMaxMin = 60
	}
	if cfg.Cache.OpportunityCap <= 0 {
		cfg.Cache.OpportunityCap = 100
	}
	if cfg.Cache.SweepSec <= 0 {
		cfg.Cache.SweepSec = 15
	}
	if cfg.Monitor.FullRefreshSec <= 0 {
		cfg.Monitor.FullRefreshSec = 30
	}
	if cfg.Monitor.StaleRefreshSec <= 0 {
		cfg.Monitor.StaleRefreshSec = 5
	}
	if cfg.Monitor.HealthCheckSec <= 0 {
		cfg.Monitor.HealthCheckSec = 60
	}
	if cfg.Monitor.StaleSec <= 0 {
		cfg.Monitor.StaleSec = 10
	}
	if cfg.Monitor.FetchTimeoutSec <= 0 {
		cfg.Monitor.FetchTimeoutSec = 5
	}
	if strings.TrimSpace(cfg.Storage.Driver) == "" {
		cfg.Storage.Driver = "none"
	}
	if cfg.Storage.RedisPrefix == "" {
		cfg.Storage.RedisPrefix = "solarb"
	}
	for i := range cfg.Venues {
		v := &cfg.Venues[i]
		if v.Kind == "" {
			v.Kind = "simulated"
		}
		if v.UpdateMs <= 0 {
			v.UpdateMs = 1000
		}
		if v.Reliability <= 0 || v.Reliability > 1 {
			v.Reliability = 0.95
		}
	}
}

func validate(cfg *Config) error {
	if len(cfg.Pairs) == 0 {
		return errors.New("pairs is empty")
	}
	seen := map[string]struct{}{}
	for _, p := range cfg.Pairs {
		if strings.TrimSpace(p.BaseAddress) == "" || strings.TrimSpace(p.QuoteAddress) == "" {
			return fmt.Errorf("pair %s/%s missing addresses", p.BaseSymbol, p.QuoteSymbol)
		}
		key := p.BaseAddress + "/" + p.QuoteAddress
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate pair %s/%s", p.BaseSymbol, p.QuoteSymbol)
		}
		seen[key] = struct{}{}
	}

	if len(cfg.Venues) < 2 {
		return errors.New("need at least 2 venues to arbitrage")
	}
	names := map[string]struct{}{}
	for _, v := range cfg.Venues {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return errors.New("venue with empty name")
		}
		if _, dup := names[name]; dup {
			return fmt.Errorf("duplicate venue name %q", name)
		}
		names[name] = struct{}{}
		switch v.Kind {
		case "simulated":
		case "ws":
			if strings.TrimSpace(v.URL) == "" {
				return fmt.Errorf("venue %q: ws kind needs url", name)
			}
		default:
			return fmt.Errorf("venue %q: unknown kind %q", name, v.Kind)
		}
	}

	switch cfg.Storage.Driver {
	case "none":
	case "sqlite":
		if strings.TrimSpace(cfg.Storage.SQLitePath) == "" {
			return errors.New("storage.sqlite_path empty but driver=sqlite")
		}
	case "redis":
		if strings.TrimSpace(cfg.Storage.RedisAddr) == "" {
			return errors.New("storage.redis_addr empty but driver=redis")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Storage.PostgresDSN) == "" {
			return errors.New("storage.postgres_dsn empty but driver=postgres")
		}
	case "composite":
		if strings.TrimSpace(cfg.Storage.SQLitePath) == "" && strings.TrimSpace(cfg.Storage.RedisAddr) == "" {
			return errors.New("storage.driver=composite needs sqlite_path or redis_addr")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", cfg.Storage.Driver)
	}
	return nil
}

// Reliability maps venue name to its configured reliability score.
func (c *Config) Reliability() map[string]float64 {
	out := make(map[string]float64, len(c.Venues))
	for _, v := range c.Venues {
		out[v.Name] = v.Reliability
	}
	return out
}

func (c *Config) CacheTTL() time.Duration { return time.Duration(c.Cache.TTLSec) * time.Second }
