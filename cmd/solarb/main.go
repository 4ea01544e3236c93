package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solarb/internal/application/port"
	"solarb/internal/application/service"
	"solarb/internal/application/usecase/monitor"
	"solarb/internal/domain/model"
	"solarb/internal/infrastructure/config"
	"solarb/internal/infrastructure/logger"
	"solarb/internal/infrastructure/source"
	"solarb/internal/infrastructure/storage/composite"
	"solarb/internal/infrastructure/storage/postgres"
	redisrepo "solarb/internal/infrastructure/storage/redis"
	"solarb/internal/infrastructure/storage/sqlite"
	"solarb/internal/interfaces/console"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Setup(false)
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pairs := make([]model.TokenPair, 0, len(cfg.Pairs))
	for _, p := range cfg.Pairs {
		pairs = append(pairs, model.TokenPair{
			BaseSymbol:   p.BaseSymbol,
			QuoteSymbol:  p.QuoteSymbol,
			BaseAddress:  p.BaseAddress,
			QuoteAddress: p.QuoteAddress,
		})
	}

	sources := buildSources(cfg)
	registry := service.NewSourceRegistry(sources, time.Duration(cfg.Monitor.FetchTimeoutSec)*time.Second)

	store := service.NewQuoteStore(service.StoreConfig{
		TTL:            cfg.CacheTTL(),
		HistoryCap:     cfg.Cache.HistoryCap,
		HistoryMaxAge:  time.Duration(cfg.Cache.HistoryMaxMin) * time.Minute,
		OpportunityCap: cfg.Cache.OpportunityCap,
	})

	fees := service.DefaultFeeConfig()
	if cfg.Fees.NativePriceUSD > 0 {
		fees.NativePriceUSD = cfg.Fees.NativePriceUSD
	}
	if cfg.Fees.VenueFeeBps > 0 {
		fees.VenueFeeBps = cfg.Fees.VenueFeeBps
	}
	if cfg.Fees.FailureRate > 0 {
		fees.FailureRate = cfg.Fees.FailureRate
	}
	if cfg.Fees.MEVPremium > 0 {
		fees.MEVPremium = cfg.Fees.MEVPremium
	}
	if cfg.Fees.WrappedMint != "" {
		fees.WrappedNativeMint = cfg.Fees.WrappedMint
	}

	engine := service.NewArbitrageEngine(service.EngineConfig{
		ProfitThresholdPercent: cfg.Engine.ProfitThresholdPercent,
		TradeSizeUSD:           cfg.Engine.TradeSizeUSD,
		MinConfidence:          cfg.Engine.MinConfidence,
		ReportWindow:           time.Duration(cfg.Engine.ReportWindowSec) * time.Second,
		Fees:                   fees,
		Confidence:             service.ConfidenceConfig{Reliability: cfg.Reliability()},
	}, console.NewTracker(cfg.App.Verbose))

	repo, err := buildRepo(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("storage init failed")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn().Err(err).Msg("storage close")
		}
	}()

	var ticks port.TickSource
	if cfg.Monitor.SlotTickMs > 0 {
		st := source.NewSlotTicker(time.Duration(cfg.Monitor.SlotTickMs) * time.Millisecond)
		defer st.Close()
		ticks = st
	}

	svc := monitor.NewService(monitor.ServiceDeps{
		Registry: registry,
		Store:    store,
		Engine:   engine,
		Repo:     repo,
		Ticks:    ticks,
		Pairs:    pairs,
		Config: monitor.Config{
			FullRefreshInterval:  time.Duration(cfg.Monitor.FullRefreshSec) * time.Second,
			StaleRefreshInterval: time.Duration(cfg.Monitor.StaleRefreshSec) * time.Second,
			HealthCheckInterval:  time.Duration(cfg.Monitor.HealthCheckSec) * time.Second,
			SweepInterval:        time.Duration(cfg.Cache.SweepSec) * time.Second,
			StaleThreshold:       time.Duration(cfg.Monitor.StaleSec) * time.Second,
		},
	})

	if err := svc.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("monitor start failed")
	}

	log.Info().
		Str("config", *configPath).
		Int("pairs", len(pairs)).
		Int("venues", len(sources)).
		Float64("profit_threshold", cfg.Engine.ProfitThresholdPercent).
		Float64("trade_size", cfg.Engine.TradeSizeUSD).
		Msg("solarb started")

	<-ctx.Done()
	svc.Stop()
}

func buildSources(cfg *config.Config) []port.PriceSource {
	out := make([]port.PriceSource, 0, len(cfg.Venues))
	for _, v := range cfg.Venues {
		switch v.Kind {
		case "ws":
			out = append(out, source.NewWS(source.WSConfig{
				Name:        v.Name,
				URL:         v.URL,
				Reliability: v.Reliability,
			}))
		default:
			out = append(out, source.NewSimulated(source.SimulatedConfig{
				Name:        v.Name,
				Interval:    time.Duration(v.UpdateMs) * time.Millisecond,
				FeeBps:      v.FeeBps,
				Reliability: v.Reliability,
				BasePrice:   v.BasePrice,
				Liquidity:   v.Liquidity,
				HasBook:     v.HasBook,
			}))
		}
	}
	return out
}

func buildRepo(cfg *config.Config) (port.Repository, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return sqlite.New(cfg.Storage.SQLitePath)
	case "postgres":
		return postgres.New(cfg.Storage.PostgresDSN)
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		return redisrepo.New(rdb, cfg.Storage.RedisPrefix, cfg.CacheTTL()), nil
	case "composite":
		var repos []port.Repository
		if cfg.Storage.SQLitePath != "" {
			r, err := sqlite.New(cfg.Storage.SQLitePath)
			if err != nil {
				return nil, err
			}
			repos = append(repos, r)
		}
		if cfg.Storage.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
			repos = append(repos, redisrepo.New(rdb, cfg.Storage.RedisPrefix, cfg.CacheTTL()))
		}
		return composite.New(repos...), nil
	default:
		return monitor.NewNoopRepo(), nil
	}
}
