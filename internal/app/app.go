package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/dealwatch-backend/internal/alerts"
	"github.com/yungbote/dealwatch-backend/internal/data/aggregates"
	"github.com/yungbote/dealwatch-backend/internal/data/db"
	"github.com/yungbote/dealwatch-backend/internal/data/repos"
	domainagg "github.com/yungbote/dealwatch-backend/internal/domain/aggregates"
	"github.com/yungbote/dealwatch-backend/internal/filings"
	"github.com/yungbote/dealwatch-backend/internal/ingest"
	"github.com/yungbote/dealwatch-backend/internal/observability"
	"github.com/yungbote/dealwatch-backend/internal/platform/cache"
	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

type App struct {
	Log     *logger.Logger
	Cfg     Config
	DB      *gorm.DB
	Repos   repos.Set
	Metrics *observability.Metrics
	Deals   domainagg.DealIdentityAggregate

	pg           *db.PostgresService
	shutdownOtel func(context.Context) error
	closers      []func() error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	shutdown := observability.InitOTel(ctx, log, cfg.Otel)

	pg, err := db.NewPostgresService(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init store: %w", err)
	}
	theDB := pg.DB()
	if cfg.AutoMigrate {
		if err := db.AutoMigrateAll(theDB); err != nil {
			_ = pg.Close()
			log.Sync()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	metrics := observability.NewMetrics()
	reposet := repos.NewSet(theDB, log)
	dealsAgg := aggregates.NewDealIdentityAggregate(aggregates.DealIdentityDeps{
		BaseDeps: aggregates.BaseDeps{
			DB:    theDB,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Repos:        reposet,
		TrackedLeads: cfg.TrackedLeads,
	})

	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           theDB,
		Repos:        reposet,
		Metrics:      metrics,
		Deals:        dealsAgg,
		pg:           pg,
		shutdownOtel: shutdown,
	}, nil
}

// Migrate runs AutoMigrate regardless of DB_AUTO_MIGRATE.
func (a *App) Migrate() error {
	return db.AutoMigrateAll(a.DB)
}

// NewWorker wires the ingest worker with its cache, filings source and alert sinks.
func (a *App) NewWorker(ctx context.Context, onResult func(ingest.Result)) (*ingest.Worker, error) {
	seen, err := a.seenCache(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, seen.Close)

	var filingSource filings.Source = filings.Nop{}
	if path := strings.TrimSpace(a.Cfg.FilingsPath); path != "" {
		static, err := filings.LoadStatic(path)
		if err != nil {
			return nil, fmt.Errorf("load filings: %w", err)
		}
		a.Log.Info("Loaded filings", "path", path, "count", static.Len())
		filingSource = static
	}

	sinks := alerts.Fanout{alerts.NewLogSink(a.Log)}
	if addr := strings.TrimSpace(a.Cfg.Alerts.RedisAddr); addr != "" {
		rs, err := alerts.NewRedisSink(ctx, a.Log, addr, a.Cfg.Alerts.Channel)
		if err != nil {
			return nil, fmt.Errorf("init redis alert sink: %w", err)
		}
		a.closers = append(a.closers, rs.Close)
		sinks = append(sinks, rs)
	}

	return ingest.NewWorker(a.Cfg.Ingest, ingest.Deps{
		Resolver: a.Deals,
		Filings:  filingSource,
		Seen:     seen,
		Alerts:   sinks,
		Metrics:  a.Metrics,
		Log:      a.Log,
		OnResult: onResult,
	})
}

func (a *App) seenCache(ctx context.Context) (cache.Cache, error) {
	cc := cache.Config{Capacity: a.Cfg.Cache.Capacity, TTL: a.Cfg.Cache.TTL, Namespace: a.Cfg.Cache.Namespace}
	switch strings.ToLower(strings.TrimSpace(a.Cfg.Cache.Backend)) {
	case "", "memory":
		return cache.NewMemory(cc)
	case "redis":
		c, err := cache.NewRedis(ctx, a.Cfg.Cache.RedisAddr, cc)
		if err != nil {
			return nil, fmt.Errorf("init redis cache: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported SEEN_CACHE_BACKEND %q", a.Cfg.Cache.Backend)
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("store close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
