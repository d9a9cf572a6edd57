// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"database/sql"
	"fmt"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/nutriplan/engine/internal/application/mealplan"
	"github.com/nutriplan/engine/internal/application/nutrition"
	"github.com/nutriplan/engine/internal/application/pricing"
	"github.com/nutriplan/engine/internal/application/recipe"
	"github.com/nutriplan/engine/internal/application/shopping"
	"github.com/nutriplan/engine/internal/infrastructure/cache"
	"github.com/nutriplan/engine/internal/infrastructure/config"
	"github.com/nutriplan/engine/internal/infrastructure/http/admin"
	"github.com/nutriplan/engine/internal/infrastructure/http/apiserver"
	"github.com/nutriplan/engine/internal/infrastructure/http/handlers"
	"github.com/nutriplan/engine/internal/infrastructure/http/middleware"
	"github.com/nutriplan/engine/internal/infrastructure/http/realtime"
	"github.com/nutriplan/engine/internal/infrastructure/monitoring"
	gormRepo "github.com/nutriplan/engine/internal/infrastructure/persistence/gorm"
	"github.com/nutriplan/engine/internal/infrastructure/persistence/memory"
	"github.com/nutriplan/engine/internal/infrastructure/persistence/postgres"
	redisRepo "github.com/nutriplan/engine/internal/infrastructure/persistence/redis"
	"github.com/nutriplan/engine/internal/infrastructure/persistence/sqlite"
	"github.com/nutriplan/engine/internal/infrastructure/pricefeed"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/internal/ports/outbound"
	"github.com/nutriplan/engine/pkg/healthcheck"
	"github.com/nutriplan/engine/pkg/logger"
	"github.com/nutriplan/engine/pkg/validation"
)

// ConfigPath is the config file to load; empty searches the default paths
type ConfigPath string

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	ObservabilityModule,
	DatabaseModule,
	CacheModule,

	// Repository modules
	RepositoryModule,

	// Service modules
	ServiceModule,

	// Event modules
	EventModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Options(
	fx.Provide(
		func(cfg *config.Config) (*zap.Logger, error) {
			return logger.New(logger.Config{
				Level:       cfg.App.LogLevel,
				Format:      cfg.App.LogFormat,
				Development: cfg.App.Debug,
			})
		},
	),
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		l := &fxevent.ZapLogger{Logger: log.Named("fx")}
		l.UseLogLevel(zap.DebugLevel)
		return l
	}),
)

// ObservabilityModule provides metrics and tracing
var ObservabilityModule = fx.Provide(
	monitoring.NewRegistry,
	monitoring.NewMetricsCollector,
	func(m *monitoring.MetricsCollector) outbound.EngineMetrics { return m },
	func(reg *prometheus.Registry) *middleware.Metrics { return middleware.NewMetrics(reg) },
	func(cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		return monitoring.NewTracingProvider(monitoring.NewTracingConfig(cfg.Monitoring, cfg.App), log)
	},
)

// NamedChecker is a health check contributed to the admin server
type NamedChecker struct {
	Name    string
	Checker healthcheck.Checker
}

// DatabaseResult is the opened store
type DatabaseResult struct {
	fx.Out

	DB     *gorm.DB
	SQLDB  *sql.DB
	Health NamedChecker `group:"health_checks"`
}

// DatabaseModule provides database connections
var DatabaseModule = fx.Provide(NewDatabase)

// NewDatabase opens SQLite or PostgreSQL depending on database.driver
func NewDatabase(lc fx.Lifecycle, cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) (DatabaseResult, error) {
	var (
		db    *gorm.DB
		sqlDB *sql.DB
	)

	switch cfg.Database.Driver {
	case "postgres":
		cm, err := postgres.NewConnectionManager(context.Background(), cfg.Database, log)
		if err != nil {
			return DatabaseResult{}, err
		}
		db, sqlDB = cm.GetDB(), cm.SQLDB()
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return cm.Close() }})

	default:
		logLevel := gormLogger.Warn
		if cfg.App.Debug {
			logLevel = gormLogger.Info
		}

		var err error
		db, err = sqlite.SetupDatabase(cfg.Database.SQLitePath, logLevel)
		if err != nil {
			return DatabaseResult{}, fmt.Errorf("failed to setup SQLite database: %w", err)
		}

		if cfg.Database.SeedData {
			if err := sqlite.SeedDatabase(db); err != nil {
				log.Warn("Failed to seed database", zap.Error(err))
			}
		}

		sqlDB, err = db.DB()
		if err != nil {
			return DatabaseResult{}, fmt.Errorf("failed to get database handle: %w", err)
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return sqlDB.Close() }})

		log.Info("Connected to SQLite database", zap.String("path", cfg.Database.SQLitePath))
	}

	if err := metrics.RegisterDBStats(sqlDB, cfg.Database.Driver); err != nil {
		log.Warn("Database pool metrics unavailable", zap.Error(err))
	}

	return DatabaseResult{
		DB:     db,
		SQLDB:  sqlDB,
		Health: NamedChecker{Name: "database", Checker: healthcheck.NewDatabaseChecker(sqlDB)},
	}, nil
}

// CacheResult is the selected cache backend
type CacheResult struct {
	fx.Out

	Cache  outbound.CacheRepository
	Health NamedChecker `group:"health_checks"`
}

// CacheModule provides caching
var CacheModule = fx.Provide(
	NewCache,
	func(repo outbound.CacheRepository, cfg *config.Config, metrics outbound.EngineMetrics, log *zap.Logger) outbound.PriceCache {
		return cache.NewPriceCache(repo, cfg.Cache.KeyPrefix, cfg.Pricing.CacheTTL, metrics, log)
	},
)

// NewCache selects the memory or Redis backend
func NewCache(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (CacheResult, error) {
	if cfg.Cache.Backend == "redis" {
		client, err := redisRepo.NewClient(context.Background(), cfg.Redis, log)
		if err != nil {
			return CacheResult{}, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})

		return CacheResult{
			Cache:  redisRepo.NewCacheRepository(client, log),
			Health: NamedChecker{Name: "redis", Checker: healthcheck.NewRedisChecker(client)},
		}, nil
	}

	repo := memory.NewCacheRepository(memory.Options{
		MaxEntries:      cfg.Cache.MaxEntries,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return repo.Close() }})
	log.Info("Using in-memory cache", zap.Int("max_entries", cfg.Cache.MaxEntries))

	return CacheResult{
		Cache: repo,
		Health: NamedChecker{Name: "cache", Checker: healthcheck.NewCustomChecker("cache",
			func(context.Context) (healthcheck.Status, string, interface{}) {
				return healthcheck.StatusHealthy, "", map[string]interface{}{"backend": "memory"}
			})},
	}, nil
}

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	gormRepo.NewMealPlanRepository,
	gormRepo.NewRecipeRepository,
	gormRepo.NewIngredientRepository,
	gormRepo.NewFoodLogRepository,
)

// PriceFeedResult is the optional external price feed
type PriceFeedResult struct {
	fx.Out

	Refresher outbound.PriceRefresher
	Health    NamedChecker `group:"health_checks"`
}

// NewPriceFeed returns a nil refresher when no endpoint is configured
func NewPriceFeed(cfg *config.Config, log *zap.Logger) (PriceFeedResult, error) {
	if cfg.Pricing.RefreshEndpoint == "" {
		return PriceFeedResult{}, nil
	}

	client, err := pricefeed.NewClient(cfg.Pricing.RefreshEndpoint, cfg.Pricing.RefreshTimeout, healthcheck.CircuitBreakerConfig{
		FailureThreshold: cfg.Pricing.BreakerFailureThreshold,
		Timeout:          cfg.Pricing.BreakerOpenTimeout,
	}, log)
	if err != nil {
		return PriceFeedResult{}, err
	}
	return PriceFeedResult{
		Refresher: client,
		Health:    NamedChecker{Name: "price_feed", Checker: client.Checker()},
	}, nil
}

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	validation.New,
	NewPriceFeed,

	recipe.NewResolver,
	recipe.NewRecipeService,
	func(s *recipe.RecipeService) inbound.RecipeNutritionService { return s },

	mealplan.NewSlotService,
	func(s *mealplan.SlotService) inbound.MealPlanService { return s },

	func(
		plans outbound.MealPlanRepository,
		logs outbound.FoodLogRepository,
		resolver *recipe.Resolver,
		metrics outbound.EngineMetrics,
		validator *validation.Validator,
		cfg *config.Config,
		log *zap.Logger,
	) *nutrition.Aggregator {
		return nutrition.NewAggregator(plans, logs, resolver, metrics, validator, log,
			nutrition.Config{ExcludeNoDataDays: cfg.Nutrition.ExcludeNoDataDays})
	},
	func(a *nutrition.Aggregator) inbound.NutritionService { return a },
	func(a *nutrition.Aggregator) inbound.FoodLogService { return a },

	func(
		prices outbound.PriceCache,
		catalog outbound.IngredientCatalog,
		refresher outbound.PriceRefresher,
		metrics outbound.EngineMetrics,
		cfg *config.Config,
		log *zap.Logger,
	) (*pricing.Service, error) {
		return pricing.NewService(prices, catalog, refresher, metrics, log, pricing.Config{
			Policy:            cfg.Pricing.Policy(),
			RefreshRatePerSec: cfg.Pricing.RefreshRatePerSec,
			RefreshBurst:      cfg.Pricing.RefreshBurst,
			RefreshQueueSize:  cfg.Pricing.RefreshQueueSize,
			RefreshTimeout:    cfg.Pricing.RefreshTimeout,
		})
	},
	func(s *pricing.Service) inbound.PricingService { return s },

	func(
		plans outbound.MealPlanRepository,
		resolver *recipe.Resolver,
		prices inbound.PricingService,
		metrics outbound.EngineMetrics,
		validator *validation.Validator,
		cfg *config.Config,
		log *zap.Logger,
	) inbound.ShoppingService {
		return shopping.NewBuilder(plans, resolver, prices, metrics, validator, log, shopping.Config{
			DefaultServings: cfg.Shopping.DefaultServings,
			SavingFactor:    cfg.Shopping.SavingFactor,
		})
	},
)

// EventModule provides event handling
var EventModule = fx.Options(
	fx.Provide(
		func(log *zap.Logger) *realtime.Hub {
			return realtime.NewHub(realtime.DefaultOptions(), log)
		},
		NewEventDispatcher,
		func(d *EventDispatcher) outbound.EventPublisher { return d },
	),
	fx.Invoke(RegisterEventPublishers),
)

// HealthParams collects every contributed health check
type HealthParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
	Checks []NamedChecker `group:"health_checks"`
}

// NewHealthCheck registers the contributed checks. Zero values come from
// optional components that are switched off.
func NewHealthCheck(p HealthParams) *healthcheck.HealthCheck {
	hc := healthcheck.New(p.Config.App.Version, p.Logger)
	if p.Config.Admin.CheckTimeout > 0 {
		hc.SetTimeout(p.Config.Admin.CheckTimeout)
	}
	for _, c := range p.Checks {
		if c.Checker == nil {
			continue
		}
		hc.Register(c.Name, c.Checker)
	}
	return hc
}

// HTTPModule provides HTTP servers and handlers
var HTTPModule = fx.Provide(
	NewHealthCheck,
	func(cfg *config.Config, metrics *middleware.Metrics, log *zap.Logger) *middleware.Middleware {
		return middleware.New(cfg.Server, metrics, log)
	},
	func(
		recipes inbound.RecipeNutritionService,
		plans inbound.MealPlanService,
		daily inbound.NutritionService,
		foodLogs inbound.FoodLogService,
		lists inbound.ShoppingService,
		prices inbound.PricingService,
		log *zap.Logger,
	) *handlers.APIHandlers {
		return handlers.NewAPIHandlers(handlers.Services{
			Recipes:   recipes,
			MealPlans: plans,
			Nutrition: daily,
			FoodLogs:  foodLogs,
			Shopping:  lists,
			Pricing:   prices,
		}, log)
	},
	func(cfg *config.Config, h *handlers.APIHandlers, hub *realtime.Hub, mw *middleware.Middleware, log *zap.Logger) *apiserver.APIServer {
		return apiserver.NewAPIServer(cfg.Server, h, hub, mw, log)
	},
	func(cfg *config.Config, health *healthcheck.HealthCheck, metrics *monitoring.MetricsCollector, log *zap.Logger) *admin.Server {
		// probes are noisy, so they skip request logging
		mw := middleware.New(cfg.Server, nil, log,
			cfg.Monitoring.HealthPath, cfg.Monitoring.ReadinessPath, cfg.Monitoring.MetricsPath, "/live")
		return admin.NewServer(cfg.Admin, cfg.Monitoring, health, metrics.Handler(), mw, log)
	},
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// LifecycleParams holds everything started and stopped with the app
type LifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	ConfigPath ConfigPath
	Config     *config.Config
	Logger     *zap.Logger
	API        *apiserver.APIServer
	Admin      *admin.Server
	Pricing    *pricing.Service
	Hub        *realtime.Hub
	Tracing    *monitoring.TracingProvider
}

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(p LifecycleParams) {
	cfg, log := p.Config, p.Logger

	serve := func(name, addr string, run func(net.Listener) error) error {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen for %s on %s: %w", name, addr, err)
		}
		go func() {
			if err := run(ln); err != nil {
				log.Error("Server stopped unexpectedly", zap.String("server", name), zap.Error(err))
				_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			}
		}()
		return nil
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting NutriPlan engine",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("database", cfg.Database.Driver),
				zap.String("cache", cfg.Cache.Backend),
			)

			if err := p.Pricing.Start(ctx); err != nil {
				return err
			}

			err := config.Watch(string(p.ConfigPath), log.Named("config"), func(next *config.Config) {
				if err := p.Pricing.UpdatePolicy(next.Pricing.Policy()); err != nil {
					log.Warn("Rejected reloaded pricing policy", zap.Error(err))
					return
				}
				log.Info("Pricing policy reloaded")
			})
			if err != nil {
				log.Warn("Configuration hot reload unavailable", zap.Error(err))
			}

			if err := serve("api", cfg.Server.Addr(), p.API.Serve); err != nil {
				return err
			}
			if cfg.Admin.Enabled {
				if err := serve("admin", cfg.Admin.Addr(), p.Admin.Serve); err != nil {
					return err
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down NutriPlan engine")

			if err := p.API.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown API server", zap.Error(err))
			}
			if cfg.Admin.Enabled {
				if err := p.Admin.Shutdown(ctx); err != nil {
					log.Error("Failed to shutdown admin server", zap.Error(err))
				}
			}

			p.Hub.Close()

			if err := p.Pricing.Stop(ctx); err != nil {
				log.Error("Failed to stop price refresh worker", zap.Error(err))
			}
			if err := p.Tracing.Shutdown(ctx); err != nil {
				log.Error("Failed to flush traces", zap.Error(err))
			}

			// Flush logs
			_ = log.Sync()

			return nil
		},
	})
}
