package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lumeoai/lumeo/modules/auth"
	"github.com/lumeoai/lumeo/modules/billing"
	"github.com/lumeoai/lumeo/modules/studio"
	"github.com/lumeoai/lumeo/pkg/config"
	"github.com/lumeoai/lumeo/pkg/httpserver"
	"github.com/lumeoai/lumeo/pkg/identity"
	"github.com/lumeoai/lumeo/pkg/jwt"
	"github.com/lumeoai/lumeo/pkg/logger"
	"github.com/lumeoai/lumeo/pkg/mailer"
	"github.com/lumeoai/lumeo/pkg/mongo"
	"github.com/lumeoai/lumeo/pkg/mongostore"
	"github.com/lumeoai/lumeo/pkg/pg"
	"github.com/lumeoai/lumeo/pkg/pgstore"
	"github.com/lumeoai/lumeo/pkg/redis"
	"github.com/lumeoai/lumeo/pkg/redislock"
	"github.com/lumeoai/lumeo/pkg/requestid"
	"github.com/lumeoai/lumeo/pkg/storage"
	"github.com/lumeoai/lumeo/pkg/subscription"
	"github.com/lumeoai/lumeo/pkg/training"
)

type appConfig struct {
	Environment   string `env:"APP_ENV" envDefault:"development"`
	ServiceName   string `env:"APP_NAME" envDefault:"lumeo"`
	CatalogPath   string `env:"PLAN_CATALOG_PATH"`
	StoreDriver   string `env:"SUBSCRIPTION_STORE" envDefault:"memory"` // memory, postgres, mongo
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"lumeo"`
	RedisLock     bool   `env:"REDIS_LOCK_ENABLED" envDefault:"false"`
	RenewSchedule string `env:"RENEW_SCHEDULE" envDefault:"@every 1h"`
	JWTSigningKey string `env:"JWT_SIGNING_KEY,required"`
	PaddleEnabled bool   `env:"PADDLE_ENABLED" envDefault:"false"`
	EmailEnabled  bool   `env:"EMAIL_ENABLED" envDefault:"false"`
	SecureCookies bool   `env:"SECURE_COOKIES" envDefault:"true"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"local"` // local, s3
	StorageRoot   string `env:"STORAGE_ROOT" envDefault:"uploads"`
	StorageURL    string `env:"STORAGE_BASE_URL" envDefault:"/uploads/"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	_ = config.LoadEnv() // .env is optional; real deployments use the environment

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Environment, cfg.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()))
	logger.SetAsDefault(log)

	catalog, err := loadCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	store, healthchecks, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	svcOpts := []subscription.ServiceOption{subscription.WithLogger(log)}
	if cfg.RedisLock {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, subscription.WithLocker(redislock.New(client)))
		healthchecks = append(healthchecks, redis.Healthcheck(client))
	}

	billingProvider, err := buildBillingProvider(cfg, log)
	if err != nil {
		return err
	}

	svc := subscription.NewService(catalog, store, billingProvider, svcOpts...)

	renewer := subscription.NewRenewer(svc,
		subscription.WithRenewSchedule(cfg.RenewSchedule),
		subscription.WithRenewerLogger(log))

	tokens, err := jwt.NewFromString(cfg.JWTSigningKey)
	if err != nil {
		return err
	}

	var googleCfg identity.GoogleConfig
	if err := config.Load(&googleCfg); err != nil {
		return err
	}
	google, err := identity.NewGoogleProvider(googleCfg)
	if err != nil {
		return err
	}

	authModule := auth.NewModule(google, tokens,
		auth.WithSecureCookies(cfg.SecureCookies),
		auth.WithLogger(log))

	notifier, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}

	billingModule := billing.NewModule(svc, catalog, authModule.ResolveUser,
		billing.WithLogger(log),
		billing.WithNotifier(notifier, authModule.ResolveEmail))

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(requestid.Middleware)
	r.Use(chimw.Recoverer)
	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log, healthchecks...))
	r.Mount("/auth", authModule.Handle())
	r.Mount("/billing", billingModule.Handle())

	// Training requires a provider key; without one the studio surface
	// stays unmounted so the rest of the API keeps working.
	var falCfg training.FalConfig
	if err := config.Load(&falCfg); err != nil {
		return err
	}
	if falCfg.APIKey == "" {
		log.Warn("FAL_API_KEY is not set; model training endpoints are disabled")
	} else {
		store, err := buildObjectStorage(ctx, cfg)
		if err != nil {
			return err
		}
		provider, err := training.NewFalProvider(falCfg)
		if err != nil {
			return err
		}
		coordinator := training.NewCoordinator(svc, provider,
			training.WithCoordinatorLogger(log))
		studioModule := studio.NewModule(store, coordinator, svc, authModule.ResolveUser,
			studio.WithLogger(log))
		r.Mount("/studio", studioModule.Handle())
	}

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			if err := renewer.Start(); err != nil {
				l.Error("failed to start renewal job", slog.Any("error", err))
				return
			}
			l.Info("renewal job started", slog.String("schedule", cfg.RenewSchedule))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			renewer.Stop()
			l.Info("renewal job stopped")
		}))

	log.Info("starting server",
		slog.String("addr", httpCfg.Addr),
		slog.String("store", cfg.StoreDriver),
		slog.String("env", cfg.Environment))
	return srv.Run(ctx, r)
}

func loadCatalog(ctx context.Context, cfg appConfig) (*subscription.Catalog, error) {
	src := subscription.NewInMemSource(subscription.DefaultPlans()...)
	if cfg.CatalogPath != "" {
		src = subscription.NewFileSource(cfg.CatalogPath)
	}
	return subscription.NewCatalog(ctx, src)
}

func buildStore(ctx context.Context, cfg appConfig, log *slog.Logger) (subscription.Store, []func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case "postgres":
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, nil, err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
			return nil, nil, err
		}
		return pgstore.New(pool), []func(context.Context) error{pg.Healthcheck(pool)}, nil

	case "mongo":
		var mongoCfg mongo.Config
		if err := config.Load(&mongoCfg); err != nil {
			return nil, nil, err
		}
		db, err := mongo.NewWithDatabase(ctx, mongoCfg, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		store := mongostore.New(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		return store, []func(context.Context) error{mongo.Healthcheck(db.Client())}, nil

	case "memory":
		log.Warn("using the in-memory subscription store; records do not survive restarts")
		return subscription.NewMemoryStore(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown subscription store driver %q", cfg.StoreDriver)
	}
}

func buildObjectStorage(ctx context.Context, cfg appConfig) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case "s3":
		var s3Cfg storage.S3Config
		if err := config.Load(&s3Cfg); err != nil {
			return nil, err
		}
		return storage.NewS3Storage(ctx, s3Cfg)
	case "local":
		return storage.NewLocalStorage(cfg.StorageRoot, cfg.StorageURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func buildBillingProvider(cfg appConfig, log *slog.Logger) (subscription.BillingProvider, error) {
	if !cfg.PaddleEnabled {
		log.Warn("paddle is disabled; payment confirmations are not verified")
		return subscription.NewNoopBillingProvider(), nil
	}

	var paddleCfg subscription.PaddleConfig
	if err := config.Load(&paddleCfg); err != nil {
		return nil, err
	}
	return subscription.NewPaddleProvider(paddleCfg)
}

func buildNotifier(cfg appConfig, log *slog.Logger) (*mailer.Notifier, error) {
	sender := mailer.NewLogSender(log)
	if cfg.EmailEnabled {
		var mailCfg mailer.Config
		if err := config.Load(&mailCfg); err != nil {
			return nil, err
		}
		var err error
		sender, err = mailer.NewPostmarkSender(mailCfg)
		if err != nil {
			return nil, err
		}
	}
	return mailer.NewNotifier(sender, mailer.WithNotifierLogger(log)), nil
}
