package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/baechuer/marketplace-auth/internal/application/auth"
	"github.com/baechuer/marketplace-auth/internal/application/credential"
	"github.com/baechuer/marketplace-auth/internal/config"
	"github.com/baechuer/marketplace-auth/internal/infrastructure/db/mongodb"
	"github.com/baechuer/marketplace-auth/internal/infrastructure/db/postgres"
	"github.com/baechuer/marketplace-auth/internal/infrastructure/email"
	"github.com/baechuer/marketplace-auth/internal/infrastructure/memory"
	"github.com/baechuer/marketplace-auth/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/marketplace-auth/internal/infrastructure/redis"
	"github.com/baechuer/marketplace-auth/internal/infrastructure/security"
	"github.com/baechuer/marketplace-auth/internal/logger"
	http_handlers "github.com/baechuer/marketplace-auth/internal/transport/http/handlers"
	"github.com/baechuer/marketplace-auth/internal/transport/http/middleware"
	"github.com/baechuer/marketplace-auth/internal/transport/http/response"
	"github.com/baechuer/marketplace-auth/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB    func(addr string, debug bool) (*sql.DB, error)
	Migrate  func(dsn string) error
	NewMongo func(uri string) (*mongo.Client, error)

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(url, exchange string) (*rabbitmq.Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)

	// Notifier, when set, replaces the NOTIFIER selection (tests read mail from a memory.Outbox).
	Notifier auth.Notifier
}

// userStore is what every datastore adapter provides.
type userStore interface {
	credential.UserRepo
	Ping(ctx context.Context) error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	checks := map[string]http_handlers.Pinger{}

	// 1) datastore
	users, closeStore, err := openStore(deps, cfg)
	if err != nil {
		return fail(err)
	}
	if closeStore != nil {
		cleanupFns = append(cleanupFns, closeStore)
	}
	checks["datastore"] = users

	// 2) security
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	codec := security.NewTokenCodec(security.CodecConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	logger.Logger.Info().Str("issuer", cfg.JWTIssuer).Msg("jwt codec initialized")

	// seed (dev only)
	if cfg.Env == "dev" && cfg.Store == "memory" {
		memory.SeedUsers(context.Background(), users, hasher)
	}

	// 3) redis profile cache (best-effort)
	var profiles auth.ProfileCache
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Ping(context.Background()); err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; profile cache disabled")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			profiles = redis.NewProfileCache(c, cfg.ProfileCacheTTL)
			checks["redis"] = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	// 4) notifier
	notifier := deps.Notifier
	if notifier == nil {
		n, closeFn, ping, err := openNotifier(deps, cfg)
		if err != nil {
			return fail(err)
		}
		notifier = n
		if closeFn != nil {
			cleanupFns = append(cleanupFns, closeFn)
		}
		if ping != nil {
			checks["rabbitmq"] = ping
		}
	}

	// 5) service
	creds := credential.NewStore(users, hasher, credential.Config{
		VerifyEmailTTL:   cfg.VerifyEmailTokenTTL,
		PasswordResetTTL: cfg.PasswordResetTokenTTL,
	})
	authSvc := auth.NewService(creds, codec, notifier, auth.Config{
		VerifyEmailBaseURL:   cfg.VerifyEmailBaseURL,
		PasswordResetBaseURL: cfg.PasswordResetBaseURL,
		AppName:              cfg.AppName,
	}).WithProfileCache(profiles)

	// 6) handlers + middleware
	secureCookies := cfg.IsProduction()

	authH := http_handlers.NewAuthHandler(authSvc, cfg.RefreshTokenTTL, secureCookies)
	dashH := http_handlers.NewDashboardHandler()
	healthH := http_handlers.NewHealthHandler(checks)

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health:    healthH,
		Auth:      authH,
		Dashboard: dashH,
		Global: []router.Middleware{
			middleware.RequestID,
			middleware.AccessLog,
			middleware.Metrics,
			middleware.SecurityHeaders(cfg.IsProduction()),
			middleware.BodyLimit(int64(cfg.MaxBodyBytes), response.WriteError),
		},
		AuthMW: middleware.Authenticate(authSvc, response.WriteError),
		CSRFMW: middleware.CSRFProtection(cfg.AllowedOrigins, response.WriteError),
		Guard: func(key string) router.Middleware {
			return middleware.Guard(key, response.WriteError)
		},
		Metrics: true,
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

func openStore(deps Deps, cfg *config.Config) (userStore, func(), error) {
	switch cfg.Store {
	case "memory":
		logger.Logger.Warn().Msg("using in-memory user store; data is lost on restart")
		return memory.NewUserRepo(), nil, nil

	case "postgres":
		if cfg.DBAutoMigrate && deps.Migrate != nil {
			if err := deps.Migrate(cfg.DBAddr); err != nil {
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewUserRepo(db), func() { _ = db.Close() }, nil

	case "mongo":
		client, err := deps.NewMongo(cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }

		repo := mongodb.NewUserRepo(client.Database(cfg.MongoDB))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return repo, closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func openNotifier(deps Deps, cfg *config.Config) (auth.Notifier, func(), http_handlers.Pinger, error) {
	lg := logger.Logger.With().Str("component", "notifier").Logger()

	switch cfg.Notifier {
	case "smtp":
		s := cfg.SMTP
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     s.Host,
			Port:     s.Port,
			Username: s.Username,
			Password: s.Password,
			From:     s.From,
			FromName: s.FromName,
			Timeout:  s.Timeout,
			Insecure: s.Insecure,
		}, lg), nil, nil, nil

	case "rabbitmq":
		pub, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			if cfg.Env == "dev" {
				lg.Warn().Err(err).Msg("rabbitmq unavailable; logging emails instead")
				return email.NewLogSender(lg, true), nil, nil, nil
			}
			return nil, nil, nil, err
		}
		return pub, func() { _ = pub.Close() }, pub, nil
	}

	// links are only printed outside production
	return email.NewLogSender(lg, !cfg.IsProduction()), nil, nil, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		Migrate:    postgres.MigrateUp,
		NewMongo:   config.NewMongo,
		NewRedis: func(addr, password string, db int) *redis.Client {
			return redis.New(addr, password, db)
		},
		NewPublisher: rabbitmq.NewPublisher,
		NewRouter:    router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
