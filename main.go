package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/cache"
	"social-publisher/infrastructure/clients/platform"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/persistence"
	"social-publisher/infrastructure/pubsub"
	"social-publisher/infrastructure/realtime"
	"social-publisher/infrastructure/servicebus"
	"social-publisher/infrastructure/storage"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/interfaces/middleware"
	"social-publisher/server"
	"social-publisher/usecase"

	"golang.org/x/sync/errgroup"
)

const (
	vendorPostgres = "postgres"
	vendorMSSQL    = "mssql"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Env files never override the process environment.
	configuration.LoadEnvFromFile("config.env", ".env")
	configuration.Reload()
	cfg := configuration.C

	db, vendor, err := InitiateDatabase(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(2)
	}
	defer db.Close()

	videoDB, err := persistence.NewVideoDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Video catalog initialization failed")
		os.Exit(2)
	}

	var credentialRepository repository.ICredential
	var postRepository repository.IPost
	var userRepository repository.IUser
	if vendor == vendorMSSQL {
		credentialRepository = persistence.NewCredentialRepositoryMSSQL(db)
		postRepository = persistence.NewPostRepositoryMSSQL(db)
		userRepository = persistence.NewUserRepositoryMSSQL(db)
	} else {
		credentialRepository = persistence.NewCredentialRepository(db)
		postRepository = persistence.NewPostRepository(db)
		userRepository = persistence.NewUserRepository(db)
	}
	videoRepository := persistence.NewVideoRepository(videoDB)

	postAudit := InitiatePostAudit(ctx, cfg.Database.Mongo)

	checks := map[string]httpHandler.Check{
		"database": db.PingContext,
		"videos": func(ctx context.Context) error {
			sqlDB, err := videoDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var stateStore repository.IStateStore = cache.NewMemoryStateStore()
	if cfg.RedisClient.Host == "" {
		logger.GetLogger().Warn("Redis not configured - OAuth states kept in memory (single instance only)")
	} else if redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", cfg.RedisClient.Host, cfg.RedisClient.Port),
		cfg.RedisClient.Username,
		cfg.RedisClient.Password,
	); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - OAuth states kept in memory (single instance only)")
	} else {
		defer redisClient.Close()
		stateStore = cache.NewRedisStateStore(redisClient)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		logger.GetLogger().Info("Redis client initialized successfully.")
	}

	var sinks []realtime.Sink
	if cfg.Pubsub.ProjectID != "" {
		pubSubClient, err := pubsub.NewPubSub(ctx, cfg.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("PubSub not available - continuing without post events on PubSub")
		} else {
			defer pubSubClient.Close()
			if publisher := pubsub.NewPostEventPublisher(pubSubClient, cfg.Pubsub.Topic); publisher != nil {
				defer publisher.Stop()
				sinks = append(sinks, publisher)
			}
		}
	}
	azServiceBusClient, err := servicebus.NewServiceBus(ctx, cfg.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus features")
	} else {
		defer azServiceBusClient.Close(context.Background())
		if sender := servicebus.NewPostEventSender(azServiceBusClient, cfg.ServiceBus.Queue); sender != nil {
			sinks = append(sinks, sender)
		}
	}

	videoStorage, closeStorage := InitiateStorage(ctx, cfg.Storage)
	defer closeStorage()

	registry := platform.NewDefaultRegistry(platformClients(), platform.UploadConfig{
		ChunkSize:       cfg.Upload.ChunkSizeBytes,
		MaxRetries:      cfg.Upload.MaxRetries,
		MaxFileSize:     cfg.Upload.MaxFileSizeBytes,
		RetriableStatus: cfg.Upload.RetriableStatusCodes,
		RequestTimeout:  cfg.Upload.RequestTimeout(),
	}, platform.Options{})

	postHub := realtime.NewPostHub()
	fanout := realtime.NewFanout(postHub, sinks...)

	accountUsecase := usecase.NewAccountUsecase(credentialRepository, registry)
	oauthUsecase := usecase.NewOAuthUsecase(registry, stateStore, credentialRepository, cfg.OAuth.StateTTL(), cfg.OAuth.ExchangeTimeout())
	publishUsecase := usecase.NewPublishUsecase(
		postRepository,
		credentialRepository,
		videoRepository,
		videoStorage,
		postAudit,
		registry,
		cfg.Publish.Timeout(),
		cfg.Upload.MaxRetries,
	).WithBroadcaster(fanout.Broadcast)

	rateLimit := middleware.NewRateLimit(cfg.App.RateLimit, time.Minute)
	router := server.InitiateRouter(
		httpHandler.NewHealthHandler(checks),
		httpHandler.NewSocialAccountHandler(accountUsecase),
		httpHandler.NewSocialAuthHandler(oauthUsecase, cfg.OAuth.FrontendRedirectURL),
		httpHandler.NewSocialPostHandler(publishUsecase),
		postHub,
		userRepository,
		rateLimit,
		cfg.App,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rateLimit.Cleanup(ctx.Done())
		return nil
	})

	g.Go(func() error {
		return RunScheduler(ctx, publishUsecase, cfg.Publish.SchedulerInterval(), cfg.Publish.SchedulerBatchSize)
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.GetLogger().WithFields(map[string]interface{}{"port": cfg.App.Port, "tls": cfg.App.TLSEnabled, "db": vendor}).Info("Starting application")
	g.Go(func() error {
		var err error
		if cfg.App.TLSEnabled && cfg.App.TLSCertFile != "" && cfg.App.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.App.TLSCertFile, cfg.App.TLSKeyFile)
		} else {
			if cfg.App.TLSEnabled {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			}
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.GetLogger().Info("Application shutdown requested")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase opens the credential/post store. SQL Server is used in
// production or with DB_VENDOR=mssql, PostgreSQL otherwise.
func InitiateDatabase(ctx context.Context) (*sql.DB, string, error) {
	env := os.Getenv("ENV")
	if os.Getenv("DB_VENDOR") == vendorMSSQL || env == "production" || env == "prod" {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			return nil, "", fmt.Errorf("connect mssql: %w", err)
		}
		if err := persistence.EnsureSocialSchemaMSSQL(db); err != nil {
			db.Close()
			return nil, "", fmt.Errorf("ensure mssql schema: %w", err)
		}
		return db, vendorMSSQL, nil
	}

	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		return nil, "", fmt.Errorf("connect postgres: %w", err)
	}
	if err := persistence.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("migrate postgres: %w", err)
	}
	return db, vendorPostgres, nil
}

// InitiatePostAudit returns a Mongo backed audit log, or a no-op one when
// Mongo is not reachable.
func InitiatePostAudit(ctx context.Context, cfg configuration.Db) repository.IPostAudit {
	if cfg.Host == "" {
		logger.GetLogger().Warn("MongoDB not configured - continuing without post audit")
		return persistence.NewPostAuditRepository(nil, "")
	}
	client, err := persistence.NewMongoDb(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx, nil)
		cancel()
	}
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without post audit")
		return persistence.NewPostAuditRepository(nil, "")
	}
	return persistence.NewPostAuditRepository(client, cfg.Name)
}

// InitiateStorage enables s3:// and gs:// video locations when configured.
func InitiateStorage(ctx context.Context, cfg configuration.Storage) (*storage.Resolver, func()) {
	var opts []storage.Option
	closeFn := func() {}
	if cfg.S3.AccessKey != "" || cfg.S3.Endpoint != "" {
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("S3 not available - s3:// videos disabled")
		} else {
			opts = append(opts, storage.WithS3(client))
		}
	}
	if cfg.GCS.Enabled {
		opener, err := storage.NewGCSOpener(ctx)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("GCS not available - gs:// videos disabled")
		} else {
			opts = append(opts, storage.WithGCS(opener.Open))
			closeFn = func() { _ = opener.Close() }
		}
	}
	return storage.NewResolver(cfg.UploadDir, cfg.CacheDir, opts...), closeFn
}

func platformClients() map[model.Platform]platform.ClientConfig {
	clients := make(map[model.Platform]platform.ClientConfig, len(model.AllPlatforms))
	for _, p := range model.AllPlatforms {
		c := configuration.GetPlatformOAuthConfig(string(p))
		clients[p] = platform.ClientConfig{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Scopes:       c.Scopes,
		}
		logger.GetLogger().WithField("platform", p).WithField("configured", c.Configured()).Info("Loaded OAuth client")
	}
	return clients
}

// RunScheduler dispatches due scheduled posts until ctx is done.
func RunScheduler(ctx context.Context, uc usecase.IPublishUsecase, interval time.Duration, batch int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := uc.DispatchScheduled(ctx, batch)
			if err != nil {
				logger.GetLogger().WithField("error", err).Error("Error while dispatching scheduled posts")
				continue
			}
			if n > 0 {
				logger.GetLogger().WithField("dispatched", n).Info("Scheduled posts dispatched")
			}
		}
	}
}
