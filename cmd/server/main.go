// Command server wires the persistence engine and exposes its HTTP surface.
// Business logic lives in the internal services; main only builds the
// dependency graph and manages lifecycle.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"larder/internal/audit"
	"larder/internal/auth"
	"larder/internal/cache"
	"larder/internal/localstore"
	"larder/internal/migration"
	"larder/internal/platform/config"
	"larder/internal/platform/httpserver"
	"larder/internal/platform/logger"
	"larder/internal/platform/postgres"
	platformredis "larder/internal/platform/redis"
	"larder/internal/recipes"
	"larder/internal/remotestore"
	"larder/internal/retry"
	"larder/internal/shoppinglist"
	httptransport "larder/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)
	slog.SetDefault(log)

	local, err := localstore.NewDir(cfg.LocalDataDir)
	if err != nil {
		log.Error("failed to open local store", "error", err)
		os.Exit(1)
	}

	policy := retry.Policy{
		MaxAttempts:  cfg.RetryMaxAttempts,
		InitialDelay: cfg.RetryInitialDelay,
		Logger:       log,
	}

	// Remote store: Postgres when configured, otherwise an in-process stand-in
	// so development runs without a database.
	var (
		profileStore remotestore.ProfileStore
		pantryStore  remotestore.PantryStore
		recipeStore  remotestore.RecipeStore
		ratingStore  remotestore.RatingStore
		backupStore  remotestore.BackupStore
		listStore    remotestore.ShoppingListStore
		prober       remotestore.Prober
	)
	db, err := postgres.Open(cfg.PostgresURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		if err := postgres.Bootstrap(context.Background(), db); err != nil {
			log.Error("failed to bootstrap schema", "error", err)
			os.Exit(1)
		}
		pg := remotestore.NewPostgres(db)
		profileStore, pantryStore, recipeStore = pg.Profiles(), pg.Pantry(), pg.Recipes()
		ratingStore, backupStore, listStore = pg.Ratings(), pg.Backups(), pg.ShoppingLists()
		prober = pg
		log.Info("remote store: postgres")
	} else {
		mem := remotestore.NewMemory()
		profileStore, pantryStore, recipeStore = mem.Profiles(), mem.Pantry(), mem.Recipes()
		ratingStore, backupStore, listStore = mem.Ratings(), mem.Backups(), mem.ShoppingLists()
		prober = mem
		log.Warn("remote store: in-memory (POSTGRES_URL not set)")
	}

	// Read cache: Redis when configured, in-process otherwise.
	var readCache cache.Cache
	redisClient, err := platformredis.New(cfg.RedisURL, cfg.RedisConfig)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		readCache = cache.NewRedis(redisClient.Client, cfg.CacheTTL)
		defer redisClient.Close()
		log.Info("read cache: redis")
	} else {
		readCache = cache.NewMemory(cfg.CacheTTL)
	}

	// Audit: persisted by a background worker; optionally mirrored to Kafka.
	auditStore := audit.NewMemoryStore()
	auditWorker := audit.NewWorker(auditStore, log)
	var auditor audit.Publisher = auditWorker
	kafka, err := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	if err != nil {
		log.Error("failed to connect to kafka", "error", err)
		os.Exit(1)
	}
	if kafka != nil {
		auditor = kafka
		log.Info("audit events: kafka", "topic", cfg.KafkaTopic)
	}

	sessions := auth.NewSessions(cfg.JWTSigningKey)

	engine, err := migration.New(local, migration.Remote{
		Profiles: profileStore,
		Pantry:   pantryStore,
		Recipes:  recipeStore,
		Ratings:  ratingStore,
		Backups:  backupStore,
	}, policy, cfg.BackupKey,
		migration.WithLogger(log),
		migration.WithAuditor(auditor),
	)
	if err != nil {
		log.Error("failed to build migration engine", "error", err)
		os.Exit(1)
	}

	listService, err := shoppinglist.New(listStore, shoppinglist.NewLocalStore(local), sessions, policy,
		shoppinglist.WithLogger(log),
		shoppinglist.WithAuditor(auditor),
	)
	if err != nil {
		log.Error("failed to build shopping list service", "error", err)
		os.Exit(1)
	}

	recipeService, err := recipes.New(recipeStore, prober, readCache, policy, recipes.WithLogger(log))
	if err != nil {
		log.Error("failed to build recipe service", "error", err)
		os.Exit(1)
	}

	handler := httptransport.NewHandler(engine, listService, recipeService, log)
	router := httptransport.NewRouter(handler, sessions)
	srv := httpserver.New(cfg.Addr, router)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	go func() {
		if err := auditWorker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	log.Info("starting larder", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	stopWorker()
	if kafka != nil {
		if err := kafka.Close(ctx); err != nil {
			log.Error("kafka flush failed", "error", err)
		}
	}
}
