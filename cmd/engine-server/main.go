// cmd/engine-server/main.go
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"supportbot-engine/internal/botconfig"
	"supportbot-engine/internal/common/aws"
	"supportbot-engine/internal/common/config"
	"supportbot-engine/internal/common/database"
	commonhttp "supportbot-engine/internal/common/http"
	"supportbot-engine/internal/common/logger"
	"supportbot-engine/internal/common/observability"
	"supportbot-engine/internal/engine"
	"supportbot-engine/internal/engine/action"
	"supportbot-engine/internal/engine/audit"
	"supportbot-engine/internal/engine/handoff"
	"supportbot-engine/internal/engine/respcache"
	"supportbot-engine/internal/engine/session"
	"supportbot-engine/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting dialogue engine server...",
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	catalog, err := botconfig.Load(cfg.Engine.CatalogPath)
	if err != nil {
		zapLog.Fatal("catalog load failed", zap.Error(err), zap.String("path", cfg.Engine.CatalogPath))
	}
	zapLog.Info("Catalog loaded",
		zap.String("version", catalog.Version),
		zap.Int("intents", len(catalog.Intents)),
	)

	opts := engine.Options{
		Observability:      obs,
		CachePriorityFloor: cfg.Engine.CachePriorityFloor,
		Rand:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	// --- Response cache backend ---
	var redisClient *database.RedisClient
	if cfg.Cache.Backend == "redis" {
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Fatal("redis init failed", zap.Error(err))
		}
		defer redisClient.Close()

		err = retryWithBackoff(func() error {
			return redisClient.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis unreachable", zap.Error(err))
		}

		ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
		opts.Cache = respcache.NewRedisCache(redisClient.Client, ttl, log)
		zapLog.Info("Using Redis response cache", zap.String("address", cfg.Database.Redis.Address))
	} else {
		opts.Cache = respcache.NewMemoryCache(time.Duration(cfg.Cache.TTLSeconds) * time.Second)
	}

	// --- Handoff notifier (SES / SNS) ---
	var emailSender handoff.EmailSender
	if cfg.Integrations.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("SES client init failed", zap.Error(err))
		}
		emailSender = sesClient
	}
	var smsPublisher handoff.SMSPublisher
	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("SNS client init failed", zap.Error(err))
		}
		smsPublisher = snsClient
	}
	if emailSender != nil || smsPublisher != nil {
		opts.Notifier = handoff.NewNotifier(emailSender, smsPublisher, handoff.Config{
			FromEmail: cfg.Integrations.AWS.SES.FromEmail,
			TeamEmail: cfg.Integrations.AWS.SES.TeamEmail,
			TeamPhone: cfg.Integrations.AWS.SNS.TeamPhone,
		}, log)
	}

	// --- Escalation audit indexer ---
	if cfg.Database.Elasticsearch.Enabled {
		esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch init failed", zap.Error(err))
		}
		err = retryWithBackoff(func() error {
			return esClient.Ping()
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch unreachable", zap.Error(err))
		}
		opts.Auditor = audit.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.AuditIndex, log)
	}

	// --- Action dispatcher ---
	dispatcher := action.NewDispatcher(log)
	sessions := session.NewStore()
	opts.Dispatcher = dispatcher
	opts.Sessions = sessions
	svc := engine.NewService(catalog, log, opts)

	apiClient := commonhttp.NewClient(time.Duration(cfg.Integrations.APITimeout) * time.Millisecond)
	dispatcher.Register(action.KindCollectInfo, action.NewCollectInfoHandler(sessions))
	if cfg.Integrations.APIBaseURL != "" {
		dispatcher.Register(action.KindAPICall, action.NewAPICallHandler(cfg.Integrations.APIBaseURL, apiClient))
	}
	if cfg.Database.Postgres.Host != "" {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			zapLog.Fatal("postgres init failed", zap.Error(err))
		}
		defer pg.Close()

		err = retryWithBackoff(func() error {
			return pg.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres unreachable", zap.Error(err))
		}

		dispatcher.Register(action.KindDatabaseQuery, action.NewDatabaseQueryHandler(pg.DB, map[string]action.QuerySpec{
			"log_order_lookup": {
				SQL:  "INSERT INTO order_lookups (session_key, order_code, looked_up_at) VALUES ($1, $2, NOW())",
				Args: []string{"sessionKey", "orderId"},
			},
			"record_cancellation": {
				SQL:  "INSERT INTO cancellation_requests (session_key, order_code, requested_at) VALUES ($1, $2, NOW())",
				Args: []string{"sessionKey", "orderId"},
			},
		}))
	}
	if opts.Notifier != nil {
		dispatcher.Register(action.KindNotifyTeam, action.NewNotifyTeamHandler(opts.Notifier))
	}

	// --- SIGHUP reloads the catalog without a restart ---
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			newCatalog, err := botconfig.Load(cfg.Engine.CatalogPath)
			if err != nil {
				zapLog.Error("catalog reload failed, keeping current", zap.Error(err))
				continue
			}
			if err := svc.Reload(newCatalog); err != nil {
				zapLog.Error("catalog reload rejected", zap.Error(err))
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.New(svc, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
