// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"storefront-workers/internal/catalog"
	"storefront-workers/internal/chat/contextbuilder"
	"storefront-workers/internal/chat/extraction"
	"storefront-workers/internal/chat/llm"
	"storefront-workers/internal/chat/orchestrator"
	"storefront-workers/internal/chat/personalization"
	"storefront-workers/internal/chathistory"
	"storefront-workers/internal/common/camunda"
	"storefront-workers/internal/common/config"
	"storefront-workers/internal/common/database"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/common/observability"
	"storefront-workers/internal/marketplace"
	"storefront-workers/internal/profile"

	aq "storefront-workers/internal/workers/chat/analyze-query"
	pum "storefront-workers/internal/workers/chat/process-user-message"
	uul "storefront-workers/internal/workers/personalization/update-user-learning"
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
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	tracing := observability.NewTracing(cfg.App.Name, cfg.App.JaegerURL)
	defer tracing.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      time.Duration(cfg.Camunda.Timeout) * time.Millisecond,
			RequestTimeout:         time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Build Domain Services ---
	profileStore := profile.NewStore(pg, log)
	historyStore := chathistory.NewStore(redis, time.Duration(cfg.Chat.SessionTTLMinutes)*time.Minute, log)
	catalogSearcher := catalog.NewSearcher(esClient, cfg.Database.Elasticsearch.ProductIndex, cfg.Chat.MaxCatalogResults, log)
	scraper := marketplace.NewScraper(cfg.Marketplace, log)
	dispatcher := llm.NewDispatcher(cfg.LLM, log)
	extractor := extraction.New(dispatcher, cfg.LLM.ExtractionModel, log)
	learner := personalization.NewUpdater(profileStore, cfg.Chat.MaxPreferenceCategories, log)
	promptBuilder := contextbuilder.New(cfg.Chat.HistoryWindow, cfg.Chat.PreferenceSummaryCount)

	conversation := orchestrator.New(orchestrator.Options{
		Catalog:           catalogSearcher,
		Marketplace:       scraper,
		Dispatcher:        dispatcher,
		Extractor:         extractor,
		Learner:           learner,
		Builder:           promptBuilder,
		LowStockThreshold: cfg.Chat.LowStockThreshold,
		Logger:            log,
	})

	if !dispatcher.IsConfigured() {
		zapLog.Warn("no LLM credential configured, conversations will use the templated path only")
	}

	// --- Register Workers ---
	var workers []*camunda.Worker

	if wcfg, ok := cfg.Workers[aq.TaskType]; ok && wcfg.Enabled {
		handler := aq.NewHandler(
			&aq.Config{
				Timeout: time.Duration(wcfg.Timeout) * time.Millisecond,
			},
			log,
		)
		workers = append(workers, startWorker(zeebeClient, aq.TaskType, wcfg, handler, zapLog))
	}

	if wcfg, ok := cfg.Workers[pum.TaskType]; ok && wcfg.Enabled {
		handler := pum.NewHandler(
			&pum.Config{
				Timeout:       time.Duration(wcfg.Timeout) * time.Millisecond,
				HistoryWindow: cfg.Chat.HistoryWindow,
			},
			conversation, profileStore, historyStore, log,
		)
		workers = append(workers, startWorker(zeebeClient, pum.TaskType, wcfg, handler, zapLog))
	}

	if wcfg, ok := cfg.Workers[uul.TaskType]; ok && wcfg.Enabled {
		handler := uul.NewHandler(
			&uul.Config{
				Timeout:       time.Duration(wcfg.Timeout) * time.Millisecond,
				MaxCategories: cfg.Chat.MaxPreferenceCategories,
			},
			learner, profileStore, log,
		)
		workers = append(workers, startWorker(zeebeClient, uul.TaskType, wcfg, handler, zapLog))
	}

	// --- Health & Metrics Server ---
	metricsAddr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			status := "ready"
			code := http.StatusOK
			if err := zeebeClient.HealthCheck(r.Context()); err != nil {
				status = "broker unreachable"
				code = http.StatusServiceUnavailable
			}
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{
				"status": status,
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("addr", metricsAddr))
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	for _, w := range workers {
		w.Close()
	}

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client *camunda.Client, taskType string, wcfg config.WorkerConfig, handler camunda.JobHandler, log *zap.Logger) *camunda.Worker {
	return camunda.NewWorker(
		client.GetClient(),
		taskType,
		wcfg.MaxJobsActive,
		time.Duration(wcfg.Timeout)*time.Millisecond,
		handler,
		log,
	)
}
