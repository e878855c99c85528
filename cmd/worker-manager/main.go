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

	"pipeline-composer/internal/common/camunda"
	"pipeline-composer/internal/common/config"
	"pipeline-composer/internal/common/database"
	"pipeline-composer/internal/common/logger"
	"pipeline-composer/internal/common/observability"
	"pipeline-composer/internal/composer"
	"pipeline-composer/internal/definition"
	"pipeline-composer/internal/history"
	"pipeline-composer/internal/invoke"
	"pipeline-composer/internal/notify"
	"pipeline-composer/internal/pipeline"
	"pipeline-composer/internal/registry"
	"pipeline-composer/internal/runstore"

	cw "pipeline-composer/internal/workers/composition/compose-workflow"
	ep "pipeline-composer/internal/workers/pipeline/execute-pipeline"
	id "pipeline-composer/internal/workers/pipeline/ingest-documents"
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

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
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

	// --- Load Activity Registry & Workflow Definitions ---
	reg := registry.New(log)
	if err := reg.InitFromFile(cfg.Registry.Path); err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	zapLog.Info("Activity registry loaded", zap.Int("activities", reg.Len()))

	store := definition.NewStore(cfg.Pipeline.GeneratedDir, log)
	if err := store.LoadDir(cfg.Pipeline.DefinitionsDir, cfg.Pipeline.GeneratedDir); err != nil {
		zapLog.Fatal("workflow definitions load failed", zap.Error(err))
	}
	zapLog.Info("Workflow definitions loaded", zap.Strings("workflows", store.Names()))

	// --- Wire Pipeline Execution ---
	dispatcher := invoke.NewHTTPDispatcher(cfg.Services, config.GetDuration(cfg.Camunda.RequestTimeout))
	invoker := invoke.NewRetryingInvoker(dispatcher, log)
	executor := pipeline.NewExecutor(reg, store, invoker, cfg.Pipeline.DefaultCollection, log)

	comp := composer.New(reg, store, log)

	runs := runstore.New(redis.Client, ep.LoadConfig().RunTTL, log)
	historyRepo := history.NewRepository(pg.DB, log)
	runIndexer := history.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.RunIndex, log)

	notifier, err := notify.New(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notifier init failed", zap.Error(err))
	}

	// --- Register Workers ---
	var workers []*camunda.CamundaWorker

	if wcfg := config.GetWorkerConfig(cfg, ep.TaskType); wcfg.Enabled {
		handler := ep.NewHandler(
			&ep.Config{
				Timeout: config.GetDuration(wcfg.Timeout),
				RunTTL:  ep.LoadConfig().RunTTL,
			},
			executor, runs, historyRepo, runIndexer, notifier, log,
		)
		w := camunda.NewWorker(camundaClient.GetClient(), ep.TaskType, wcfg.MaxJobsActive, handler, zapLog)
		w.Start()
		workers = append(workers, w)
	}

	if wcfg := config.GetWorkerConfig(cfg, id.TaskType); wcfg.Enabled {
		handler := id.NewHandler(
			&id.Config{
				Timeout:    config.GetDuration(wcfg.Timeout),
				Definition: cfg.Pipeline.IngestDefinition,
			},
			executor, log,
		)
		w := camunda.NewWorker(camundaClient.GetClient(), id.TaskType, wcfg.MaxJobsActive, handler, zapLog)
		w.Start()
		workers = append(workers, w)
	}

	if wcfg := config.GetWorkerConfig(cfg, cw.TaskType); wcfg.Enabled {
		handler := cw.NewHandler(
			&cw.Config{
				Timeout: config.GetDuration(wcfg.Timeout),
			},
			comp, log,
		)
		w := camunda.NewWorker(camundaClient.GetClient(), cw.TaskType, wcfg.MaxJobsActive, handler, zapLog)
		w.Start()
		workers = append(workers, w)
	}

	zapLog.Info("All workers registered successfully", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
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
			if !reg.Initialized() || !store.Initialized() {
				status = "not ready"
				code = http.StatusServiceUnavailable
			}
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{
				"status": status,
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
