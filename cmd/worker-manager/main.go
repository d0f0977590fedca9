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

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"djia-agent/internal/catalog"
	"djia-agent/internal/common/camunda"
	"djia-agent/internal/common/config"
	"djia-agent/internal/common/database"
	apperrors "djia-agent/internal/common/errors"
	"djia-agent/internal/common/genai"
	"djia-agent/internal/common/logger"
	"djia-agent/internal/common/observability"
	"djia-agent/internal/nlp"
	"djia-agent/internal/sqlexec"
	"djia-agent/pkg/registry"

	cq "djia-agent/internal/workers/question/classify-question"
	ex "djia-agent/internal/workers/question/execute-sql"
	gs "djia-agent/internal/workers/question/generate-sql"
	mt "djia-agent/internal/workers/question/match-template"
	pq "djia-agent/internal/workers/question/plan-query"
	rc "djia-agent/internal/workers/question/render-chart"
	sa "djia-agent/internal/workers/question/summarize-answer"
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
			delay *= 2 // Exponential backoff
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
		camundaClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
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
		zapLog.Fatal("postgres failed after retries", zap.Error(apperrors.NewDatabaseConnectionFailedError(err)))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

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

	// --- Init GenAI client ---
	genaiClient := genai.NewHTTPClient(genai.Config{
		BaseURL:     cfg.APIs.GenAI.BaseURL,
		APIKey:      cfg.APIs.GenAI.APIKey,
		Timeout:     time.Duration(cfg.APIs.GenAI.Timeout) * time.Millisecond,
		MaxRetries:  cfg.APIs.GenAI.MaxRetries,
		MaxTokens:   cfg.APIs.GenAI.MaxTokens,
		Temperature: cfg.APIs.GenAI.Temperature,
	}, log)

	// --- Load statement catalog and company aliases ---
	cat, err := catalog.Load(cfg.Agent.TemplateCatalogPath)
	if err != nil {
		zapLog.Fatal("statement catalog load failed", zap.Error(err))
	}
	zapLog.Info("statement catalog loaded", zap.Int("statements", cat.Size()))

	aliases := nlp.NewAliasTable()
	if cfg.Agent.CompanyAliasCSV != "" {
		if err := aliases.LoadCSV(cfg.Agent.CompanyAliasCSV); err != nil {
			zapLog.Warn("company alias CSV load failed, using built-in aliases", zap.Error(err))
		}
	}

	// --- Validate the task registry against the handlers we register ---
	if cfg.Agent.RegistryPath != "" {
		reg, err := registry.LoadRegistry(cfg.Agent.RegistryPath)
		if err != nil {
			zapLog.Fatal("task registry load failed", zap.Error(err))
		}
		if err := registry.Validate(reg); err != nil {
			zapLog.Fatal("task registry invalid", zap.Error(apperrors.NewTemplateCatalogInvalidError(err.Error())))
		}
		zapLog.Info("task registry validated", zap.Int("activities", len(reg.Activities)))
	}

	matcher := catalog.NewMatcher(cat, aliases)
	var confirmer *catalog.Confirmer
	if cfg.Agent.UseLLMConfirmation {
		confirmer = catalog.NewConfirmer(genaiClient, cat)
	}
	executor := sqlexec.NewExecutor(pg.DB, log)

	// --- Register Question Workers (7) ---
	if cfg.Workers[cq.TaskType].Enabled {
		handler := cq.NewHandler(cq.LoadConfig(), genaiClient, &classifyLoggerAdapter{log})
		startWorker(zeebeClient, cq.TaskType, cfg.Workers[cq.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[pq.TaskType].Enabled {
		planCfg := pq.LoadConfig()
		planCfg.UseLLMPlan = cfg.Agent.UseLLMPlanner
		handler := pq.NewHandler(planCfg, genaiClient, &planLoggerAdapter{log})
		startWorker(zeebeClient, pq.TaskType, cfg.Workers[pq.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[mt.TaskType].Enabled {
		matchCfg := mt.LoadConfig()
		matchCfg.UseConfirmation = cfg.Agent.UseLLMConfirmation
		handler := mt.NewHandler(matchCfg, matcher, confirmer, aliases, &matchLoggerAdapter{log})
		startWorker(zeebeClient, mt.TaskType, cfg.Workers[mt.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[gs.TaskType].Enabled {
		handler := gs.NewHandler(gs.LoadConfig(), genaiClient, &generateLoggerAdapter{log})
		startWorker(zeebeClient, gs.TaskType, cfg.Workers[gs.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[ex.TaskType].Enabled {
		execCfg := ex.LoadConfig()
		if cfg.Agent.ResultCacheTTL > 0 {
			execCfg.ResultCacheTTL = time.Duration(cfg.Agent.ResultCacheTTL) * time.Second
		}
		handler := ex.NewHandler(execCfg, executor, redis, aliases, &executeLoggerAdapter{log})
		startWorker(zeebeClient, ex.TaskType, cfg.Workers[ex.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[rc.TaskType].Enabled {
		handler := rc.NewHandler(rc.LoadConfig(), genaiClient, &chartLoggerAdapter{log})
		startWorker(zeebeClient, rc.TaskType, cfg.Workers[rc.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[sa.TaskType].Enabled {
		handler := sa.NewHandler(sa.LoadConfig(), genaiClient, &summarizeLoggerAdapter{log})
		startWorker(zeebeClient, sa.TaskType, cfg.Workers[sa.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All question workers registered successfully")

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
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
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

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// Logger adapters for workers that have their own Logger interfaces
type classifyLoggerAdapter struct {
	logger.Logger
}

func (a *classifyLoggerAdapter) With(fields map[string]interface{}) cq.Logger {
	return &classifyLoggerAdapter{a.Logger.With(fields)}
}

type planLoggerAdapter struct {
	logger.Logger
}

func (a *planLoggerAdapter) With(fields map[string]interface{}) pq.Logger {
	return &planLoggerAdapter{a.Logger.With(fields)}
}

type matchLoggerAdapter struct {
	logger.Logger
}

func (a *matchLoggerAdapter) With(fields map[string]interface{}) mt.Logger {
	return &matchLoggerAdapter{a.Logger.With(fields)}
}

type generateLoggerAdapter struct {
	logger.Logger
}

func (a *generateLoggerAdapter) With(fields map[string]interface{}) gs.Logger {
	return &generateLoggerAdapter{a.Logger.With(fields)}
}

type executeLoggerAdapter struct {
	logger.Logger
}

func (a *executeLoggerAdapter) With(fields map[string]interface{}) ex.Logger {
	return &executeLoggerAdapter{a.Logger.With(fields)}
}

type chartLoggerAdapter struct {
	logger.Logger
}

func (a *chartLoggerAdapter) With(fields map[string]interface{}) rc.Logger {
	return &chartLoggerAdapter{a.Logger.With(fields)}
}

type summarizeLoggerAdapter struct {
	logger.Logger
}

func (a *summarizeLoggerAdapter) With(fields map[string]interface{}) sa.Logger {
	return &summarizeLoggerAdapter{a.Logger.With(fields)}
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
