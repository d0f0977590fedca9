// cmd/djia-agent/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"djia-agent/internal/catalog"
	"djia-agent/internal/common/config"
	"djia-agent/internal/common/database"
	"djia-agent/internal/common/genai"
	"djia-agent/internal/common/logger"
	"djia-agent/internal/common/observability"
	"djia-agent/internal/nlp"
	"djia-agent/internal/pipeline"
	"djia-agent/internal/sqlexec"

	cq "djia-agent/internal/workers/question/classify-question"
	ex "djia-agent/internal/workers/question/execute-sql"
	gs "djia-agent/internal/workers/question/generate-sql"
	mt "djia-agent/internal/workers/question/match-template"
	pq "djia-agent/internal/workers/question/plan-query"
	rc "djia-agent/internal/workers/question/render-chart"
	sa "djia-agent/internal/workers/question/summarize-answer"
)

type questionRequest struct {
	Question string `json:"question"`
}

func main() {
	question := flag.String("q", "", "answer a single question and exit instead of serving HTTP")
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting agent...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("djia-agent")
	defer obs.Shutdown()

	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres ping failed", zap.Error(err))
	}

	redis, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis connection failed", zap.Error(err))
	}
	defer redis.Close()
	if err := redis.Ping(ctx); err != nil {
		zapLog.Warn("redis unavailable, result caching disabled", zap.Error(err))
		redis = nil
	}

	genaiClient := genai.NewHTTPClient(genai.Config{
		BaseURL:     cfg.APIs.GenAI.BaseURL,
		APIKey:      cfg.APIs.GenAI.APIKey,
		Timeout:     time.Duration(cfg.APIs.GenAI.Timeout) * time.Millisecond,
		MaxRetries:  cfg.APIs.GenAI.MaxRetries,
		MaxTokens:   cfg.APIs.GenAI.MaxTokens,
		Temperature: cfg.APIs.GenAI.Temperature,
	}, log)

	cat, err := catalog.Load(cfg.Agent.TemplateCatalogPath)
	if err != nil {
		zapLog.Fatal("statement catalog load failed", zap.Error(err))
	}

	aliases := nlp.NewAliasTable()
	if cfg.Agent.CompanyAliasCSV != "" {
		if err := aliases.LoadCSV(cfg.Agent.CompanyAliasCSV); err != nil {
			zapLog.Warn("company alias CSV load failed, using built-in aliases", zap.Error(err))
		}
	}

	matcher := catalog.NewMatcher(cat, aliases)
	var confirmer *catalog.Confirmer
	if cfg.Agent.UseLLMConfirmation {
		confirmer = catalog.NewConfirmer(genaiClient, cat)
	}

	matchCfg := mt.LoadConfig()
	matchCfg.UseConfirmation = cfg.Agent.UseLLMConfirmation
	planCfg := pq.LoadConfig()
	planCfg.UseLLMPlan = cfg.Agent.UseLLMPlanner
	execCfg := ex.LoadConfig()
	if cfg.Agent.ResultCacheTTL > 0 {
		execCfg.ResultCacheTTL = time.Duration(cfg.Agent.ResultCacheTTL) * time.Second
	}
	pipeCfg := pipeline.LoadConfig()
	if cfg.Agent.MaxAttempts > 0 {
		pipeCfg.MaxSynthesisAttempts = cfg.Agent.MaxAttempts
	}

	resolver := pipeline.New(
		pipeCfg,
		cq.NewHandler(cq.LoadConfig(), genaiClient, &classifyLoggerAdapter{log}),
		pq.NewHandler(planCfg, genaiClient, &planLoggerAdapter{log}),
		mt.NewHandler(matchCfg, matcher, confirmer, aliases, &matchLoggerAdapter{log}),
		gs.NewHandler(gs.LoadConfig(), genaiClient, &generateLoggerAdapter{log}),
		ex.NewHandler(execCfg, sqlexec.NewExecutor(pg.DB, log), redis, aliases, &executeLoggerAdapter{log}),
		rc.NewHandler(rc.LoadConfig(), genaiClient, &chartLoggerAdapter{log}),
		sa.NewHandler(sa.LoadConfig(), genaiClient, &summarizeLoggerAdapter{log}),
		nil,
		&pipelineLoggerAdapter{log},
	)

	if *question != "" {
		result, err := resolver.Resolve(ctx, uuid.NewString(), *question)
		if err != nil {
			zapLog.Fatal("resolve failed", zap.Error(err))
		}
		fmt.Println(result.Answer)
		if result.DisplaySQL != "" {
			fmt.Printf("\nSQL: %s\n", result.DisplaySQL)
		}
		if !result.Result.Empty() {
			fmt.Printf("Rows: %d\n", len(result.Result.Rows))
		}
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/question", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req questionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
			http.Error(w, "body must be {\"question\": \"...\"}", http.StatusBadRequest)
			return
		}

		result, err := resolver.Resolve(r.Context(), uuid.NewString(), req.Question)
		if err != nil {
			zapLog.Error("resolve failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	})

	server := &http.Server{
		Addr:    ":8081",
		Handler: mux,
	}

	go func() {
		zapLog.Info("Agent listening on :8081")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Agent stopped gracefully")
}

// Logger adapters for packages with their own Logger interfaces
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

type pipelineLoggerAdapter struct {
	logger.Logger
}

func (a *pipelineLoggerAdapter) With(fields map[string]interface{}) pipeline.Logger {
	return &pipelineLoggerAdapter{a.Logger.With(fields)}
}
