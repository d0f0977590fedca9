// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"djia-agent/internal/catalog"
	"djia-agent/internal/common/config"
	"djia-agent/internal/common/database"
	"djia-agent/internal/common/genai"
	"djia-agent/internal/common/logger"
	"djia-agent/internal/models"
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

// Logger adapters to bridge logger.Logger to worker-specific Logger interfaces
type classifyLoggerAdapter struct{ logger.Logger }

func (a *classifyLoggerAdapter) With(fields map[string]interface{}) cq.Logger {
	return &classifyLoggerAdapter{a.Logger.With(fields)}
}

type planLoggerAdapter struct{ logger.Logger }

func (a *planLoggerAdapter) With(fields map[string]interface{}) pq.Logger {
	return &planLoggerAdapter{a.Logger.With(fields)}
}

type matchLoggerAdapter struct{ logger.Logger }

func (a *matchLoggerAdapter) With(fields map[string]interface{}) mt.Logger {
	return &matchLoggerAdapter{a.Logger.With(fields)}
}

type generateLoggerAdapter struct{ logger.Logger }

func (a *generateLoggerAdapter) With(fields map[string]interface{}) gs.Logger {
	return &generateLoggerAdapter{a.Logger.With(fields)}
}

type executeLoggerAdapter struct{ logger.Logger }

func (a *executeLoggerAdapter) With(fields map[string]interface{}) ex.Logger {
	return &executeLoggerAdapter{a.Logger.With(fields)}
}

type chartLoggerAdapter struct{ logger.Logger }

func (a *chartLoggerAdapter) With(fields map[string]interface{}) rc.Logger {
	return &chartLoggerAdapter{a.Logger.With(fields)}
}

type summarizeLoggerAdapter struct{ logger.Logger }

func (a *summarizeLoggerAdapter) With(fields map[string]interface{}) sa.Logger {
	return &summarizeLoggerAdapter{a.Logger.With(fields)}
}

type pipelineLoggerAdapter struct{ logger.Logger }

func (a *pipelineLoggerAdapter) With(fields map[string]interface{}) pipeline.Logger {
	return &pipelineLoggerAdapter{a.Logger.With(fields)}
}

func newRealPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()

	if testing.Short() || os.Getenv("E2E_TESTS") != "true" {
		t.Skip("set E2E_TESTS=true to run against real services")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })
	require.NoError(t, pg.Ping(ctx))

	redis, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	t.Cleanup(func() { redis.Close() })
	require.NoError(t, redis.Ping(ctx))

	genaiClient := genai.NewHTTPClient(genai.Config{
		BaseURL:     cfg.APIs.GenAI.BaseURL,
		APIKey:      cfg.APIs.GenAI.APIKey,
		Timeout:     time.Duration(cfg.APIs.GenAI.Timeout) * time.Millisecond,
		MaxRetries:  cfg.APIs.GenAI.MaxRetries,
		MaxTokens:   cfg.APIs.GenAI.MaxTokens,
		Temperature: cfg.APIs.GenAI.Temperature,
	}, log)

	cat, err := catalog.Load(cfg.Agent.TemplateCatalogPath)
	require.NoError(t, err)

	aliases := nlp.NewAliasTable()
	if cfg.Agent.CompanyAliasCSV != "" {
		require.NoError(t, aliases.LoadCSV(cfg.Agent.CompanyAliasCSV))
	}

	matchCfg := mt.LoadConfig()
	matchCfg.UseConfirmation = cfg.Agent.UseLLMConfirmation
	var confirmer *catalog.Confirmer
	if cfg.Agent.UseLLMConfirmation {
		confirmer = catalog.NewConfirmer(genaiClient, cat)
	}

	return pipeline.New(
		pipeline.LoadConfig(),
		cq.NewHandler(cq.LoadConfig(), genaiClient, &classifyLoggerAdapter{log}),
		pq.NewHandler(pq.LoadConfig(), genaiClient, &planLoggerAdapter{log}),
		mt.NewHandler(matchCfg, catalog.NewMatcher(cat, aliases), confirmer, aliases, &matchLoggerAdapter{log}),
		gs.NewHandler(gs.LoadConfig(), genaiClient, &generateLoggerAdapter{log}),
		ex.NewHandler(ex.LoadConfig(), sqlexec.NewExecutor(pg.DB, log), redis, aliases, &executeLoggerAdapter{log}),
		rc.NewHandler(rc.LoadConfig(), genaiClient, &chartLoggerAdapter{log}),
		sa.NewHandler(sa.LoadConfig(), genaiClient, &summarizeLoggerAdapter{log}),
		nil,
		&pipelineLoggerAdapter{log},
	)
}

func TestTemplateQuestionAgainstRealDatabase(t *testing.T) {
	resolver := newRealPipeline(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := resolver.Resolve(ctx, "e2e-template",
		"What was the closing price of Apple on January 15, 2024?")

	require.NoError(t, err)
	assert.Equal(t, models.SourceTemplate, result.Source)
	assert.Empty(t, result.Error)
	assert.NotEmpty(t, result.Answer)
	require.NotNil(t, result.Result)
	assert.NotEmpty(t, result.Result.Rows)
}

func TestSynthesizedQuestionAgainstRealDatabase(t *testing.T) {
	resolver := newRealPipeline(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := resolver.Resolve(ctx, "e2e-synthesis",
		"What was the 30 day moving average of Microsoft's closing price in March 2024?")

	require.NoError(t, err)
	if result.Error != "" {
		t.Logf("synthesis did not converge: %s", result.Error)
		return
	}
	assert.Equal(t, models.SourceSynthesized, result.Source)
	assert.NotEmpty(t, result.Answer)
}

func TestGeneralQuestion(t *testing.T) {
	resolver := newRealPipeline(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := resolver.Resolve(ctx, "e2e-general", "What does DJIA stand for?")

	require.NoError(t, err)
	assert.Equal(t, models.SourceNone, result.Source)
	assert.NotEmpty(t, result.Answer)
}

func TestChartQuestionAgainstRealDatabase(t *testing.T) {
	resolver := newRealPipeline(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := resolver.Resolve(ctx, "e2e-chart",
		"Plot the closing price of Apple during January 2024")

	require.NoError(t, err)
	if result.Error != "" {
		t.Logf("chart pipeline did not converge: %s", result.Error)
		return
	}
	if result.ChartError != "" {
		t.Logf("chart generation reported: %s", result.ChartError)
		return
	}
	assert.Contains(t, result.ChartCode, "figure")
}
