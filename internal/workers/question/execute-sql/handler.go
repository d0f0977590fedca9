// internal/workers/question/execute-sql/handler.go
package executesql

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"djia-agent/internal/common/database"
	apperrors "djia-agent/internal/common/errors"
	"djia-agent/internal/common/metrics"
	"djia-agent/internal/models"
	"djia-agent/internal/nlp"
	"djia-agent/internal/sqlexec"
)

const (
	TaskType = "execute-sql"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config   *Config
	executor *sqlexec.Executor
	cache    *database.RedisClient
	aliases  *nlp.AliasTable
	errors   *apperrors.ErrorHandler
	logger   Logger
}

// NewHandler builds the execution worker. cache may be nil, in which case
// results are never cached.
func NewHandler(config *Config, executor *sqlexec.Executor, cache *database.RedisClient, aliases *nlp.AliasTable, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:   config,
		executor: executor,
		cache:    cache,
		aliases:  aliases,
		errors:   apperrors.NewErrorHandler(l),
		logger:   l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// execute binds entities into the statement and runs it. Statement failures
// are soft: the output carries the error plus feedback for the next
// synthesis attempt, and the job still completes.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.SQL == "" {
		return &Output{
			Error:    "no SQL statement to execute",
			Feedback: "no SQL statement to execute",
		}, nil
	}

	params := sqlexec.BuildParams(input.Question, input.Ticker, input.SQL, h.aliases)

	if cached := h.cacheLookup(ctx, input, params); cached != nil {
		return cached, nil
	}

	start := time.Now()
	result, display, err := h.executor.Execute(ctx, input.SQL, params)
	metrics.SQLExecutionDuration.WithLabelValues(string(input.Source)).Observe(time.Since(start).Seconds())

	if err != nil {
		stdErr := apperrors.NewSQLExecutionFailedError(input.SQL, err)
		h.logger.Warn("statement failed", map[string]interface{}{
			"source":    string(input.Source),
			"error":     err.Error(),
			"errorCode": string(stdErr.Code),
		})
		return &Output{
			Result:     &models.ResultSet{},
			DisplaySQL: display,
			Bindings:   params,
			Error:      err.Error(),
			Feedback:   stdErr.Details,
		}, nil
	}

	output := &Output{
		Result:     result,
		DisplaySQL: display,
		Bindings:   params,
	}

	h.cacheStore(ctx, input, params, output)

	h.logger.Info("statement executed", map[string]interface{}{
		"source": string(input.Source),
		"rows":   len(result.Rows),
	})
	return output, nil
}

// Only template statements are cached. Synthesized SQL varies per model
// response, so a cache entry for it would almost never be hit again.
func (h *Handler) cacheKey(input *Input, params models.EntityBindings) string {
	blob, _ := json.Marshal(params)
	sum := sha256.Sum256(append([]byte(input.SQL), blob...))
	return fmt.Sprintf("sqlresult:%x", sum)
}

func (h *Handler) cacheLookup(ctx context.Context, input *Input, params models.EntityBindings) *Output {
	if h.cache == nil || input.Source != models.SourceTemplate {
		return nil
	}

	raw, err := h.cache.Get(ctx, h.cacheKey(input, params))
	if err != nil {
		metrics.ResultCacheHits.WithLabelValues("miss").Inc()
		return nil
	}

	var result models.ResultSet
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		metrics.ResultCacheHits.WithLabelValues("miss").Inc()
		return nil
	}

	metrics.ResultCacheHits.WithLabelValues("hit").Inc()
	return &Output{
		Result:     &result,
		DisplaySQL: sqlexec.DisplaySQL(input.SQL, params),
		Bindings:   params,
	}
}

func (h *Handler) cacheStore(ctx context.Context, input *Input, params models.EntityBindings, output *Output) {
	if h.cache == nil || input.Source != models.SourceTemplate {
		return
	}

	blob, err := json.Marshal(output.Result)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, h.cacheKey(input, params), string(blob), h.config.ResultCacheTTL); err != nil {
		h.logger.Warn("result cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// failJob routes the error through the shared handler, which maps it onto
// the standard taxonomy and decides between engine retry and BPMN throw.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	h.errors.HandleJobError(context.Background(), client, job, err)
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
