// internal/workers/question/classify-question/handler.go
package classifyquestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "djia-agent/internal/common/errors"
	"djia-agent/internal/common/genai"
)

const (
	TaskType = "classify-question"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	genai  genai.Client
	errors *apperrors.ErrorHandler
	logger Logger
}

func NewHandler(config *Config, client genai.Client, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config: config,
		genai:  client,
		errors: apperrors.NewErrorHandler(l),
		logger: l,
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

const classifyPrompt = `You are a question classifier for a financial data system.

The system answers two kinds of questions:
1. SQL-RELATED: questions needing concrete data from the database (stock prices, volume, figures, comparisons, charts).
   Examples: "What was the price of Apple on 2024-01-15?", "Plot the volume", "Compare prices of AAPL and MSFT", "Average closing price in 2024".
2. OTHER: questions that need no SQL (general knowledge, explanations, definitions).
   Examples: "What is DJIA?", "How does the stock market work?", "What is a dividend?".

QUESTION: %s

TASK: decide whether this question needs the SQL database.

RULES:
- Answer SQL for prices, volume, concrete figures, numeric comparisons, data charts, date ranges or specific tickers.
- Answer OTHER for concepts, definitions, explanations, general knowledge.

ANSWER ONLY: SQL or OTHER`

// execute classifies with the model and falls back to SQL-related when the
// model is unavailable or returns something unusable. Failing open keeps
// data questions answerable even during model outages.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Question) == "" {
		return &Output{IsSQLRelated: true, Method: "default"}, nil
	}

	if !h.config.UseLLM || h.genai == nil {
		return &Output{IsSQLRelated: true, Method: "default"}, nil
	}

	answer, err := h.genai.Generate(ctx, fmt.Sprintf(classifyPrompt, input.Question))
	if err != nil {
		h.logger.Warn("classification model unavailable, defaulting to SQL", map[string]interface{}{
			"error": err.Error(),
		})
		return &Output{IsSQLRelated: true, Method: "fallback"}, nil
	}

	result := strings.ToUpper(strings.TrimSpace(answer))
	isSQL := strings.Contains(result, "SQL")

	h.logger.Info("question classified", map[string]interface{}{
		"isSqlRelated": isSQL,
	})
	return &Output{IsSQLRelated: isSQL, Method: "llm"}, nil
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
	h.errors.HandleJobError(context.Background(), client, job, wrapError(err))
}

func wrapError(err error) error {
	switch {
	case errors.Is(err, genai.ErrTimeout):
		return apperrors.NewLLMTimeoutError()
	case errors.Is(err, genai.ErrGenerationFailed):
		return apperrors.NewClassificationFailedError(err)
	}
	return err
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
