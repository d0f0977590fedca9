// internal/workers/question/generate-sql/handler.go
package generatesql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "djia-agent/internal/common/errors"
	"djia-agent/internal/common/genai"
	"djia-agent/internal/models"
	"djia-agent/internal/sqlgen"
)

const (
	TaskType = "generate-sql"
)

var (
	ErrSynthesisEmpty = errors.New("SYNTHESIS_EMPTY")
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
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

// execute synthesizes one SQL statement and normalizes it to PostgreSQL.
// Feedback from a previous failed execution is fed back into the prompt so
// the model can repair its own mistake.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	prompt := sqlgen.BuildPrompt(input.Question, input.Feedback, input.AnalysisHint)

	response, err := h.genai.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	sql := sqlgen.ExtractSQL(response)
	if sql == "" {
		return nil, fmt.Errorf("%w: no statement in model response", ErrSynthesisEmpty)
	}

	sql, warnings := sqlgen.Normalize(sql)

	h.logger.Info("SQL synthesized", map[string]interface{}{
		"hint":     input.AnalysisHint,
		"repairs":  len(warnings),
		"retrying": input.Feedback != "",
	})

	return &Output{
		SQL:      sql,
		Source:   models.SourceSynthesized,
		Warnings: warnings,
	}, nil
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
		return apperrors.NewLLMSynthesisFailedError(err)
	case errors.Is(err, ErrSynthesisEmpty):
		return apperrors.NewSynthesisEmptyError()
	}
	return err
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
