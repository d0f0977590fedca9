// internal/workers/question/summarize-answer/handler.go
package summarizeanswer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "djia-agent/internal/common/errors"
	"djia-agent/internal/common/genai"
	"djia-agent/internal/models"
	"djia-agent/pkg/registry"
)

const (
	TaskType = "summarize-answer"
)

const summarySystemPrompt = "You are a financial analysis assistant. Read the question and the SQL query result. " +
	"Always answer in the language of the question. " +
	"Keep the answer short and clear, round numbers where sensible, and name the exact company and time period. " +
	"If the data is empty, say that no matching data was found. " +
	"Describe negative numbers in words, for example '-62%' becomes 'fell by 62%' and '-74.76 USD' becomes 'dropped by 74.76 USD'. " +
	"For positive numbers use 'rose by ...' or 'was ...' depending on context. " +
	"Never repeat a minus sign in the answer, phrase it as an increase or decrease instead."

const generalSystemPrompt = "You are a helpful assistant. " +
	"Answer the question accurately, clearly and concisely. Answer in the language of the question."

// outputSchema guards the variables written back to the process instance.
var outputSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"answer"},
	"properties": map[string]interface{}{
		"answer": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
	},
}

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

	if err := registry.ValidateVariables(outputSchema, map[string]interface{}{"answer": output.Answer}); err != nil {
		h.failJob(client, job, apperrors.NewSummaryFailedError(fmt.Errorf("answer failed output validation: %w", err)))
		return
	}

	h.completeJob(client, job, output)
}

// execute turns the pipeline outcome into a natural language answer.
// Three cases: a general question goes straight to the model, a failed
// query reports its error, and a query result gets summarized with a
// data-derived fallback when the model is unavailable.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if !input.IsSQLRelated {
		return &Output{Answer: h.answerGeneral(ctx, input.Question)}, nil
	}

	if input.Error != "" {
		return &Output{Answer: fmt.Sprintf("The query could not be executed: %s", input.Error)}, nil
	}

	return &Output{Answer: h.summarize(ctx, input)}, nil
}

func (h *Handler) answerGeneral(ctx context.Context, question string) string {
	prompt := fmt.Sprintf("%s\n\nQuestion: %s\n\nAnswer:", generalSystemPrompt, question)

	answer, err := h.genai.Generate(ctx, prompt)
	if err != nil {
		h.logger.Warn("general answer failed", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Sprintf("Sorry, I could not answer this question. Error: %s", err.Error())
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "Sorry, I could not produce an answer for this question."
	}
	return answer
}

func (h *Handler) summarize(ctx context.Context, input *Input) string {
	// a job can arrive without a result variable at all
	result := input.Result
	if result == nil {
		result = &models.ResultSet{}
	}

	rows := result.Rows
	if len(rows) > h.config.PreviewMaxRows {
		rows = rows[:h.config.PreviewMaxRows]
	}
	preview, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return DeriveAnswer(result)
	}

	sqlText := input.DisplaySQL
	if sqlText == "" {
		sqlText = "N/A"
	}

	prompt := fmt.Sprintf(
		"%s\n\nQuestion: %s\nExecuted SQL: %s\nResult row count: %d\nData (at most %d rows):\n%s\n\nAnswer:",
		summarySystemPrompt, input.Question, sqlText, len(rows), h.config.PreviewMaxRows, preview,
	)

	answer, err := h.genai.Generate(ctx, prompt)
	if err != nil {
		fallback := DeriveAnswer(result)
		h.logger.Warn("summary generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		// a rendered chart already tells the story, keep the answer clean
		if input.HasChart {
			return fallback
		}
		return fmt.Sprintf("%s (summary unavailable: %s)", fallback, err.Error())
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return DeriveAnswer(result)
	}
	return answer
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
