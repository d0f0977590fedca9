// internal/workers/question/render-chart/handler.go
package renderchart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "djia-agent/internal/common/errors"
	"djia-agent/internal/common/genai"
)

const (
	TaskType = "render-chart"
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

// execute asks the model for Plotly code over a preview of the result.
// A chart that cannot be produced is reported through ChartError, never as
// a job failure.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Result.Empty() {
		return &Output{ChartError: "no data available to chart"}, nil
	}

	if missing := missingColumns(input.Result.Columns, requiredColumns(input.ChartType)); len(missing) > 0 {
		h.logger.Warn("result lacks preferred chart columns", map[string]interface{}{
			"chartType": input.ChartType,
			"missing":   strings.Join(missing, ","),
		})
	}

	prompt := buildChartPrompt(input.Question, input.ChartType, input.Result, h.config.PreviewMaxRows)

	response, err := h.genai.Generate(ctx, prompt)
	if err != nil {
		stdErr := apperrors.NewChartRenderFailedError(err)
		h.logger.Warn("chart code generation failed", map[string]interface{}{
			"error":     err.Error(),
			"errorCode": string(stdErr.Code),
		})
		return &Output{ChartError: err.Error()}, nil
	}

	code := extractChartCode(response)
	if code == "" || !strings.Contains(code, "figure") {
		return &Output{ChartError: "model returned no usable chart code"}, nil
	}

	h.logger.Info("chart code generated", map[string]interface{}{
		"chartType": input.ChartType,
		"codeBytes": len(code),
	})
	return &Output{ChartCode: code}, nil
}

func missingColumns(have, want []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, c := range have {
		set[strings.ToLower(c)] = struct{}{}
	}
	var missing []string
	for _, c := range want {
		if _, ok := set[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
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
