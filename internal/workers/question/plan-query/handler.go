// internal/workers/question/plan-query/handler.go
package planquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "djia-agent/internal/common/errors"
	"djia-agent/internal/common/genai"
	"djia-agent/internal/models"
	"djia-agent/internal/nlp"
	"djia-agent/internal/sqlgen"
)

const (
	TaskType = "plan-query"
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

var chartTriggerRe = regexp.MustCompile(`\bplot\b`)

var comparisonKeywords = []string{
	"compare", "vs", "versus", "higher", "lower", "which company",
}

var aggregationKeywords = []string{
	"average", "total", "sum", "median", "mean", "max", "min",
	"highest", "lowest",
}

var statisticalKeywords = []string{
	"correlation", "volatility", "standard deviation", "beta", "sharpe ratio",
	"drawdown", "moving average",
}

var timeSeriesPatterns = []*regexp.Regexp{
	regexp.MustCompile(`over time`),
	regexp.MustCompile(`from .* to`),
	regexp.MustCompile(`\bduring\b`),
	regexp.MustCompile(`\bbetween\b`),
}

// DetectComplexity analyzes the question shape. A question is multi step
// when it is statistical, spans multiple companies, or combines comparison
// with aggregation.
func DetectComplexity(question string) (*models.QueryComplexity, bool, string) {
	q := nlp.NormalizeText(question)

	c := &models.QueryComplexity{}
	needsChart := false
	chartType := ""

	if chartTriggerRe.MatchString(q) {
		needsChart = true
		switch {
		case strings.Contains(q, "candlestick") || strings.Contains(q, "ohlc"):
			chartType = "candlestick"
		case strings.Contains(q, "volume"):
			chartType = "volume"
		case strings.Contains(q, "compare") || strings.Contains(q, "comparison"):
			chartType = "comparison"
		default:
			chartType = "line"
		}
	}

	for _, kw := range comparisonKeywords {
		if strings.Contains(q, kw) {
			c.IsComparison = true
			break
		}
	}
	for _, kw := range aggregationKeywords {
		if strings.Contains(q, kw) {
			c.IsAggregation = true
			break
		}
	}
	for _, kw := range statisticalKeywords {
		if strings.Contains(q, kw) {
			c.IsStatistical = true
			break
		}
	}
	for _, re := range timeSeriesPatterns {
		if re.MatchString(q) {
			c.IsTimeSeries = true
			break
		}
	}
	if nlp.IsAllCompanies(question) {
		c.MultipleCompanies = true
	}

	c.IsMultiStep = c.IsStatistical || c.MultipleCompanies ||
		(c.IsComparison && c.IsAggregation)

	return c, needsChart, chartType
}

const planPrompt = `You are a financial data analyst. Break the question into concrete execution steps.

Rules:
- Split the question into small steps with a clear goal each.
- Return JSON with the structure:
  {"steps": [{"step_number": 1, "description": "...", "sql_needed": true, "chart_needed": false}]}
- Return ONLY JSON, no explanation.

Question: %s

Detected shape:
- Multi-step: %t
- Needs chart: %t
- Comparison: %t
- Aggregation: %t
- Statistical: %t

Create the execution plan:`

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	complexity, needsChart, chartType := DetectComplexity(input.Question)
	hint := sqlgen.DetectAnalysisHint(input.Question)

	output := &Output{
		Complexity:   complexity,
		NeedsChart:   needsChart,
		ChartType:    chartType,
		AnalysisHint: hint,
		Plan:         []models.PlanStep{},
	}

	if complexity.IsMultiStep {
		output.Plan = h.buildPlan(ctx, input.Question, complexity, needsChart)
	}

	h.logger.Info("question planned", map[string]interface{}{
		"multiStep":  complexity.IsMultiStep,
		"needsChart": needsChart,
		"chartType":  chartType,
		"hint":       hint,
		"steps":      len(output.Plan),
	})
	return output, nil
}

// buildPlan asks the model for a step breakdown and falls back to a single
// query step when the model is unavailable or returns malformed JSON.
func (h *Handler) buildPlan(ctx context.Context, question string, c *models.QueryComplexity, needsChart bool) []models.PlanStep {
	fallback := []models.PlanStep{{Step: 1, Description: "Query the database for the requested data"}}

	if !h.config.UseLLMPlan || h.genai == nil {
		return fallback
	}

	prompt := fmt.Sprintf(planPrompt, question,
		c.IsMultiStep, needsChart, c.IsComparison, c.IsAggregation, c.IsStatistical)

	answer, err := h.genai.Generate(ctx, prompt)
	if err != nil {
		h.logger.Warn("plan generation failed, using single step", map[string]interface{}{
			"error": err.Error(),
		})
		return fallback
	}

	steps, err := parsePlan(answer)
	if err != nil || len(steps) == 0 {
		h.logger.Warn("plan response unusable, using single step", map[string]interface{}{
			"response": answer,
		})
		return fallback
	}
	return steps
}

func parsePlan(answer string) ([]models.PlanStep, error) {
	text := strings.TrimSpace(answer)
	if strings.Contains(text, "```json") {
		text = strings.SplitN(strings.SplitN(text, "```json", 2)[1], "```", 2)[0]
	} else if strings.Contains(text, "```") {
		parts := strings.Split(text, "```")
		if len(parts) >= 2 {
			text = parts[1]
		}
	}

	var parsed struct {
		Steps []struct {
			StepNumber  int    `json:"step_number"`
			Description string `json:"description"`
		} `json:"steps"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		return nil, err
	}

	steps := make([]models.PlanStep, 0, len(parsed.Steps))
	for i, s := range parsed.Steps {
		num := s.StepNumber
		if num == 0 {
			num = i + 1
		}
		steps = append(steps, models.PlanStep{Step: num, Description: s.Description})
	}
	return steps, nil
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
		return apperrors.NewPlanningFailedError(err)
	}
	return err
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
