package planquery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "djia-agent/internal/common/errors"
	"djia-agent/internal/common/genai"
)

type stubLogger struct{}

func (s stubLogger) Info(string, map[string]interface{})  {}
func (s stubLogger) Warn(string, map[string]interface{})  {}
func (s stubLogger) Error(string, map[string]interface{}) {}
func (s stubLogger) With(map[string]interface{}) Logger   { return s }

type stubGenAI struct {
	answer string
	err    error
}

func (s stubGenAI) Generate(context.Context, string) (string, error) {
	return s.answer, s.err
}

func TestDetectComplexity(t *testing.T) {
	tests := []struct {
		name       string
		question   string
		multiStep  bool
		comparison bool
		aggregate  bool
		chart      bool
		chartType  string
	}{
		{
			name:     "simple lookup",
			question: "What was the closing price of Microsoft on 2024-01-15?",
		},
		{
			name:       "comparison plus aggregation is multi step",
			question:   "Which company had the highest average closing price in 2024?",
			multiStep:  true,
			comparison: true,
			aggregate:  true,
		},
		{
			name:      "statistical is multi step",
			question:  "What was the volatility of Apple in 2024?",
			multiStep: true,
			aggregate: false,
		},
		{
			name:      "chart with type",
			question:  "Plot a candlestick chart for Apple",
			chart:     true,
			chartType: "candlestick",
		},
		{
			name:      "plain plot defaults to line",
			question:  "Plot Apple's closing price over the year",
			chart:     true,
			chartType: "line",
		},
		{
			name:      "all companies is multi step",
			question:  "Average closing price for all companies in 2024",
			multiStep: true,
			aggregate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, needsChart, chartType := DetectComplexity(tt.question)
			assert.Equal(t, tt.multiStep, c.IsMultiStep, "multiStep")
			assert.Equal(t, tt.comparison, c.IsComparison, "comparison")
			assert.Equal(t, tt.aggregate, c.IsAggregation, "aggregation")
			assert.Equal(t, tt.chart, needsChart, "needsChart")
			assert.Equal(t, tt.chartType, chartType, "chartType")
		})
	}
}

func TestExecuteBuildsPlanFromModel(t *testing.T) {
	plan := "```json\n{\"steps\": [{\"step_number\": 1, \"description\": \"compute daily returns\"}, {\"step_number\": 2, \"description\": \"correlate the series\"}]}\n```"
	h := NewHandler(LoadConfig(), stubGenAI{answer: plan}, stubLogger{})

	out, err := h.Execute(context.Background(), &Input{Question: "Correlation between AAPL and MSFT in 2024"})

	require.NoError(t, err)
	assert.True(t, out.Complexity.IsStatistical)
	require.Len(t, out.Plan, 2)
	assert.Equal(t, "compute daily returns", out.Plan[0].Description)
	assert.Equal(t, "correlation", out.AnalysisHint)
}

func TestExecuteFallsBackToSingleStep(t *testing.T) {
	h := NewHandler(LoadConfig(), stubGenAI{err: errors.New("boom")}, stubLogger{})

	out, err := h.Execute(context.Background(), &Input{Question: "Volatility of Apple in 2024"})

	require.NoError(t, err)
	require.Len(t, out.Plan, 1)
	assert.Equal(t, 1, out.Plan[0].Step)
}

func TestExecuteSimpleQuestionHasNoPlan(t *testing.T) {
	h := NewHandler(LoadConfig(), stubGenAI{answer: "ignored"}, stubLogger{})

	out, err := h.Execute(context.Background(), &Input{Question: "Closing price of Apple on 2024-01-15"})

	require.NoError(t, err)
	assert.False(t, out.Complexity.IsMultiStep)
	assert.Empty(t, out.Plan)
}

func TestParsePlanMalformedJSON(t *testing.T) {
	_, err := parsePlan("not json at all")
	assert.Error(t, err)
}

func TestWrapErrorMapsToStandardCodes(t *testing.T) {
	var stdErr *apperrors.StandardError

	require.ErrorAs(t, wrapError(fmt.Errorf("plan: %w", genai.ErrTimeout)), &stdErr)
	assert.Equal(t, apperrors.ErrCodeLLMTimeout, stdErr.Code)

	require.ErrorAs(t, wrapError(fmt.Errorf("plan: %w", genai.ErrGenerationFailed)), &stdErr)
	assert.Equal(t, apperrors.ErrCodePlanningFailed, stdErr.Code)

	plain := errors.New("parse input: bad variables")
	assert.Equal(t, plain, wrapError(plain))
}
