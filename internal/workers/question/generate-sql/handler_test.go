package generatesql

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "djia-agent/internal/common/errors"
	"djia-agent/internal/common/genai"
	"djia-agent/internal/models"
)

type stubLogger struct{}

func (s stubLogger) Info(string, map[string]interface{})  {}
func (s stubLogger) Error(string, map[string]interface{}) {}
func (s stubLogger) With(map[string]interface{}) Logger   { return s }

type stubGenAI struct {
	answer string
	err    error
	prompt string
}

func (s *stubGenAI) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.answer, s.err
}

func TestExecuteExtractsFromReasoningResponse(t *testing.T) {
	client := &stubGenAI{answer: "Reasoning: daily closes for AAPL in 2024.\nSQL: SELECT date, close FROM prices WHERE ticker = :ticker;"}
	h := NewHandler(LoadConfig(), client, stubLogger{})

	out, err := h.Execute(context.Background(), &Input{Question: "Plot AAPL closes in 2024"})

	require.NoError(t, err)
	assert.Equal(t, "SELECT date, close FROM prices WHERE ticker = :ticker;", out.SQL)
	assert.Equal(t, models.SourceSynthesized, out.Source)
	assert.Empty(t, out.Warnings)
}

func TestExecuteExtractsFromCodeFence(t *testing.T) {
	client := &stubGenAI{answer: "```sql\nSELECT close FROM prices WHERE ticker = :ticker AND date = CAST(:date AS DATE)\n```"}
	h := NewHandler(LoadConfig(), client, stubLogger{})

	out, err := h.Execute(context.Background(), &Input{Question: "AAPL close on 2024-01-15"})

	require.NoError(t, err)
	assert.Equal(t, "SELECT close FROM prices WHERE ticker = :ticker AND date = CAST(:date AS DATE);", out.SQL)
}

func TestExecuteRepairsSQLiteDialect(t *testing.T) {
	client := &stubGenAI{answer: "SQL: SELECT AVG(close) FROM prices WHERE ticker = :ticker AND strftime('%Y', date) = '2024';"}
	h := NewHandler(LoadConfig(), client, stubLogger{})

	out, err := h.Execute(context.Background(), &Input{Question: "average AAPL close in 2024"})

	require.NoError(t, err)
	assert.NotContains(t, out.SQL, "strftime")
	assert.NotEmpty(t, out.Warnings)
}

func TestExecuteFeedbackReachesPrompt(t *testing.T) {
	client := &stubGenAI{answer: "SQL: SELECT close FROM prices WHERE ticker = :ticker;"}
	h := NewHandler(LoadConfig(), client, stubLogger{})

	_, err := h.Execute(context.Background(), &Input{
		Question: "AAPL close",
		Feedback: `column "clsoe" does not exist. SQL: SELECT clsoe FROM prices;`,
	})

	require.NoError(t, err)
	assert.Contains(t, client.prompt, "clsoe")
	assert.Contains(t, client.prompt, "Fix the statement")
}

func TestExecuteAnalysisHintReachesPrompt(t *testing.T) {
	client := &stubGenAI{answer: "SQL: SELECT 1;"}
	h := NewHandler(LoadConfig(), client, stubLogger{})

	_, err := h.Execute(context.Background(), &Input{
		Question:     "30 day moving average of AAPL",
		AnalysisHint: "moving_average",
	})

	require.NoError(t, err)
	assert.Contains(t, client.prompt, "ADVANCED REQUIREMENT")
}

func TestExecuteEmptyExtraction(t *testing.T) {
	client := &stubGenAI{answer: "I cannot answer that question."}
	h := NewHandler(LoadConfig(), client, stubLogger{})

	_, err := h.Execute(context.Background(), &Input{Question: "nonsense"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSynthesisEmpty)
}

func TestExecutePropagatesModelError(t *testing.T) {
	client := &stubGenAI{err: genai.ErrTimeout}
	h := NewHandler(LoadConfig(), client, stubLogger{})

	_, err := h.Execute(context.Background(), &Input{Question: "AAPL close"})

	assert.ErrorIs(t, err, genai.ErrTimeout)
}

func TestWrapErrorMapsToStandardCodes(t *testing.T) {
	var stdErr *apperrors.StandardError

	require.ErrorAs(t, wrapError(fmt.Errorf("synthesis: %w", genai.ErrTimeout)), &stdErr)
	assert.Equal(t, apperrors.ErrCodeLLMTimeout, stdErr.Code)
	assert.True(t, stdErr.Retryable)

	require.ErrorAs(t, wrapError(fmt.Errorf("synthesis: %w", genai.ErrGenerationFailed)), &stdErr)
	assert.Equal(t, apperrors.ErrCodeLLMSynthesisFailed, stdErr.Code)

	require.ErrorAs(t, wrapError(fmt.Errorf("%w: no statement in model response", ErrSynthesisEmpty)), &stdErr)
	assert.Equal(t, apperrors.ErrCodeSynthesisEmpty, stdErr.Code)

	plain := errors.New("parse input: bad variables")
	assert.Equal(t, plain, wrapError(plain))
}
