package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"djia-agent/internal/catalog"
	"djia-agent/internal/models"
	"djia-agent/internal/nlp"
	"djia-agent/internal/sqlexec"
	classifyquestion "djia-agent/internal/workers/question/classify-question"
	executesql "djia-agent/internal/workers/question/execute-sql"
	generatesql "djia-agent/internal/workers/question/generate-sql"
	matchtemplate "djia-agent/internal/workers/question/match-template"
	planquery "djia-agent/internal/workers/question/plan-query"
	renderchart "djia-agent/internal/workers/question/render-chart"
	summarizeanswer "djia-agent/internal/workers/question/summarize-answer"
)

type baseLogger struct{}

func (baseLogger) Debug(string, map[string]interface{}) {}
func (baseLogger) Info(string, map[string]interface{})  {}
func (baseLogger) Warn(string, map[string]interface{})  {}
func (baseLogger) Error(string, map[string]interface{}) {}

type classifyLog struct{ baseLogger }

func (l classifyLog) With(map[string]interface{}) classifyquestion.Logger { return l }

type planLog struct{ baseLogger }

func (l planLog) With(map[string]interface{}) planquery.Logger { return l }

type matchLog struct{ baseLogger }

func (l matchLog) With(map[string]interface{}) matchtemplate.Logger { return l }

type genLog struct{ baseLogger }

func (l genLog) With(map[string]interface{}) generatesql.Logger { return l }

type execLog struct{ baseLogger }

func (l execLog) With(map[string]interface{}) executesql.Logger { return l }

type chartLog struct{ baseLogger }

func (l chartLog) With(map[string]interface{}) renderchart.Logger { return l }

type sumLog struct{ baseLogger }

func (l sumLog) With(map[string]interface{}) summarizeanswer.Logger { return l }

type pipeLog struct{ baseLogger }

func (l pipeLog) With(map[string]interface{}) Logger { return l }

// scriptedGenAI returns queued answers, repeating the last one forever.
type scriptedGenAI struct {
	answers []string
	err     error
	prompts []string
}

func (s *scriptedGenAI) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.answers) == 0 {
		return "", nil
	}
	answer := s.answers[0]
	if len(s.answers) > 1 {
		s.answers = s.answers[1:]
	}
	return answer, nil
}

type stubRetriever struct {
	snippets []string
}

func (s stubRetriever) Retrieve(context.Context, string) ([]string, error) {
	return s.snippets, nil
}

type fixture struct {
	pipeline    *Pipeline
	mock        sqlmock.Sqlmock
	classifier  *scriptedGenAI
	synthesizer *scriptedGenAI
	summarizer  *scriptedGenAI
}

func newFixture(t *testing.T, retriever DocumentRetriever) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cat, err := catalog.Load("../../data/sql_templates.sql")
	require.NoError(t, err)
	aliases := nlp.NewAliasTable()

	f := &fixture{
		mock:        mock,
		classifier:  &scriptedGenAI{answers: []string{"SQL"}},
		synthesizer: &scriptedGenAI{},
		summarizer:  &scriptedGenAI{answers: []string{"Here is your answer."}},
	}

	matcherCfg := matchtemplate.LoadConfig()
	matcherCfg.UseConfirmation = false

	f.pipeline = New(
		LoadConfig(),
		classifyquestion.NewHandler(classifyquestion.LoadConfig(), f.classifier, classifyLog{}),
		planquery.NewHandler(planquery.LoadConfig(), &scriptedGenAI{}, planLog{}),
		matchtemplate.NewHandler(matcherCfg, catalog.NewMatcher(cat, aliases), nil, aliases, matchLog{}),
		generatesql.NewHandler(generatesql.LoadConfig(), f.synthesizer, genLog{}),
		executesql.NewHandler(executesql.LoadConfig(), sqlexec.NewExecutor(db, baseLogger{}), nil, aliases, execLog{}),
		renderchart.NewHandler(renderchart.LoadConfig(), &scriptedGenAI{answers: []string{"figure = go.Figure()"}}, chartLog{}),
		summarizeanswer.NewHandler(summarizeanswer.LoadConfig(), f.summarizer, sumLog{}),
		retriever,
		pipeLog{},
	)
	return f
}

func TestResolveTemplateQuestion(t *testing.T) {
	f := newFixture(t, nil)

	f.mock.ExpectQuery("SELECT close FROM prices").
		WithArgs("AAPL", "2024-01-15").
		WillReturnRows(sqlmock.NewRows([]string{"close"}).AddRow(185.92))

	result, err := f.pipeline.Resolve(context.Background(), "req-1",
		"What was the closing price of Apple on January 15, 2024?")

	require.NoError(t, err)
	assert.Equal(t, models.SourceTemplate, result.Source)
	assert.Equal(t, "Here is your answer.", result.Answer)
	assert.Empty(t, result.Error)
	assert.Zero(t, result.Attempts)
	assert.NotEmpty(t, result.DisplaySQL)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestResolveTemplateFailureFallsBackToSynthesis(t *testing.T) {
	f := newFixture(t, nil)
	f.synthesizer.answers = []string{"SQL: SELECT close FROM prices WHERE ticker = :ticker AND date = CAST(:date AS DATE);"}

	f.mock.ExpectQuery("SELECT close FROM prices").
		WithArgs("AAPL", "2024-01-15").
		WillReturnError(errors.New("connection reset"))
	f.mock.ExpectQuery("SELECT close FROM prices").
		WithArgs("AAPL", "2024-01-15").
		WillReturnRows(sqlmock.NewRows([]string{"close"}).AddRow(185.92))

	result, err := f.pipeline.Resolve(context.Background(), "req-2",
		"What was the closing price of Apple on January 15, 2024?")

	require.NoError(t, err)
	assert.Equal(t, models.SourceSynthesized, result.Source)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, result.Error)
	// the failed statement is fed back into the synthesis prompt
	require.Len(t, f.synthesizer.prompts, 1)
	assert.Contains(t, f.synthesizer.prompts[0], "connection reset")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestResolveRetryBudgetExhausted(t *testing.T) {
	f := newFixture(t, nil)
	f.synthesizer.answers = []string{"SQL: SELECT clsoe FROM prices WHERE ticker = :ticker;"}

	for i := 0; i < 3; i++ {
		f.mock.ExpectQuery("SELECT clsoe FROM prices").
			WithArgs("AAPL").
			WillReturnError(errors.New(`column "clsoe" does not exist`))
	}

	result, err := f.pipeline.Resolve(context.Background(), "req-3",
		"Show me something impossible about Apple")

	require.NoError(t, err)
	assert.Equal(t, ErrorCodeExhausted, result.Error)
	assert.Equal(t, exhaustedAnswer, result.Answer)
	assert.Equal(t, 3, result.Attempts)
	require.Len(t, f.synthesizer.prompts, 3)
	assert.Contains(t, f.synthesizer.prompts[1], "clsoe")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestResolveGeneralQuestion(t *testing.T) {
	f := newFixture(t, stubRetriever{snippets: []string{"The DJIA tracks 30 large US companies."}})
	f.classifier.answers = []string{"OTHER"}
	f.summarizer.answers = []string{"The DJIA is a stock market index of 30 companies."}

	result, err := f.pipeline.Resolve(context.Background(), "req-4", "What is the DJIA?")

	require.NoError(t, err)
	assert.Equal(t, models.SourceNone, result.Source)
	assert.Equal(t, "The DJIA is a stock market index of 30 companies.", result.Answer)
	require.Len(t, f.summarizer.prompts, 1)
	assert.Contains(t, f.summarizer.prompts[0], "tracks 30 large US companies")
}

func TestResolveChartQuestion(t *testing.T) {
	f := newFixture(t, nil)
	f.synthesizer.answers = []string{"SQL: SELECT date, close FROM prices WHERE ticker = :ticker;"}

	f.mock.ExpectQuery("SELECT date, close FROM prices").
		WithArgs("AAPL").
		WillReturnRows(sqlmock.NewRows([]string{"date", "close"}).
			AddRow("2024-01-02", 185.64).
			AddRow("2024-01-03", 184.25))

	result, err := f.pipeline.Resolve(context.Background(), "req-5",
		"Plot the closing price of Apple in 2024")

	require.NoError(t, err)
	assert.Equal(t, models.SourceSynthesized, result.Source)
	assert.Equal(t, "figure = go.Figure()", result.ChartCode)
	assert.Empty(t, result.ChartError)
	require.NoError(t, f.mock.ExpectationsWereMet())
}
