package executesql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"djia-agent/internal/common/database"
	"djia-agent/internal/models"
	"djia-agent/internal/nlp"
	"djia-agent/internal/sqlexec"
)

type stubLogger struct{}

func (s stubLogger) Debug(string, map[string]interface{}) {}
func (s stubLogger) Info(string, map[string]interface{})  {}
func (s stubLogger) Warn(string, map[string]interface{})  {}
func (s stubLogger) Error(string, map[string]interface{}) {}
func (s stubLogger) With(map[string]interface{}) Logger   { return s }

func newTestHandler(t *testing.T, cache *database.RedisClient) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	executor := sqlexec.NewExecutor(db, stubLogger{})
	h := NewHandler(LoadConfig(), executor, cache, nlp.NewAliasTable(), stubLogger{})
	return h, mock
}

func newTestCache(t *testing.T) *database.RedisClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
}

func TestExecuteBindsEntities(t *testing.T) {
	h, mock := newTestHandler(t, nil)

	mock.ExpectQuery("SELECT close FROM prices WHERE ticker = $1 AND date = CAST($2 AS DATE);").
		WithArgs("AAPL", "2024-01-15").
		WillReturnRows(sqlmock.NewRows([]string{"close"}).AddRow(185.92))

	out, err := h.Execute(context.Background(), &Input{
		Question: "What was the closing price of Apple on January 15, 2024?",
		Ticker:   "AAPL",
		SQL:      "SELECT close FROM prices WHERE ticker = :ticker AND date = CAST(:date AS DATE);",
		Source:   models.SourceTemplate,
	})

	require.NoError(t, err)
	assert.Empty(t, out.Error)
	assert.Empty(t, out.Feedback)
	require.Len(t, out.Result.Rows, 1)
	assert.Equal(t, 185.92, out.Result.Rows[0]["close"])
	assert.Equal(t, "AAPL", out.Bindings["ticker"])
	assert.Contains(t, out.DisplaySQL, "'AAPL'")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteStatementFailureIsSoft(t *testing.T) {
	h, mock := newTestHandler(t, nil)

	mock.ExpectQuery("SELECT clsoe FROM prices WHERE ticker = $1;").
		WithArgs("AAPL").
		WillReturnError(errors.New(`column "clsoe" does not exist`))

	out, err := h.Execute(context.Background(), &Input{
		Question: "AAPL close",
		Ticker:   "AAPL",
		SQL:      "SELECT clsoe FROM prices WHERE ticker = :ticker;",
		Source:   models.SourceSynthesized,
	})

	require.NoError(t, err)
	assert.True(t, out.Result.Empty())
	assert.Contains(t, out.Error, "clsoe")
	assert.Contains(t, out.Feedback, "SQL: SELECT clsoe FROM prices")
	assert.NotEmpty(t, out.DisplaySQL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteMissingBindingIsSoft(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	out, err := h.Execute(context.Background(), &Input{
		Question: "closing price",
		SQL:      "SELECT close FROM prices WHERE ticker = :ticker;",
		Source:   models.SourceTemplate,
	})

	require.NoError(t, err)
	assert.Contains(t, out.Error, "missing bindings")
	assert.Contains(t, out.Feedback, "ticker")
}

func TestExecuteEmptySQL(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	out, err := h.Execute(context.Background(), &Input{Question: "anything"})

	require.NoError(t, err)
	assert.Equal(t, "no SQL statement to execute", out.Error)
}

func TestExecuteTemplateResultIsCached(t *testing.T) {
	h, mock := newTestHandler(t, newTestCache(t))

	mock.ExpectQuery("SELECT close FROM prices WHERE ticker = $1 AND date = CAST($2 AS DATE);").
		WithArgs("MSFT", "2024-03-01").
		WillReturnRows(sqlmock.NewRows([]string{"close"}).AddRow(421.13))

	input := &Input{
		Question: "Microsoft close on 2024-03-01",
		Ticker:   "MSFT",
		SQL:      "SELECT close FROM prices WHERE ticker = :ticker AND date = CAST(:date AS DATE);",
		Source:   models.SourceTemplate,
	}

	first, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, first.Result.Rows, 1)
	require.NoError(t, mock.ExpectationsWereMet())

	// second run must be served from the cache, the mock has no
	// expectation left
	second, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, second.Result.Rows, 1)
	assert.Equal(t, 421.13, second.Result.Rows[0]["close"])
	assert.Equal(t, first.DisplaySQL, second.DisplaySQL)
}

func TestExecuteSynthesizedResultNotCached(t *testing.T) {
	cache := newTestCache(t)
	h, mock := newTestHandler(t, cache)

	mock.ExpectQuery("SELECT AVG(close) AS avg_close FROM prices WHERE ticker = $1;").
		WithArgs("AAPL").
		WillReturnRows(sqlmock.NewRows([]string{"avg_close"}).AddRow(190.5))
	mock.ExpectQuery("SELECT AVG(close) AS avg_close FROM prices WHERE ticker = $1;").
		WithArgs("AAPL").
		WillReturnRows(sqlmock.NewRows([]string{"avg_close"}).AddRow(190.5))

	input := &Input{
		Question: "average Apple close",
		Ticker:   "AAPL",
		SQL:      "SELECT AVG(close) AS avg_close FROM prices WHERE ticker = :ticker;",
		Source:   models.SourceSynthesized,
	}

	_, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	_, err = h.Execute(context.Background(), input)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
