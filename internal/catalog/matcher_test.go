package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"djia-agent/internal/nlp"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	c, err := Load("../../data/sql_templates.sql")
	require.NoError(t, err)
	return NewMatcher(c, nlp.NewAliasTable())
}

func TestMatchSingleValueOnDate(t *testing.T) {
	m := newTestMatcher(t)

	tests := []struct {
		name     string
		question string
		rule     string
		contains string
	}{
		{
			name:     "closing price on a date",
			question: "What was Apple's closing price on 2024-03-15?",
			rule:     "close_on_date",
			contains: "SELECT close",
		},
		{
			name:     "opening price on a date",
			question: "What was the opening price of Boeing on 2024-03-15?",
			rule:     "open_on_date",
			contains: "SELECT open",
		},
		{
			name:     "trading volume on a date",
			question: "Trading volume of Nike on 2024-01-05?",
			rule:     "volume_on_date",
			contains: "SELECT volume",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, rule := m.Match(tt.question)
			assert.Equal(t, tt.rule, rule)
			assert.Contains(t, sql, tt.contains)
		})
	}
}

func TestMatchTwoTickerComparisons(t *testing.T) {
	m := newTestMatcher(t)

	sql, rule := m.Match("Which had the higher closing price on 2024-03-15, Apple or Microsoft?")
	assert.Equal(t, "two_ticker_close", rule)
	assert.Contains(t, sql, "a_close")
	assert.Contains(t, sql, "b_close")

	sql, rule = m.Match("Which company paid higher dividends per share in 2023, Apple or IBM?")
	assert.Equal(t, "two_ticker_dividends_year", rule)
	assert.Contains(t, sql, "a_dividends_per_share")
}

func TestMatchWhichCompanyOnDate(t *testing.T) {
	m := newTestMatcher(t)

	sql, rule := m.Match("Which company had the highest closing price on 2024-03-15?")
	assert.Equal(t, "which_company_close", rule)
	assert.Contains(t, sql, "ORDER BY p.close DESC")

	sql, rule = m.Match("Which company had the largest volume on 2024-03-15?")
	assert.Equal(t, "which_company_volume", rule)
	assert.Contains(t, sql, "ORDER BY p.volume DESC")
}

func TestMatchYearlyAggregates(t *testing.T) {
	m := newTestMatcher(t)

	sql, rule := m.Match("What was Apple's highest closing price in 2024?")
	assert.Equal(t, "year_highest_close", rule)
	assert.Contains(t, sql, "ORDER BY close DESC")

	sql, rule = m.Match("Total trading volume for Microsoft in 2023?")
	assert.Equal(t, "total_volume_year", rule)
	assert.Contains(t, sql, "SUM(volume) AS total_volume")

	sql, rule = m.Match("Average closing price of Apple in Q2 2024?")
	assert.Equal(t, "avg_close_quarter", rule)
	assert.Contains(t, sql, ":quarter")

	sql, rule = m.Match("Average closing price of Apple from March to June 2024?")
	assert.Equal(t, "avg_close_month_range", rule)
	assert.Contains(t, sql, ":start_month")
}

func TestMatchAnalyticalTemplates(t *testing.T) {
	m := newTestMatcher(t)

	sql, rule := m.Match("Which stock had the largest percentage increase in stock price in 2024?")
	assert.Equal(t, "largest_pct_increase", rule)
	assert.Contains(t, sql, "WITH price_changes")

	sql, rule = m.Match("What was the median closing price for IBM in 2024?")
	assert.Equal(t, "median_close", rule)
	assert.Contains(t, sql, "PERCENTILE_CONT")

	sql, rule = m.Match("How did Apple's price change from 2024-01-02 to 2024-06-28?")
	assert.Equal(t, "price_change_range", rule)
	assert.Contains(t, sql, "start_price")
	assert.Contains(t, sql, "end_price")
}

func TestMatchNoRuleFires(t *testing.T) {
	m := newTestMatcher(t)

	sql, rule := m.Match("Tell me a story about the stock market")
	assert.Empty(t, sql)
	assert.Empty(t, rule)
}
