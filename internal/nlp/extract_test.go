package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTicker(t *testing.T) {
	aliases := NewAliasTable()

	tests := []struct {
		name     string
		question string
		expected string
	}{
		{
			name:     "company name",
			question: "What was Apple's closing price on 2024-03-15?",
			expected: "AAPL",
		},
		{
			name:     "multi word alias",
			question: "Show me Goldman Sachs dividends in 2023",
			expected: "GS",
		},
		{
			name:     "raw symbol",
			question: "Average volume for CSCO in January 2024",
			expected: "CSCO",
		},
		{
			name:     "chart words are not tickers",
			question: "PLOT the DJIA as a BAR chart",
			expected: "",
		},
		{
			name:     "all companies means no single ticker",
			question: "Which of all companies had the highest close in 2024?",
			expected: "",
		},
		{
			name:     "longest alias wins",
			question: "How did UnitedHealth Group perform last quarter?",
			expected: "UNH",
		},
		{
			name:     "apostrophe name",
			question: "McDonald's stock price yesterday",
			expected: "MCD",
		},
		{
			name:     "no company at all",
			question: "hello there",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractTicker(tt.question, aliases))
		})
	}
}

func TestExtractDateParts(t *testing.T) {
	tests := []struct {
		name     string
		question string
		expected DateParts
	}{
		{
			name:     "iso date",
			question: "close price on 2024-03-15",
			expected: DateParts{Date: "2024-03-15", Year: "2024", Month: "03", Day: "15"},
		},
		{
			name:     "month day year",
			question: "What happened on March 5, 2024?",
			expected: DateParts{Date: "2024-03-05", Year: "2024", Month: "03", Day: "05"},
		},
		{
			name:     "month and year only",
			question: "average close in January 2024",
			expected: DateParts{Year: "2024", Month: "01"},
		},
		{
			name:     "day first slash date",
			question: "closing price on 15/01/2024?",
			expected: DateParts{Date: "2024-01-15", Year: "2024", Month: "01", Day: "15"},
		},
		{
			name:     "day first dash date",
			question: "volume on 5-3-2024",
			expected: DateParts{Date: "2024-03-05", Year: "2024", Month: "03", Day: "05"},
		},
		{
			name:     "spelled out date beats iso",
			question: "compare March 5, 2024 with 2024-06-28",
			expected: DateParts{Date: "2024-03-05", Year: "2024", Month: "03", Day: "05"},
		},
		{
			name:     "iso beats day first",
			question: "compare 15/01/2024 with 2024-06-28",
			expected: DateParts{Date: "2024-06-28", Year: "2024", Month: "06", Day: "28"},
		},
		{
			name:     "bare year",
			question: "total volume in 2023",
			expected: DateParts{Year: "2023"},
		},
		{
			name:     "nothing",
			question: "highest close ever",
			expected: DateParts{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractDateParts(tt.question))
		})
	}
}

func TestExtractDateRange(t *testing.T) {
	start, end := ExtractDateRange("price change from 2024-01-02 to 2024-06-28")
	assert.Equal(t, "2024-01-02", start)
	assert.Equal(t, "2024-06-28", end)

	start, end = ExtractDateRange("between January 2, 2024 and June 28, 2024")
	assert.Equal(t, "2024-01-02", start)
	assert.Equal(t, "2024-06-28", end)

	start, end = ExtractDateRange("from 2024-01-02 to January 31, 2024")
	assert.Equal(t, "2024-01-02", start)
	assert.Equal(t, "2024-01-31", end)

	start, end = ExtractDateRange("từ 02/01/2024 đến 28/06/2024")
	assert.Equal(t, "2024-01-02", start)
	assert.Equal(t, "2024-06-28", end)

	// position in the question decides order, not the format
	start, end = ExtractDateRange("was June 28, 2024 higher than 2024-01-02?")
	assert.Equal(t, "2024-06-28", start)
	assert.Equal(t, "2024-01-02", end)

	start, end = ExtractDateRange("only one date 2024-01-02 here")
	assert.Empty(t, start)
	assert.Empty(t, end)
}

func TestExtractQuarter(t *testing.T) {
	tests := []struct {
		question string
		expected int
	}{
		{"average close in Q2 2024", 2},
		{"results for quarter 3", 3},
		{"the first quarter of 2024", 1},
		{"4th quarter performance", 4},
		{"giá trung bình quý iii", 3},
		{"doanh thu quý 2 năm 2024", 2},
		{"ket qua quy 4", 4},
		{"giá đóng cửa quý thứ hai", 2},
		{"quy thu nhat the nao", 1},
		{"quý đầu tiên ra sao", 1},
		{"average in the quarter containing May", 2},
		{"no quarter mentioned", 0},
		{"May flowers", 0},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractQuarter(tt.question))
		})
	}
}

func TestExtractMonthRange(t *testing.T) {
	start, end := ExtractMonthRange("average close from March to June 2024")
	assert.Equal(t, "03", start)
	assert.Equal(t, "06", end)

	start, end = ExtractMonthRange("volume in July-September")
	assert.Equal(t, "07", start)
	assert.Equal(t, "09", end)

	start, end = ExtractMonthRange("from jan to mar")
	assert.Equal(t, "01", start)
	assert.Equal(t, "03", end)

	start, end = ExtractMonthRange("giá trung bình từ tháng 3 đến tháng 6")
	assert.Equal(t, "03", start)
	assert.Equal(t, "06", end)

	start, end = ExtractMonthRange("tu thang 11 den thang 12 nam 2024")
	assert.Equal(t, "11", start)
	assert.Equal(t, "12", end)

	start, end = ExtractMonthRange("just March alone")
	assert.Empty(t, start)
	assert.Empty(t, end)
}

func TestDetectTwoTickers(t *testing.T) {
	aliases := NewAliasTable()

	tests := []struct {
		name     string
		question string
		first    string
		second   string
	}{
		{
			name:     "versus names",
			question: "Compare Apple versus Microsoft in 2024",
			first:    "AAPL",
			second:   "MSFT",
		},
		{
			name:     "or names",
			question: "Did Boeing or Nike have the higher close?",
			first:    "BA",
			second:   "NKE",
		},
		{
			name:     "raw symbols fallback",
			question: "Correlation between AAPL and MSFT",
			first:    "AAPL",
			second:   "MSFT",
		},
		{
			name:     "same company twice",
			question: "AAPL and AAPL",
			first:    "",
			second:   "",
		},
		{
			name:     "single company",
			question: "How did Apple do?",
			first:    "",
			second:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := DetectTwoTickers(tt.question, aliases)
			assert.Equal(t, tt.first, a)
			assert.Equal(t, tt.second, b)
		})
	}
}
