// internal/workers/question/render-chart/prompt.go
package renderchart

import (
	"encoding/json"
	"fmt"
	"strings"

	"djia-agent/internal/models"
)

const chartSystemPrompt = "You are a Plotly charting assistant writing Python. " +
	"Read the question and the sample data, then produce Python code (no markdown) that builds a Plotly Figure."

const chartConstraints = `=== IMPORTANT RULES ===
1. When the question asks 'per company', 'each company' or 'for each DJIA company':
   - Every point/bar/slice is one company
   - If df is not grouped by ticker/symbol yet, you MUST use df.groupby('ticker') or df.groupby('symbol')
   - NEVER group by date for a per-company question

2. Scatter plot:
   - One point per company when the question is per company
   - Use go.Scatter or px.scatter with x and y taken from df
   - Add text=name or text=ticker so company labels show

3. Bar chart:
   - One bar per entity (company or day)
   - For per-company questions use x=ticker/name, y=metric
   - Sorting by y is fine: df = df.sort_values('metric', ascending=False)

4. Pie chart:
   - One slice per category (sector, industry, ...)
   - If df already has a sector column and a metric column, use them directly without another groupby
   - If df is not aggregated and a count is needed: df = df.groupby('sector').size().reset_index(name='count')
   - labels=category column, values=metric column. Use go.Pie or px.pie

5. Time series line chart:
   - For 'over time', 'from ... to ...', 'during ...', 'closing price over time' questions
   - Use go.Scatter with mode='lines' (NOT 'markers')
   - x=df['date'], y=df['close'] (or another price column)
   - Format dates on the x axis: figure.update_xaxes(tickformat='%Y-%m-%d')

6. ALWAYS use the provided DataFrame df. Never hard-code data.
7. The code must assign the result to a variable named 'figure' (go.Figure).
8. No printing, no logging, no markdown, no 'python' prefix.`

const chartGuidance = `=== TECHNICAL REQUIREMENTS ===
- The DataFrame is named df. Available: pd, np, go, px, make_subplots.
- Column names are already lowercase: date, close, open, high, low, volume, ticker, symbol, name, sector, market_cap, ...
- Assign the final result to a variable 'figure' of type plotly.graph_objects.Figure.
- Perform any transforms (groupby, pivot, arithmetic) inside the code.
- Infer a suitable chart type yourself when the question is vague.
- For multi-ticker comparisons, filter or loop per ticker. For correlation heatmaps, build a correlation matrix.
- Keep the trace count reasonable (at most 5). Set a title and clear axis labels.
- When a column has an awkward name such as 'sum(c.market_cap)', use the exact name from df.columns
  or index by position with df.columns[0], df.columns[1], ...
- Return plain Python code only.`

// requiredColumns lists the columns a chart type needs at minimum.
func requiredColumns(chartType string) []string {
	switch chartType {
	case "candlestick":
		return []string{"date", "open", "high", "low", "close", "volume"}
	case "volume":
		return []string{"date", "open", "close", "volume"}
	case "comparison":
		return []string{"date", "ticker", "close"}
	default:
		return []string{"date", "close", "volume"}
	}
}

// buildChartPrompt assembles the code generation prompt from the question
// and a bounded preview of the result rows.
func buildChartPrompt(question, chartType string, result *models.ResultSet, maxRows int) string {
	rows := result.Rows
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	dataJSON, err := json.Marshal(rows)
	if err != nil {
		dataJSON = []byte("[]")
	}

	hint := chartType
	if hint == "" {
		hint = "auto"
	}

	var b strings.Builder
	b.WriteString(chartSystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(chartConstraints)
	b.WriteString("\n\n")
	b.WriteString(chartGuidance)
	b.WriteString("\n\n=== QUESTION AND DATA ===\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	fmt.Fprintf(&b, "Chart type hint: %s\n", hint)
	fmt.Fprintf(&b, "Columns available in df: %s\n", strings.Join(result.Columns, ", "))
	fmt.Fprintf(&b, "Sample data (JSON, first %d rows):\n%s\n\n", len(rows), dataJSON)
	b.WriteString("Write the Python code that builds the right Plotly chart for this question and data.")
	return b.String()
}

// extractChartCode strips a surrounding code fence and any leading language
// tag from the model response.
func extractChartCode(response string) string {
	code := strings.TrimSpace(response)
	if strings.HasPrefix(code, "```") {
		parts := strings.Split(code, "```")
		if len(parts) > 1 {
			code = parts[1]
		}
	}
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(code, "python\n")
	code = strings.TrimPrefix(code, "python ")
	return strings.TrimSpace(code)
}
