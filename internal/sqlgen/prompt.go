// Package sqlgen builds synthesis prompts, extracts SQL from model output
// and normalizes it to the PostgreSQL dialect.
package sqlgen

import "fmt"

const schemaSection = `=== DATASET SCHEMA ===
Table: prices
  Columns: date (DATE, format YYYY-MM-DD), open (REAL), high (REAL), low (REAL), close (REAL), volume (INTEGER), dividends (REAL), stock_splits (REAL), ticker (TEXT)
  Note: prices.ticker joins with companies.symbol

Table: companies
  Columns: symbol (TEXT, primary key), name (TEXT), sector (TEXT), industry (TEXT), country (TEXT), website (TEXT), market_cap (REAL), pe_ratio (REAL), dividend_yield (REAL), week_52_high (REAL), week_52_low (REAL), description (TEXT)
  Note: companies.symbol is the primary key, NOT 'ticker'

`

const visualizationSection = `=== IMPORTANT RULES FOR VISUALIZATION ===
1. When the question asks 'per company', 'each company', 'for each DJIA company':
   you MUST GROUP BY ticker or symbol (NEVER GROUP BY date).
   Each result row = one company.

2. When the question covers a whole year (in 2024, during 2024):
   aggregate over the full year (AVG, SUM, COUNT for the year).
   Do NOT GROUP BY date unless the user explicitly says 'per day'.

3. Scatter plot / correlation chart:
   each point = one company, so GROUP BY ticker,
   unless the user says 'per day', then GROUP BY date.

4. Bar chart:
   one bar = one single entity (company or day).
   'per company' means GROUP BY ticker, 'per day' means GROUP BY date.

5. Pie chart:
   one slice = one category (sector, industry, ...).
   GROUP BY that category.

6. Never include columns outside the GROUP BY unless they are aggregated (AVG, SUM, COUNT, MIN, MAX).

`

const examplesSection = `=== CORRECT EXAMPLES ===

Example 1: Average closing price per company in 2024
Reasoning: We need one row per company, so GROUP BY ticker and aggregate AVG(close) for the year.
SQL: SELECT p.ticker, c.name, AVG(p.close) AS avg_close FROM prices p JOIN companies c ON p.ticker = c.symbol WHERE EXTRACT(YEAR FROM p.date) = 2024 GROUP BY p.ticker, c.name;

Example 2: Total dividends per company in 2024
Reasoning: We need total dividends for each company, so GROUP BY ticker and use SUM(dividends).
SQL: SELECT p.ticker, c.name, SUM(p.dividends) AS total_dividends FROM prices p JOIN companies c ON p.ticker = c.symbol WHERE EXTRACT(YEAR FROM p.date) = 2024 GROUP BY p.ticker, c.name;

Example 3: Scatter plot market cap vs P/E for all companies
Reasoning: Each point = one company, no aggregation needed, just select from companies.
SQL: SELECT symbol, name, market_cap, pe_ratio FROM companies;

Example 4: Pie chart distribution by sector
Reasoning: Each slice = one sector, so GROUP BY sector and COUNT companies.
SQL: SELECT sector, COUNT(*) AS count FROM companies GROUP BY sector;

Example 5: Scatter plot average volume vs average price per company in 2024
Reasoning: Each point = one company, so GROUP BY ticker and aggregate AVG(volume) and AVG(close).
SQL: SELECT p.ticker, c.name, AVG(p.volume) AS avg_volume, AVG(p.close) AS avg_close FROM prices p JOIN companies c ON p.ticker = c.symbol WHERE EXTRACT(YEAR FROM p.date) = 2024 GROUP BY p.ticker, c.name;

WRONG: GROUP BY date when the question asks 'per company'.
WRONG: no GROUP BY when an aggregate per company is needed.
WRONG: non-aggregated columns without GROUP BY.

`

const generalRules = `=== GENERAL RULES ===
- Return ONLY plain SQL, no markdown fences, explanations or comments.
- Use :ticker, :date, :year, :month, :quarter style parameters where they fit.
- Date comparison: date = CAST(:date AS DATE).
- Year filter: TO_CHAR(date, 'YYYY') = :year or EXTRACT(YEAR FROM date) = :year.
- Month filter: TO_CHAR(date, 'MM') = :month or EXTRACT(MONTH FROM date) = :month.
- NEVER use strftime(), that is SQLite syntax and PostgreSQL does not support it.
- Do not use LIKE on dates, use TO_CHAR() or EXTRACT().
- JOIN condition: prices.ticker = companies.symbol.
- When reading metadata from companies (sector, country, industry, description, website, market_cap, pe_ratio, dividend_yield, week_52_high, week_52_low) and the ticker is known (:ticker parameter), ALWAYS filter WHERE companies.symbol = :ticker, never WHERE companies.name = :company or ILIKE on name.
  Correct: SELECT dividend_yield FROM companies WHERE symbol = :ticker;
  Wrong: SELECT dividend_yield FROM companies WHERE name = 'Apple';
- When looking up a ticker symbol by company name ('What is the ticker symbol for Apple?'), use WHERE companies.name ILIKE '%' || :company || '%', never an exact name match. Stored names can be 'Apple Inc.' rather than just 'Apple'.
  Correct: SELECT symbol FROM companies WHERE name ILIKE '%' || :company || '%';
  Wrong: SELECT symbol FROM companies WHERE name = 'Apple';
- CTEs, window functions and subqueries are allowed.
- PostgreSQL has STDDEV_POP() and STDDEV_SAMP() for standard deviation.

=== PROCESS ===
Step 1: describe in one sentence what the SQL must compute and what it groups by.
Step 2: write the SQL.
Format: "Reasoning: [description]. SQL: [statement]"
`

var hintGuidance = map[string]string{
	"std_dev":           "Compute standard deviation with STDDEV_POP(close) or STDDEV_SAMP(close).",
	"moving_average":    "Use a window function (AVG(close) OVER (PARTITION BY ticker ORDER BY date ROWS BETWEEN 29 PRECEDING AND CURRENT ROW)) sized to the requested number of days.",
	"cumulative_return": "Use a CTE to fetch the opening and closing prices, then compute (end_price - start_price) / start_price * 100 as percentage_return.",
	"days_count":        "Count sessions with COUNT(*) filtered on close above/below the threshold stated in the question.",
	"days_percentage":   "Compute the matching COUNT(*), divide by the total number of days and multiply by 100.",
	"ranking":           "Rank by total return with ORDER BY DESC/ASC and return the top 3 with LIMIT.",
	"max_drawdown":      "Compare each price against the running peak (window MAX) and pick the maximum drawdown.",
	"correlation":       "Compute daily returns for both tickers in a CTE, then corr = (AVG(x*y) - AVG(x)*AVG(y)) / (STD_x * STD_y).",
	"beta":              "Compute daily returns and apply beta = COV(stock, index) / VAR(index).",
	"sharpe_ratio":      "Compute daily returns, annualize the mean and standard deviation, then apply (avg_return - risk_free_rate) / std_dev.",
	"single_day_drop":   "Compute the daily percentage change ((close-open)/open*100) and pick the most negative value.",
	"single_day_gain":   "Same daily percentage change, but pick the highest value.",
}

// BuildPrompt assembles the full synthesis prompt. Feedback from a failed
// previous attempt and an analysis hint are appended when present.
func BuildPrompt(question, feedback, analysisHint string) string {
	system := "You are a SQL generation assistant for PostgreSQL.\n\n" +
		schemaSection + visualizationSection + examplesSection + generalRules

	hintText := ""
	if analysisHint != "" {
		if g, ok := hintGuidance[analysisHint]; ok {
			hintText = "\nADVANCED REQUIREMENT: " + g
		} else {
			hintText = fmt.Sprintf("\nADVANCED REQUIREMENT: Use CTEs and whatever calculations are needed for a '%s' question.", analysisHint)
		}
	}

	if feedback != "" {
		return fmt.Sprintf("%s%s\n\nQuestion: %s\n\nThe previous SQL failed with: %s\nFix the statement following the rules above.",
			system, hintText, question, feedback)
	}
	return fmt.Sprintf("%s%s\n\nQuestion: %s", system, hintText, question)
}
