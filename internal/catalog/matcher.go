package catalog

import (
	"strings"

	"djia-agent/internal/nlp"
)

// Matcher resolves a question to a catalog statement through an ordered
// cascade of structural rules. Comparative rules run first so two-company
// questions never fall into the single-company templates.
type Matcher struct {
	catalog *Catalog
	aliases *nlp.AliasTable
}

func NewMatcher(c *Catalog, aliases *nlp.AliasTable) *Matcher {
	return &Matcher{catalog: c, aliases: aliases}
}

// Match returns the first template whose markers fit the question, along
// with the name of the rule that selected it. Both are empty when no rule
// fires.
func (m *Matcher) Match(question string) (sql, rule string) {
	q := nlp.NormalizeText(question)
	find := m.catalog.FindWith

	parts := nlp.ExtractDateParts(question)
	hasDate := parts.Date != ""
	hasYear := parts.Year != ""
	startDate, endDate := nlp.ExtractDateRange(question)
	hasDateRange := startDate != "" && endDate != ""
	ticker := nlp.ExtractTicker(question, m.aliases)
	t1, t2 := nlp.DetectTwoTickers(question, m.aliases)
	twoTickers := t1 != "" && t2 != ""

	comparative := strings.Contains(q, "higher") || strings.Contains(q, "which")

	// Two-company yearly dividends first, before the per-date pairs.
	if twoTickers && hasYear && mentionsDividend(q) && comparative {
		if s := find("a_dividends_per_share", "b_dividends_per_share"); s != "" {
			return s, "two_ticker_dividends_year"
		}
		if s := find("sum(dividends)", "to_char(date, 'yyyy') = :year"); s != "" {
			return s, "two_ticker_dividends_year"
		}
	}

	// Two-company on a single date, by the field being compared.
	if twoTickers && comparative {
		pairs := []struct {
			phrase  []string
			markers []string
			rule    string
		}{
			{[]string{"closing price"}, []string{"a_close", "b_close", "cast(:date as date)"}, "two_ticker_close"},
			{[]string{"opening price"}, []string{"a_open", "b_open", "cast(:date as date)"}, "two_ticker_open"},
			{[]string{"high"}, []string{"a_high", "b_high", "cast(:date as date)"}, "two_ticker_high"},
			{[]string{"low"}, []string{"a_low", "b_low", "cast(:date as date)"}, "two_ticker_low"},
			{[]string{"volume"}, []string{"a_volume", "b_volume", "cast(:date as date)"}, "two_ticker_volume"},
			{[]string{"dividend"}, []string{"a_dividends", "b_dividends", "cast(:date as date)"}, "two_ticker_dividends"},
			{[]string{"stock split"}, []string{"a_stock_splits", "b_stock_splits", "cast(:date as date)"}, "two_ticker_splits"},
		}
		for _, p := range pairs {
			if containsAny(q, p.phrase) {
				if s := find(p.markers...); s != "" {
					return s, p.rule
				}
			}
		}
	}

	// "Which company had the highest/lowest <field> on <date>?"
	if hasDate && !hasDateRange && !twoTickers && strings.Contains(q, "which company") {
		fields := []struct {
			phrase []string
			field  string
			rule   string
		}{
			{[]string{"closing price"}, "close", "which_company_close"},
			{[]string{"opening price"}, "open", "which_company_open"},
			{[]string{"high"}, "high", "which_company_high"},
			{[]string{"low"}, "low", "which_company_low"},
			{[]string{"volume"}, "volume", "which_company_volume"},
			{[]string{"dividend"}, "dividends", "which_company_dividends"},
			{[]string{"stock split", "split ratio"}, "stock_splits", "which_company_splits"},
		}
		for _, f := range fields {
			if !containsAny(q, f.phrase) {
				continue
			}
			fieldsMarker := "fields: company, " + f.field
			if s := find(fieldsMarker, "order by p."+f.field+" desc"); s != "" {
				return s, f.rule
			}
			if s := find(fieldsMarker, "order by p."+f.field+" asc"); s != "" {
				return s, f.rule
			}
		}
	}

	// Yearly extremes for a single company, only without a full date.
	if hasYear && !hasDate {
		if strings.Contains(q, "highest closing price") {
			if s := find("order by close desc", "to_char(date, 'yyyy') = :year"); s != "" {
				return s, "year_highest_close"
			}
		}
		if strings.Contains(q, "lowest closing price") {
			if s := find("order by close asc", "to_char(date, 'yyyy') = :year"); s != "" {
				return s, "year_lowest_close"
			}
		}
	}
	if hasYear && (strings.Contains(q, "how many dividends") ||
		(strings.Contains(q, "dividends") && strings.Contains(q, "in"))) {
		if s := find("count(*) as dividends_count", "dividends > 0"); s != "" {
			return s, "dividends_count_year"
		}
	}
	if hasDate && strings.Contains(q, "dividend per share") {
		if s := find("select dividends as dividend_per_share", "cast(:date as date)"); s != "" {
			return s, "dividend_per_share_date"
		}
	}
	if strings.Contains(q, "stock split") {
		if s := find("split_ratio", "stock splits"); s != "" {
			return s, "stock_split_history"
		}
	}

	// Single value on a single date.
	if hasDate && !hasDateRange && !twoTickers {
		if strings.Contains(q, "closing price") &&
			!strings.Contains(q, "change") && !strings.Contains(q, "from") && !strings.Contains(q, " to ") {
			if s := find("select close", "cast(:date as date)"); s != "" {
				return s, "close_on_date"
			}
		}
		if strings.Contains(q, "opening price") {
			if s := find("select open", "cast(:date as date)"); s != "" {
				return s, "open_on_date"
			}
		}
		if strings.Contains(q, "highest price") {
			if s := find("select high", "cast(:date as date)"); s != "" {
				return s, "high_on_date"
			}
		}
		if strings.Contains(q, "lowest price") {
			if s := find("select low", "cast(:date as date)"); s != "" {
				return s, "low_on_date"
			}
		}
		if strings.Contains(q, "trading volume") || strings.Contains(q, "volume") {
			if s := find("select volume", "cast(:date as date)"); s != "" {
				return s, "volume_on_date"
			}
		}
	}

	// Aggregates over a year for one company.
	if hasYear && ticker != "" {
		if strings.Contains(q, "total trading volume") {
			if s := find("sum(volume) as total_volume", "to_char(date, 'yyyy') = :year"); s != "" {
				return s, "total_volume_year"
			}
		}
		averaging := strings.Contains(q, "average closing price") || strings.Contains(q, "average close")
		if averaging && parts.Month != "" && strings.Contains(q, "month") {
			if s := find("avg_close", "to_char(date, 'mm') = :month"); s != "" {
				return s, "avg_close_month"
			}
		}
		if averaging && nlp.ExtractQuarter(question) > 0 {
			if s := find("avg_close", ":quarter"); s != "" {
				return s, "avg_close_quarter"
			}
		}
		if strings.Contains(q, "average daily trading volume") || strings.Contains(q, "average volume") {
			if s := find("avg_volume", "avg(volume)"); s != "" {
				return s, "avg_volume_year"
			}
		}
		if averaging {
			if sm, em := nlp.ExtractMonthRange(question); sm != "" && em != "" {
				if s := find("avg_close", "to_char(date, 'mm') between :start_month and :end_month"); s != "" {
					return s, "avg_close_month_range"
				}
			}
		}
		if strings.Contains(q, "percentage") && strings.Contains(q, "increase") {
			if s := find("percentage_increase", "with year_prices"); s != "" {
				return s, "percentage_increase_year"
			}
		}
		if strings.Contains(q, "second half") && strings.Contains(q, "average") {
			if s := find("avg_close", "to_char(date, 'mm') in ('07', '08', '09', '10', '11', '12')"); s != "" {
				return s, "avg_close_second_half"
			}
		}
	}

	// Index level metadata.
	if strings.Contains(q, "dividend yield") &&
		(strings.Contains(q, "djia") || strings.Contains(q, "as a whole")) {
		if s := find("avg_dividend_yield", "from companies"); s != "" {
			return s, "index_dividend_yield"
		}
	}

	// Company metadata.
	if ticker != "" {
		if strings.Contains(q, "sector") {
			if s := find("select sector", "from companies"); s != "" {
				return s, "company_sector"
			}
		}
		if strings.Contains(q, "ticker symbol") {
			if s := find("fields: symbol"); s != "" {
				return s, "company_symbol"
			}
		}
	}

	if strings.Contains(q, "median") {
		if s := find("median_close"); s != "" {
			return s, "median_close"
		}
	}

	// Year-over-year extremes across the index.
	if hasYear && !hasDate && !twoTickers {
		if strings.Contains(q, "largest percentage increase") && strings.Contains(q, "stock price") {
			if s := find("percentage_change", "with price_changes", "max(close) - min(close)"); s != "" {
				return s, "largest_pct_increase"
			}
		}
		if strings.Contains(q, "largest absolute increase") &&
			(strings.Contains(q, "dollars") || strings.Contains(q, "usd")) {
			if s := find("absolute_change", "with price_changes", "max(close) - min(close)"); s != "" {
				return s, "largest_abs_increase"
			}
		}
		if strings.Contains(q, "largest percentage decline") && strings.Contains(q, "stock price") {
			if s := find("percentage_decline", "with price_changes", "min(close) - max(close)"); s != "" {
				return s, "largest_pct_decline"
			}
		}
	}

	// Price change between two dates, ahead of the single-date fallbacks.
	if strings.Contains(q, "change from") ||
		(strings.Contains(q, "from") && strings.Contains(q, " to ")) {
		if s := find("price_change", "start_price", "end_price", "cross join"); s != "" {
			return s, "price_change_range"
		}
	}

	// Cross-company extreme on a date when no field was named explicitly.
	if hasDate && !twoTickers {
		if strings.Contains(q, "lowest") {
			if s := find("fields: company, close", "order by p.close asc", "limit 1"); s != "" {
				return s, "lowest_close_on_date"
			}
		}
		if s := find("fields: company, close", "order by p.close desc", "limit 1"); s != "" {
			return s, "highest_close_on_date"
		}
	}

	return "", ""
}

func mentionsDividend(q string) bool {
	return strings.Contains(q, "dividend")
}

func containsAny(q string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}
