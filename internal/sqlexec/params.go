// Package sqlexec binds question entities to SQL parameters and runs the
// statements against PostgreSQL.
package sqlexec

import (
	"regexp"
	"strconv"
	"strings"

	"djia-agent/internal/models"
	"djia-agent/internal/nlp"
)

// DefaultWindowDays covers roughly six months of sessions for window
// queries that arrive without an explicit range.
const DefaultWindowDays = 180

var (
	colonOrRe  = regexp.MustCompile(`:\s*([^:]+?)\s+or\s+([^?]+)`)
	orPairRe   = regexp.MustCompile(`([^,]+?)\s+or\s+([^,]+?)(?:\s+had|$)`)
	vsPairRe   = regexp.MustCompile(`([^,]+?)\s+vs\s+([^,]+?)(?:\s+had|$)`)
	versPairRe = regexp.MustCompile(`([^,]+?)\s+versus\s+([^,]+?)(?:\s+had|$)`)
)

// BuildParams extracts every binding the statement could need from the
// question. The primary ticker mirrors into ticker_a so comparative
// templates work even when only one side was resolved upstream.
func BuildParams(question, ticker, sqlText string, aliases *nlp.AliasTable) models.EntityBindings {
	parts := nlp.ExtractDateParts(question)
	startDate, endDate := nlp.ExtractDateRange(question)
	quarter := nlp.ExtractQuarter(question)
	startMonth, endMonth := nlp.ExtractMonthRange(question)

	params := models.EntityBindings{}

	if ticker != "" {
		params["ticker"] = ticker
		params["ticker_a"] = ticker
	}

	if parts.Date != "" {
		params["date"] = parts.Date
	}
	if parts.Year != "" {
		params["year"] = parts.Year
	}
	if parts.Month != "" {
		params["month"] = parts.Month
	}
	if startDate != "" {
		params["start_date"] = startDate
	}
	if endDate != "" {
		params["end_date"] = endDate
	}
	if quarter > 0 {
		// to_char(date, 'Q') yields text, so the quarter binds as a string
		params["quarter"] = strconv.Itoa(quarter)
	}
	if startMonth != "" {
		params["start_month"] = startMonth
	}
	if endMonth != "" {
		params["end_month"] = endMonth
	}

	q := nlp.NormalizeText(question)

	// "which had a higher closing price: A or B?"
	if m := colonOrRe.FindStringSubmatch(q); m != nil {
		t1 := nlp.ExtractTicker(m[1], aliases)
		t2 := nlp.ExtractTicker(m[2], aliases)
		if t1 != "" && t2 != "" {
			params["ticker_a"] = t1
			params["ticker_b"] = t2
		}
	}

	// "A or B", "A vs B", "A versus B"
	for _, re := range []*regexp.Regexp{orPairRe, vsPairRe, versPairRe} {
		m := re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		side1 := strings.TrimRight(strings.TrimSpace(m[1]), "?.,!")
		side2 := strings.TrimRight(strings.TrimSpace(m[2]), "?.,!")
		t1 := nlp.ExtractTicker(side1, aliases)
		t2 := nlp.ExtractTicker(side2, aliases)
		if t1 != "" && t2 != "" {
			params["ticker_a"] = t1
			params["ticker_b"] = t2
			break
		}
	}

	if _, ok := params["window_days"]; !ok && strings.Contains(sqlText, ":window_days") {
		params["window_days"] = DefaultWindowDays
	}

	// Best-effort guess for name-fragment lookups: any known alias appearing
	// in the question serves as the :company value.
	if _, ok := params["company"]; !ok && strings.Contains(sqlText, ":company") {
		if name := aliases.ResolveName(q); name != "" {
			params["company"] = name
		}
	}

	return params
}
