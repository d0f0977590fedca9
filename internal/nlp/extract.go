// internal/nlp/extract.go
package nlp

import (
	"regexp"
	"sort"
	"strings"
)

// Words that look like tickers in uppercase text but never are.
var tickerIgnoreWords = map[string]bool{
	"djia": true, "plot": true, "pie": true, "bar": true,
	"scatter": true, "heatmap": true, "chart": true, "graph": true,
}

var allCompanyPhrases = []string{
	"all companies", "all djia", "each company", "every company",
	"all 30", "regression channel",
}

var upperTickerRe = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// NormalizeText lowercases, straightens curly apostrophes and collapses
// whitespace.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "’", "'")
	return strings.Join(strings.Fields(s), " ")
}

// IsAllCompanies reports whether the question addresses the whole index
// rather than a single company.
func IsAllCompanies(question string) bool {
	q := NormalizeText(question)
	for _, p := range allCompanyPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// ExtractTicker finds a single company mention in the question and returns
// its ticker. Questions about all index members yield "". Company names are
// tried before raw uppercase symbols so "Apple" beats a stray "CEO".
func ExtractTicker(question string, aliases *AliasTable) string {
	if IsAllCompanies(question) {
		return ""
	}
	if ticker := aliases.Resolve(question); ticker != "" {
		return ticker
	}
	for _, m := range upperTickerRe.FindAllString(question, -1) {
		if !tickerIgnoreWords[strings.ToLower(m)] {
			return m
		}
	}
	return ""
}

// DateParts holds whichever calendar fragments were mentioned.
type DateParts struct {
	Date  string // full ISO date, yyyy-mm-dd
	Year  string
	Month string // two digits, zero padded
	Day   string // two digits, zero padded
}

var monthNames = map[string]string{
	"january": "01", "february": "02", "march": "03", "april": "04",
	"may": "05", "june": "06", "july": "07", "august": "08",
	"september": "09", "october": "10", "november": "11", "december": "12",
}

var (
	isoDateRe      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dayFirstDateRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	monthDayYearRe = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2}),?\s+(\d{4})\b`)
	monthYearRe    = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})\b`)
	yearRe         = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
)

// ExtractDateParts pulls the most specific calendar reference out of the
// question. Spelled-out dates win over ISO, ISO over day-first slash dates,
// and any full date over month+year or a bare year. Day-first dates are
// read as DD/MM/YYYY, not the US order.
func ExtractDateParts(question string) DateParts {
	q := NormalizeText(question)

	if m := monthDayYearRe.FindStringSubmatch(q); m != nil {
		month := monthNames[m[1]]
		day := pad2(m[2])
		return DateParts{
			Date:  m[3] + "-" + month + "-" + day,
			Year:  m[3],
			Month: month,
			Day:   day,
		}
	}
	if m := isoDateRe.FindStringSubmatch(q); m != nil {
		return DateParts{Date: m[0], Year: m[1], Month: m[2], Day: m[3]}
	}
	if m := dayFirstDateRe.FindStringSubmatch(q); m != nil {
		day := pad2(m[1])
		month := pad2(m[2])
		return DateParts{
			Date:  m[3] + "-" + month + "-" + day,
			Year:  m[3],
			Month: month,
			Day:   day,
		}
	}
	if m := monthYearRe.FindStringSubmatch(q); m != nil {
		return DateParts{Year: m[2], Month: monthNames[m[1]]}
	}
	if m := yearRe.FindStringSubmatch(q); m != nil {
		return DateParts{Year: m[1]}
	}
	return DateParts{}
}

// ExtractDateRange collects every date-shaped substring of any supported
// absolute format, orders them by position in the text and returns the first
// two as (start, end). A question mentioning two unrelated dates therefore
// produces a range; that is the accepted cost of the heuristic.
func ExtractDateRange(question string) (start, end string) {
	q := NormalizeText(question)

	type hit struct {
		pos  int
		date string
	}
	var hits []hit

	for _, m := range isoDateRe.FindAllStringSubmatchIndex(q, -1) {
		hits = append(hits, hit{pos: m[0], date: q[m[0]:m[1]]})
	}
	for _, m := range dayFirstDateRe.FindAllStringSubmatchIndex(q, -1) {
		day := pad2(q[m[2]:m[3]])
		month := pad2(q[m[4]:m[5]])
		hits = append(hits, hit{pos: m[0], date: q[m[6]:m[7]] + "-" + month + "-" + day})
	}
	for _, m := range monthDayYearRe.FindAllStringSubmatchIndex(q, -1) {
		month := monthNames[q[m[2]:m[3]]]
		day := pad2(q[m[4]:m[5]])
		hits = append(hits, hit{pos: m[0], date: q[m[6]:m[7]] + "-" + month + "-" + day})
	}

	if len(hits) < 2 {
		return "", ""
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	return hits[0].date, hits[1].date
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

var (
	quarterShortRe   = regexp.MustCompile(`\bq([1-4])\b`)
	quarterWordRe    = regexp.MustCompile(`\b(?:quarter|quý|quy)\s*([1-4])\b`)
	quarterRomanRe   = regexp.MustCompile(`\bqu(?:ý|y)\s*(i{1,3}|iv)\b`)
	quarterOrdinalRe = regexp.MustCompile(`\b(first|second|third|fourth|1st|2nd|3rd|4th)\s+quarter\b`)
	// no trailing \b: RE2 word boundaries are ASCII-only and several of
	// these ordinals end in a diacritic
	quarterViRe = regexp.MustCompile(`\bqu(?:ý|y)\s+(thứ nhất|thu nhat|đầu tiên|dau tien|thứ hai|thu hai|thứ ba|thu ba|thứ tư|thu tu)`)
)

var quarterOrdinals = map[string]int{
	"first": 1, "1st": 1,
	"second": 2, "2nd": 2,
	"third": 3, "3rd": 3,
	"fourth": 4, "4th": 4,
}

// Vietnamese quarter ordinals, with and without diacritics.
var quarterViOrdinals = map[string]int{
	"thứ nhất": 1, "thu nhat": 1, "đầu tiên": 1, "dau tien": 1,
	"thứ hai": 2, "thu hai": 2,
	"thứ ba": 3, "thu ba": 3,
	"thứ tư": 4, "thu tu": 4,
}

var quarterRomans = map[string]int{"i": 1, "ii": 2, "iii": 3, "iv": 4}

var quarterMonths = map[int][]string{
	1: {"january", "february", "march"},
	2: {"april", "may", "june"},
	3: {"july", "august", "september"},
	4: {"october", "november", "december"},
}

// ExtractQuarter returns the quarter number (1..4) mentioned in the question,
// or 0 when no quarter is referenced. Plain month names count toward the
// quarter containing them only when the word "quarter" itself is absent from
// explicit forms.
func ExtractQuarter(question string) int {
	q := NormalizeText(question)

	if m := quarterShortRe.FindStringSubmatch(q); m != nil {
		return int(m[1][0] - '0')
	}
	if m := quarterWordRe.FindStringSubmatch(q); m != nil {
		return int(m[1][0] - '0')
	}
	if m := quarterOrdinalRe.FindStringSubmatch(q); m != nil {
		return quarterOrdinals[m[1]]
	}
	if m := quarterViRe.FindStringSubmatch(q); m != nil {
		return quarterViOrdinals[m[1]]
	}
	if m := quarterRomanRe.FindStringSubmatch(q); m != nil {
		return quarterRomans[m[1]]
	}
	if strings.Contains(q, "quarter") || strings.Contains(q, "quý") {
		for n := 1; n <= 4; n++ {
			for _, month := range quarterMonths[n] {
				if containsWord(q, month) {
					return n
				}
			}
		}
	}
	return 0
}

var (
	monthToMonthRe = regexp.MustCompile(`\bfrom\s+(january|february|march|april|may|june|july|august|september|october|november|december)\s+(?:to|through|until)\s+(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	monthPairRe    = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s*-\s*(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	monthAbbrevRe  = regexp.MustCompile(`\bfrom\s+([a-z]{3})[a-z]*\s+(?:to|through|until)\s+([a-z]{3})[a-z]*\b`)
	monthViRe      = regexp.MustCompile(`\bth(?:á|a)ng\s+(\d{1,2})\s+(?:đến|den)\s+th(?:á|a)ng\s+(\d{1,2})\b`)
)

var monthAbbrevs = map[string]string{
	"jan": "01", "feb": "02", "mar": "03", "apr": "04",
	"may": "05", "jun": "06", "jul": "07", "aug": "08",
	"sep": "09", "oct": "10", "nov": "11", "dec": "12",
}

// ExtractMonthRange returns zero padded month numbers for spans like
// "from March to June", "March-June" or "tháng 3 đến tháng 6". Both are
// empty when no span is found.
func ExtractMonthRange(question string) (startMonth, endMonth string) {
	q := NormalizeText(question)

	if m := monthToMonthRe.FindStringSubmatch(q); m != nil {
		return monthNames[m[1]], monthNames[m[2]]
	}
	if m := monthViRe.FindStringSubmatch(q); m != nil {
		a, b := pad2(m[1]), pad2(m[2])
		if a >= "01" && a <= "12" && b >= "01" && b <= "12" {
			return a, b
		}
	}
	if m := monthPairRe.FindStringSubmatch(q); m != nil {
		return monthNames[m[1]], monthNames[m[2]]
	}
	if m := monthAbbrevRe.FindStringSubmatch(q); m != nil {
		a, okA := monthAbbrevs[m[1]]
		b, okB := monthAbbrevs[m[2]]
		if okA && okB {
			return a, b
		}
	}
	return "", ""
}

var twoTickerSplitRe = regexp.MustCompile(`\s+(?:vs\.?|versus|or)\s+`)

// DetectTwoTickers finds a pair of companies in comparison questions, e.g.
// "Apple vs Microsoft". Returns empty strings unless both sides resolve.
func DetectTwoTickers(question string, aliases *AliasTable) (first, second string) {
	q := NormalizeText(question)

	parts := twoTickerSplitRe.Split(q, 2)
	if len(parts) == 2 {
		a := resolveSide(parts[0], aliases)
		b := resolveSide(parts[1], aliases)
		if a != "" && b != "" && a != b {
			return a, b
		}
	}

	var found []string
	for _, m := range upperTickerRe.FindAllString(question, -1) {
		if tickerIgnoreWords[strings.ToLower(m)] {
			continue
		}
		found = append(found, m)
		if len(found) == 2 {
			if found[0] == found[1] {
				return "", ""
			}
			return found[0], found[1]
		}
	}
	return "", ""
}

func resolveSide(side string, aliases *AliasTable) string {
	return aliases.Resolve(side)
}
