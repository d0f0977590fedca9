// internal/nlp/aliases.go
package nlp

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

var nameStopWords = map[string]bool{
	"inc": true, "incorporated": true, "corporation": true,
	"corp": true, "company": true, "co": true, "plc": true, "the": true,
}

// CanonicalizeCompanyName lowercases a company name, strips punctuation and
// drops legal-form noise words ("Inc.", "Corp", ...), so "Apple Inc." and
// "apple" collapse to the same key.
func CanonicalizeCompanyName(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "(the)", " ")
	s = nonAlnumRe.ReplaceAllString(s, " ")

	var tokens []string
	for _, t := range strings.Fields(s) {
		if !nameStopWords[t] {
			tokens = append(tokens, t)
		}
	}
	return strings.Join(tokens, " ")
}

type aliasEntry struct {
	name   string
	ticker string
}

// AliasTable resolves company name mentions to DJIA ticker symbols.
// Entries are matched longest name first so "jp morgan chase" wins over
// "jp morgan".
type AliasTable struct {
	entries []aliasEntry
	byName  map[string]string
}

func manualAliases() map[string]string {
	return map[string]string{
		"apple":                    "AAPL",
		"microsoft":                "MSFT",
		"boeing":                   "BA",
		"disney":                   "DIS",
		"coca-cola":                "KO",
		"coca cola":                "KO",
		"cocacola":                 "KO",
		"ibm":                      "IBM",
		"verizon":                  "VZ",
		"unitedhealth":             "UNH",
		"unitedhealth group":       "UNH",
		"walgreens":                "WBA",
		"walgreens boots alliance": "WBA",
		"chevron":                  "CVX",
		"american express":         "AXP",
		"amgen":                    "AMGN",
		"caterpillar":              "CAT",
		"honeywell":                "HON",
		"mcdonald's":               "MCD",
		"mcdonalds":                "MCD",
		"nike":                     "NKE",
		"jpmorgan":                 "JPM",
		"jp morgan":                "JPM",
		"johnson & johnson":        "JNJ",
		"johnson johnson":          "JNJ",
		"home depot":               "HD",
		"dow":                      "DOW",
		"salesforce":               "CRM",
		"cisco":                    "CSCO",
		"visa":                     "V",
		"procter & gamble":         "PG",
		"procter gamble":           "PG",
		"merck":                    "MRK",
		"travellers":               "TRV",
		"travelers":                "TRV",
		"walmart":                  "WMT",
		"three m":                  "MMM",
		"3m":                       "MMM",
		"goldman sachs":            "GS",
	}
}

// NewAliasTable builds the table from the built-in DJIA alias map.
func NewAliasTable() *AliasTable {
	t := &AliasTable{byName: make(map[string]string)}
	for name, ticker := range manualAliases() {
		t.byName[name] = ticker
	}
	t.rebuild()
	return t
}

// LoadCSV merges symbol/name pairs from a companies CSV into the table.
// The first row is treated as a header with "symbol" and "name" columns.
func (t *AliasTable) LoadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open alias csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read alias csv: %w", err)
	}
	if len(records) < 2 {
		return nil
	}

	symbolIdx, nameIdx := -1, -1
	for i, h := range records[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "symbol":
			symbolIdx = i
		case "name":
			nameIdx = i
		}
	}
	if symbolIdx < 0 {
		return fmt.Errorf("alias csv %s has no symbol column", path)
	}

	for _, row := range records[1:] {
		if symbolIdx >= len(row) {
			continue
		}
		symbol := strings.TrimSpace(row[symbolIdx])
		if symbol == "" {
			continue
		}
		t.byName[strings.ToLower(symbol)] = symbol
		if nameIdx >= 0 && nameIdx < len(row) {
			if canon := CanonicalizeCompanyName(row[nameIdx]); canon != "" {
				t.byName[canon] = symbol
			}
		}
	}

	t.rebuild()
	return nil
}

// rebuild sorts entries longest-first, then alphabetically, so lookup order
// is deterministic.
func (t *AliasTable) rebuild() {
	t.entries = t.entries[:0]
	for name, ticker := range t.byName {
		t.entries = append(t.entries, aliasEntry{name: name, ticker: ticker})
	}
	sort.Slice(t.entries, func(i, j int) bool {
		if len(t.entries[i].name) != len(t.entries[j].name) {
			return len(t.entries[i].name) > len(t.entries[j].name)
		}
		return t.entries[i].name < t.entries[j].name
	})
}

// Resolve returns the ticker for the first alias found as a whole word in the
// normalized text, or "" when none matches.
func (t *AliasTable) Resolve(text string) string {
	q := NormalizeText(text)
	for _, e := range t.entries {
		if containsWord(q, e.name) {
			return e.ticker
		}
	}
	return ""
}

// ResolveName returns the alias text itself rather than the ticker, for
// statements that filter on a company name fragment. Longest alias wins,
// same as Resolve.
func (t *AliasTable) ResolveName(text string) string {
	q := NormalizeText(text)
	for _, e := range t.entries {
		if containsWord(q, e.name) {
			return e.name
		}
	}
	return ""
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
