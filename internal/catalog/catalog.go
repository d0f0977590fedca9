// Package catalog loads the curated SQL template file and matches
// questions against it by structural markers.
package catalog

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var statementSplitRe = regexp.MustCompile(`;\s*\n`)

// Catalog is an ordered list of parameterized SQL statements. Order follows
// the template file, so marker lookups are deterministic.
type Catalog struct {
	statements []string
	lowered    []string
}

// Load reads a template file and splits it into statements on the
// terminating semicolon.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template catalog: %w", err)
	}
	return Parse(string(raw)), nil
}

// Parse splits raw catalog text into statements. Each statement keeps its
// leading comment lines, which carry the field markers used for matching.
func Parse(text string) *Catalog {
	c := &Catalog{}
	for _, part := range statementSplitRe.Split(text, -1) {
		s := strings.TrimSpace(part)
		if s == "" {
			continue
		}
		s += ";"
		c.statements = append(c.statements, s)
		c.lowered = append(c.lowered, strings.ToLower(s))
	}
	return c
}

// Size returns the number of statements in the catalog.
func (c *Catalog) Size() int {
	return len(c.statements)
}

// Statements returns all statements in file order.
func (c *Catalog) Statements() []string {
	out := make([]string, len(c.statements))
	copy(out, c.statements)
	return out
}

// FindWith returns the first statement containing every marker,
// case insensitive, or "" when none does.
func (c *Catalog) FindWith(markers ...string) string {
	for i, low := range c.lowered {
		all := true
		for _, m := range markers {
			if !strings.Contains(low, strings.ToLower(m)) {
				all = false
				break
			}
		}
		if all {
			return c.statements[i]
		}
	}
	return ""
}
