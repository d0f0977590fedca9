package sqlgen

import (
	"regexp"
	"strings"
)

var (
	codeBlockRe   = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\n(.*?)```")
	firstStmtRe   = regexp.MustCompile(`(?i)\b(WITH|SELECT|INSERT|UPDATE|DELETE)\b`)
	lowerSQLLabel = "sql:"
)

// ExtractSQL isolates a single SQL statement from raw model output. The
// model may wrap the statement in a code fence, prefix it with reasoning or
// a "SQL:" label, or do all three at once.
func ExtractSQL(response string) string {
	sql := strings.TrimSpace(response)

	if m := codeBlockRe.FindStringSubmatch(sql); m != nil {
		sql = strings.TrimSpace(m[1])
	}
	if strings.Contains(response, "SQL:") {
		parts := strings.Split(response, "SQL:")
		sql = strings.TrimSpace(parts[len(parts)-1])
	} else if idx := strings.LastIndex(strings.ToLower(response), lowerSQLLabel); idx >= 0 {
		sql = strings.TrimSpace(response[idx+len(lowerSQLLabel):])
	}

	// The statement after the label can still be fenced.
	if strings.HasPrefix(sql, "```") {
		lines := strings.Split(sql, "\n")
		if strings.HasPrefix(lines[0], "```") {
			lines = lines[1:]
		}
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
			lines = lines[:len(lines)-1]
		}
		sql = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	// Drop any leftover prose before the first SQL keyword.
	if loc := firstStmtRe.FindStringIndex(sql); loc != nil {
		sql = strings.TrimSpace(sql[loc[0]:])
	}

	if sql != "" && !strings.HasSuffix(sql, ";") {
		sql += ";"
	}
	return sql
}
