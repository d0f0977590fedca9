package sqlexec

import (
	"fmt"
	"sort"
	"strings"

	"djia-agent/internal/models"
)

// DisplaySQL substitutes bound values into the statement for presentation.
// The result is never executed; the real query runs with bind parameters.
// Longer parameter names substitute first so :ticker never clobbers
// :ticker_a, and comment lines are dropped.
func DisplaySQL(sqlText string, params models.EntityBindings) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	display := sqlText
	for _, name := range names {
		var rendered string
		switch v := params[name].(type) {
		case string:
			rendered = "'" + v + "'"
		default:
			rendered = fmt.Sprintf("%v", v)
		}
		display = strings.ReplaceAll(display, ":"+name, rendered)
	}

	var lines []string
	for _, line := range strings.Split(display, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
