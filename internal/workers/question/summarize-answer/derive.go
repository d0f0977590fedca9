// internal/workers/question/summarize-answer/derive.go
package summarizeanswer

import (
	"encoding/json"
	"fmt"

	"djia-agent/internal/models"
)

// preferredColumns is the lookup order for picking the answer value out of a
// multi column first row.
var preferredColumns = []string{
	"close",
	"open",
	"high",
	"low",
	"volume",
	"max_close",
	"min_close",
	"avg_close",
	"median_close",
	"a_close",
	"b_close",
}

// DeriveAnswer produces a plain answer straight from the result set, used
// when no language model is available or its summary comes back empty.
func DeriveAnswer(result *models.ResultSet) string {
	if result.Empty() {
		return "No matching data found."
	}

	first := result.Rows[0]
	if len(result.Columns) == 1 {
		return formatValue(first[result.Columns[0]])
	}

	for _, col := range preferredColumns {
		if val, ok := first[col]; ok {
			return formatValue(val)
		}
	}

	blob, err := json.Marshal(first)
	if err != nil {
		return fmt.Sprintf("%v", first)
	}
	return string(blob)
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case float64:
		return fmt.Sprintf("%g", t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
