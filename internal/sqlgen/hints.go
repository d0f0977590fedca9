package sqlgen

import "strings"

type hintRule struct {
	hint     string
	keywords []string
}

// Ordered so the more specific phrasings win over the generic ones.
var hintRules = []hintRule{
	{"max_drawdown", []string{"max drawdown", "maximum drawdown", "drawdown"}},
	{"sharpe_ratio", []string{"sharpe"}},
	{"beta", []string{"beta"}},
	{"correlation", []string{"correlation", "correlate", "correlated"}},
	{"moving_average", []string{"moving average", "rolling average"}},
	{"std_dev", []string{"standard deviation", "volatility"}},
	{"cumulative_return", []string{"cumulative return", "total return", "percentage return"}},
	{"single_day_drop", []string{"biggest drop", "largest drop", "worst day", "single-day drop", "single day drop"}},
	{"single_day_gain", []string{"biggest gain", "largest gain", "best day", "single-day gain", "single day gain"}},
	{"days_percentage", []string{"percentage of days", "percent of days"}},
	{"days_count", []string{"how many days", "number of days", "how many trading days"}},
	{"ranking", []string{"top 3", "top three", "rank", "ranking", "best performing", "worst performing"}},
}

// DetectAnalysisHint classifies a question into one of the advanced analysis
// categories the synthesis prompt has dedicated guidance for. Returns ""
// for plain lookups.
func DetectAnalysisHint(question string) string {
	q := strings.ToLower(question)
	for _, r := range hintRules {
		for _, kw := range r.keywords {
			if strings.Contains(q, kw) {
				return r.hint
			}
		}
	}
	return ""
}
