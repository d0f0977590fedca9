// internal/workers/question/match-template/models.go
package matchtemplate

import "djia-agent/internal/models"

type Input struct {
	RequestID  string                  `json:"requestId"`
	Question   string                  `json:"question"`
	Complexity *models.QueryComplexity `json:"complexity,omitempty"`
	NeedsChart bool                    `json:"needsChart"`
}

type Output struct {
	Ticker         string           `json:"ticker,omitempty"`
	SQL            string           `json:"sql,omitempty"`
	Source         models.SQLSource `json:"source"`
	MatchRule      string           `json:"matchRule,omitempty"`
	ForceSynthesis bool             `json:"forceSynthesis"`
}
