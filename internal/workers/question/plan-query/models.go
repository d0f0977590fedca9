// internal/workers/question/plan-query/models.go
package planquery

import "djia-agent/internal/models"

type Input struct {
	RequestID string `json:"requestId"`
	Question  string `json:"question"`
}

type Output struct {
	Complexity   *models.QueryComplexity `json:"complexity"`
	Plan         []models.PlanStep       `json:"plan"`
	NeedsChart   bool                    `json:"needsChart"`
	ChartType    string                  `json:"chartType,omitempty"`
	AnalysisHint string                  `json:"analysisHint,omitempty"`
}
