// internal/workers/question/generate-sql/models.go
package generatesql

import "djia-agent/internal/models"

type Input struct {
	RequestID    string `json:"requestId"`
	Question     string `json:"question"`
	Feedback     string `json:"feedback,omitempty"`
	AnalysisHint string `json:"analysisHint,omitempty"`
}

type Output struct {
	SQL      string           `json:"sql"`
	Source   models.SQLSource `json:"source"`
	Warnings []string         `json:"warnings,omitempty"`
}
