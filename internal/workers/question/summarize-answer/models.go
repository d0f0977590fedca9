// internal/workers/question/summarize-answer/models.go
package summarizeanswer

import "djia-agent/internal/models"

type Input struct {
	RequestID    string            `json:"requestId"`
	Question     string            `json:"question"`
	IsSQLRelated bool              `json:"isSqlRelated"`
	DisplaySQL   string            `json:"displaySql,omitempty"`
	Result       *models.ResultSet `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
	HasChart     bool              `json:"hasChart"`
}

type Output struct {
	Answer string `json:"answer"`
}
