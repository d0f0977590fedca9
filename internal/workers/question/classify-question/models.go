// internal/workers/question/classify-question/models.go
package classifyquestion

type Input struct {
	RequestID string `json:"requestId"`
	Question  string `json:"question"`
}

type Output struct {
	IsSQLRelated bool   `json:"isSqlRelated"`
	Method       string `json:"method"`
}
