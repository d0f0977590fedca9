// internal/workers/question/execute-sql/models.go
package executesql

import "djia-agent/internal/models"

type Input struct {
	RequestID string           `json:"requestId"`
	Question  string           `json:"question"`
	Ticker    string           `json:"ticker,omitempty"`
	SQL       string           `json:"sql"`
	Source    models.SQLSource `json:"source"`
}

// Output carries the execution outcome back into the workflow. A failed
// statement is not a failed job: Error and Feedback are set and the result
// stays empty so a later synthesis attempt can repair the statement.
type Output struct {
	Result     *models.ResultSet     `json:"result,omitempty"`
	DisplaySQL string                `json:"displaySql,omitempty"`
	Bindings   models.EntityBindings `json:"bindings,omitempty"`
	Error      string                `json:"error,omitempty"`
	Feedback   string                `json:"feedback,omitempty"`
}
