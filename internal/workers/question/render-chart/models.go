// internal/workers/question/render-chart/models.go
package renderchart

import "djia-agent/internal/models"

type Input struct {
	RequestID string            `json:"requestId"`
	Question  string            `json:"question"`
	ChartType string            `json:"chartType,omitempty"`
	Result    *models.ResultSet `json:"result,omitempty"`
}

// Output carries generated Plotly code. Chart failures never fail the
// question: ChartError is set and the answer still goes out without a chart.
type Output struct {
	ChartCode  string `json:"chartCode,omitempty"`
	ChartError string `json:"chartError,omitempty"`
}
