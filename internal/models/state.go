// internal/models/state.go
package models

// EntityBindings maps statement parameter names to bound values.
// Values are strings, ints, or floats only; they are passed to the driver
// as bound parameters and never interpolated into executed SQL.
type EntityBindings map[string]interface{}

// Clone returns an independent copy of the bindings.
func (b EntityBindings) Clone() EntityBindings {
	if b == nil {
		return nil
	}
	out := make(EntityBindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// ResultSet is the tabular outcome of executing a statement.
type ResultSet struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// Empty reports whether the result contains no rows.
func (r *ResultSet) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// SQLSource identifies where the active statement came from.
type SQLSource string

const (
	SourceNone        SQLSource = "none"
	SourceTemplate    SQLSource = "template"
	SourceSynthesized SQLSource = "synthesized"
)

// WorkflowState carries a question through the resolution pipeline.
// Stages receive a copy, fill in their own fields and return it; a stage
// never clears fields owned by an earlier stage.
type WorkflowState struct {
	RequestID string `json:"requestId"`
	Question  string `json:"question"`

	// classification
	IsSQLRelated bool `json:"isSqlRelated"`

	// planning
	Complexity   *QueryComplexity `json:"complexity,omitempty"`
	Plan         []PlanStep       `json:"plan,omitempty"`
	NeedsChart   bool             `json:"needsChart"`
	ChartType    string           `json:"chartType,omitempty"`
	AnalysisHint string           `json:"analysisHint,omitempty"`

	// template matching / synthesis
	Ticker         string    `json:"ticker,omitempty"`
	SQL            string    `json:"sql,omitempty"`
	Source         SQLSource `json:"source"`
	ForceSynthesis bool      `json:"forceSynthesis"`
	Warnings       []string  `json:"warnings,omitempty"`

	// execution
	Bindings   EntityBindings `json:"bindings,omitempty"`
	Result     *ResultSet     `json:"result,omitempty"`
	DisplaySQL string         `json:"displaySql,omitempty"`

	// retry bookkeeping
	Error    string `json:"error,omitempty"`
	Feedback string `json:"feedback,omitempty"`
	Attempts int    `json:"attempts"`

	// presentation
	Answer     string `json:"answer,omitempty"`
	ChartCode  string `json:"chartCode,omitempty"`
	ChartError string `json:"chartError,omitempty"`
}

// Resolution projects the final state onto the result handed back to the
// caller.
func (s WorkflowState) Resolution() *ResolutionResult {
	return &ResolutionResult{
		RequestID:  s.RequestID,
		Question:   s.Question,
		Answer:     s.Answer,
		SQL:        s.SQL,
		DisplaySQL: s.DisplaySQL,
		Source:     s.Source,
		Result:     s.Result,
		ChartCode:  s.ChartCode,
		ChartError: s.ChartError,
		Error:      s.Error,
		Attempts:   s.Attempts,
		Warnings:   s.Warnings,
	}
}

// QueryComplexity is the planner's structural read of a question.
type QueryComplexity struct {
	IsMultiStep       bool `json:"isMultiStep"`
	IsComparison      bool `json:"isComparison"`
	IsAggregation     bool `json:"isAggregation"`
	IsStatistical     bool `json:"isStatistical"`
	IsTimeSeries      bool `json:"isTimeSeries"`
	MultipleCompanies bool `json:"multipleCompanies"`
}

// PlanStep is one step of a multi-step execution plan.
type PlanStep struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
}

// ResolutionResult is the terminal outcome returned to the caller.
type ResolutionResult struct {
	RequestID  string     `json:"requestId"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	SQL        string     `json:"sql,omitempty"`
	DisplaySQL string     `json:"displaySql,omitempty"`
	Source     SQLSource  `json:"source"`
	Result     *ResultSet `json:"result,omitempty"`
	ChartCode  string     `json:"chartCode,omitempty"`
	ChartError string     `json:"chartError,omitempty"`
	Error      string     `json:"error,omitempty"`
	Attempts   int        `json:"attempts"`
	Warnings   []string   `json:"warnings,omitempty"`
}
