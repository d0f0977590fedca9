// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeClassificationFailed ErrorCode = "CLASSIFICATION_FAILED"
	ErrCodePlanningFailed       ErrorCode = "PLANNING_FAILED"

	ErrCodeTemplateCatalogInvalid ErrorCode = "TEMPLATE_CATALOG_INVALID"
	ErrCodeNoTemplateMatch        ErrorCode = "NO_TEMPLATE_MATCH"

	ErrCodeSynthesisEmpty     ErrorCode = "SYNTHESIS_EMPTY"
	ErrCodeLLMTimeout         ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMSynthesisFailed ErrorCode = "LLM_SYNTHESIS_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeSQLExecutionFailed       ErrorCode = "SQL_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeParameterBindingFailed   ErrorCode = "PARAMETER_BINDING_FAILED"

	ErrCodeRetryBudgetExhausted ErrorCode = "RETRY_BUDGET_EXHAUSTED"
	ErrCodeChartRenderFailed    ErrorCode = "CHART_RENDER_FAILED"
	ErrCodeSummaryFailed        ErrorCode = "SUMMARY_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewClassificationFailedError creates a retryable classifier error.
func NewClassificationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassificationFailed,
		Message:   "Question classification API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanningFailedError creates a retryable planner error.
func NewPlanningFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePlanningFailed,
		Message:   "Query planning error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateCatalogInvalidError creates a non-retryable catalog error.
func NewTemplateCatalogInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateCatalogInvalid,
		Message:   "Template catalog could not be loaded",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoTemplateMatchError creates a non-retryable no-match error.
// It is not a failure: the pipeline falls through to synthesis.
func NewNoTemplateMatchError(question string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoTemplateMatch,
		Message:   "No catalog template matched the question",
		Details:   fmt.Sprintf("question: %s", question),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSynthesisEmptyError creates a retryable empty-synthesis error.
func NewSynthesisEmptyError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSynthesisEmpty,
		Message:   "LLM response contained no SQL statement",
		Details:   "no statement keyword found in model output",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "LLM generation timeout",
		Details:   "LLM call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMSynthesisFailedError creates a retryable LLM synthesis error.
func NewLLMSynthesisFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMSynthesisFailed,
		Message:   "LLM synthesis API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSQLExecutionFailedError creates a retryable execution error carrying the
// failing statement so the next synthesis attempt can see it.
func NewSQLExecutionFailedError(sqlText string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSQLExecutionFailed,
		Message:   "SQL execution error",
		Details:   fmt.Sprintf("%s. SQL: %s", err.Error(), sqlText),
		Retryable: true,
		Metadata:  map[string]interface{}{"sql": sqlText},
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   "query exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewParameterBindingFailedError creates a non-retryable binding error.
func NewParameterBindingFailedError(param string) *StandardError {
	return &StandardError{
		Code:      ErrCodeParameterBindingFailed,
		Message:   "Statement references a parameter with no binding",
		Details:   fmt.Sprintf("parameter: %s", param),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRetryBudgetExhaustedError creates a terminal error after all synthesis
// attempts failed.
func NewRetryBudgetExhaustedError(attempts int, lastErr string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetryBudgetExhausted,
		Message:   "Could not resolve the question to a working query",
		Details:   fmt.Sprintf("attempts: %d, last error: %s", attempts, lastErr),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewChartRenderFailedError creates a non-retryable chart error. Chart failure
// never fails the workflow, it only annotates the result.
func NewChartRenderFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeChartRenderFailed,
		Message:   "Chart code generation failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSummaryFailedError creates a retryable summarizer error.
func NewSummaryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSummaryFailed,
		Message:   "Answer summarization error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes (same as internal).
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeClassificationFailed:     "CLASSIFICATION_FAILED",
	ErrCodePlanningFailed:           "PLANNING_FAILED",
	ErrCodeTemplateCatalogInvalid:   "TEMPLATE_CATALOG_INVALID",
	ErrCodeNoTemplateMatch:          "NO_TEMPLATE_MATCH",
	ErrCodeSynthesisEmpty:           "SYNTHESIS_EMPTY",
	ErrCodeLLMTimeout:               "LLM_TIMEOUT",
	ErrCodeLLMSynthesisFailed:       "LLM_SYNTHESIS_FAILED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeSQLExecutionFailed:       "SQL_EXECUTION_FAILED",
	ErrCodeQueryTimeout:             "QUERY_TIMEOUT",
	ErrCodeParameterBindingFailed:   "PARAMETER_BINDING_FAILED",
	ErrCodeRetryBudgetExhausted:     "RETRY_BUDGET_EXHAUSTED",
	ErrCodeChartRenderFailed:        "CHART_RENDER_FAILED",
	ErrCodeSummaryFailed:            "SUMMARY_FAILED",
}

// GetRetryCount returns the recommended engine-level retry count per code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeSQLExecutionFailed,
		ErrCodeLLMSynthesisFailed,
		ErrCodeSynthesisEmpty,
		ErrCodeClassificationFailed,
		ErrCodePlanningFailed,
		ErrCodeSummaryFailed:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout:
		return 2 // Partial retry for timeouts

	case ErrCodeLLMTimeout:
		return 1 // As per BPMN boundary event

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TEMPLATE") || strings.Contains(codeStr, "CATALOG"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "SQL") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "PARAMETER"):
		return "DATABASE"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "SYNTHESIS") || strings.Contains(codeStr, "CLASSIFICATION") || strings.Contains(codeStr, "SUMMARY"):
		return "AI"
	case strings.Contains(codeStr, "CHART"):
		return "CHART"
	case strings.Contains(codeStr, "RETRY"):
		return "PIPELINE"
	default:
		return "OTHER"
	}
}
