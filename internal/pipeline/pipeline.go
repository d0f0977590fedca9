// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"strings"

	apperrors "djia-agent/internal/common/errors"
	"djia-agent/internal/common/metrics"
	"djia-agent/internal/models"
	classifyquestion "djia-agent/internal/workers/question/classify-question"
	executesql "djia-agent/internal/workers/question/execute-sql"
	generatesql "djia-agent/internal/workers/question/generate-sql"
	matchtemplate "djia-agent/internal/workers/question/match-template"
	planquery "djia-agent/internal/workers/question/plan-query"
	renderchart "djia-agent/internal/workers/question/render-chart"
	summarizeanswer "djia-agent/internal/workers/question/summarize-answer"
)

const exhaustedAnswer = "Sorry, I could not produce a working query for this question. Please rephrase it or ask something simpler."

// ErrorCodeExhausted marks a question that ran out of synthesis attempts.
const ErrorCodeExhausted = string(apperrors.ErrCodeRetryBudgetExhausted)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// DocumentRetriever looks up reference document snippets for questions the
// database cannot answer. Implementations may return no snippets.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, question string) ([]string, error)
}

// NoopRetriever never finds anything.
type NoopRetriever struct{}

func (NoopRetriever) Retrieve(context.Context, string) ([]string, error) { return nil, nil }

type Config struct {
	MaxSynthesisAttempts int
}

func LoadConfig() *Config {
	return &Config{
		MaxSynthesisAttempts: 3,
	}
}

// Pipeline chains the question workers into a single in-process resolver.
// The same handlers also run standalone as job workers; here their Execute
// methods are called directly. State flows through the stages as a
// models.WorkflowState passed by value, each stage returns the next state.
type Pipeline struct {
	config      *Config
	classifier  *classifyquestion.Handler
	planner     *planquery.Handler
	matcher     *matchtemplate.Handler
	synthesizer *generatesql.Handler
	executor    *executesql.Handler
	charts      *renderchart.Handler
	summarizer  *summarizeanswer.Handler
	retriever   DocumentRetriever
	logger      Logger
}

func New(
	config *Config,
	classifier *classifyquestion.Handler,
	planner *planquery.Handler,
	matcher *matchtemplate.Handler,
	synthesizer *generatesql.Handler,
	executor *executesql.Handler,
	charts *renderchart.Handler,
	summarizer *summarizeanswer.Handler,
	retriever DocumentRetriever,
	log Logger,
) *Pipeline {
	if retriever == nil {
		retriever = NoopRetriever{}
	}
	return &Pipeline{
		config:      config,
		classifier:  classifier,
		planner:     planner,
		matcher:     matcher,
		synthesizer: synthesizer,
		executor:    executor,
		charts:      charts,
		summarizer:  summarizer,
		retriever:   retriever,
		logger: log.With(map[string]interface{}{
			"component": "pipeline",
		}),
	}
}

// Resolve runs a question through classification, planning, template
// matching, synthesis with retries, execution, charting and summarization.
func (p *Pipeline) Resolve(ctx context.Context, requestID, question string) (*models.ResolutionResult, error) {
	state := models.WorkflowState{
		RequestID: requestID,
		Question:  question,
		Source:    models.SourceNone,
	}

	classified, err := p.classifier.Execute(ctx, &classifyquestion.Input{
		RequestID: state.RequestID,
		Question:  state.Question,
	})
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	state.IsSQLRelated = classified.IsSQLRelated

	if !state.IsSQLRelated {
		return p.answerGeneral(ctx, state)
	}

	plan, err := p.planner.Execute(ctx, &planquery.Input{
		RequestID: state.RequestID,
		Question:  state.Question,
	})
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	state.Complexity = plan.Complexity
	state.Plan = plan.Plan
	state.NeedsChart = plan.NeedsChart
	state.ChartType = plan.ChartType
	state.AnalysisHint = plan.AnalysisHint

	matched, err := p.matcher.Execute(ctx, &matchtemplate.Input{
		RequestID:  state.RequestID,
		Question:   state.Question,
		Complexity: state.Complexity,
		NeedsChart: state.NeedsChart,
	})
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	state.Ticker = matched.Ticker
	state.ForceSynthesis = matched.ForceSynthesis

	state = p.runSQL(ctx, state, matched)

	if state.NeedsChart && state.Error == "" {
		chart, err := p.charts.Execute(ctx, &renderchart.Input{
			RequestID: state.RequestID,
			Question:  state.Question,
			ChartType: state.ChartType,
			Result:    state.Result,
		})
		if err != nil {
			return nil, fmt.Errorf("chart: %w", err)
		}
		state.ChartCode = chart.ChartCode
		state.ChartError = chart.ChartError
	}

	if state.Error == ErrorCodeExhausted {
		state.Answer = exhaustedAnswer
		return state.Resolution(), nil
	}

	summary, err := p.summarizer.Execute(ctx, &summarizeanswer.Input{
		RequestID:    state.RequestID,
		Question:     state.Question,
		IsSQLRelated: true,
		DisplaySQL:   state.DisplaySQL,
		Result:       state.Result,
		HasChart:     state.ChartCode != "",
		Error:        state.Error,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	state.Answer = summary.Answer

	metrics.QuestionsResolved.WithLabelValues(string(state.Source)).Inc()
	return state.Resolution(), nil
}

// runSQL obtains a working statement and its result. A template match is
// executed first; on any failure the question falls through to synthesis,
// which gets a bounded number of attempts with execution feedback threaded
// back into each retry.
func (p *Pipeline) runSQL(ctx context.Context, state models.WorkflowState, matched *matchtemplate.Output) models.WorkflowState {
	feedback := ""

	if matched.SQL != "" && !matched.ForceSynthesis {
		state = p.executeStatement(ctx, state, matched.SQL, models.SourceTemplate)
		if state.Error == "" {
			state.Source = models.SourceTemplate
			return state
		}
		p.logger.Warn("template statement failed, falling back to synthesis", map[string]interface{}{
			"rule":  matched.MatchRule,
			"error": state.Error,
		})
		feedback = state.Feedback
	} else if matched.SQL == "" && !matched.ForceSynthesis {
		stdErr := apperrors.NewNoTemplateMatchError(state.Question)
		p.logger.Info("no template matched, synthesizing", map[string]interface{}{
			"errorCode": string(stdErr.Code),
		})
	}

	for attempt := 1; attempt <= p.config.MaxSynthesisAttempts; attempt++ {
		state.Attempts = attempt

		synthesized, err := p.synthesizer.Execute(ctx, &generatesql.Input{
			RequestID:    state.RequestID,
			Question:     state.Question,
			Feedback:     feedback,
			AnalysisHint: state.AnalysisHint,
		})
		if err != nil {
			p.logger.Warn("synthesis attempt failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}
		state.Warnings = append(state.Warnings, synthesized.Warnings...)

		state = p.executeStatement(ctx, state, synthesized.SQL, models.SourceSynthesized)
		if state.Error == "" {
			state.Source = models.SourceSynthesized
			metrics.SynthesisAttempts.WithLabelValues("success").Observe(float64(attempt))
			return state
		}
		feedback = state.Feedback
	}

	metrics.SynthesisAttempts.WithLabelValues("exhausted").Observe(float64(p.config.MaxSynthesisAttempts))
	stdErr := apperrors.NewRetryBudgetExhaustedError(p.config.MaxSynthesisAttempts, state.Error)
	p.logger.Warn("synthesis budget exhausted", map[string]interface{}{
		"error": stdErr.Error(),
	})
	state.Error = ErrorCodeExhausted
	return state
}

// executeStatement fills the execution-owned fields of the state. An
// executor breakdown is treated like a failed statement so the retry loop
// sees the same shape either way.
func (p *Pipeline) executeStatement(ctx context.Context, state models.WorkflowState, sqlText string, source models.SQLSource) models.WorkflowState {
	execution, err := p.executor.Execute(ctx, &executesql.Input{
		RequestID: state.RequestID,
		Question:  state.Question,
		Ticker:    state.Ticker,
		SQL:       sqlText,
		Source:    source,
	})
	if err != nil {
		execution = &executesql.Output{
			Error:    err.Error(),
			Feedback: fmt.Sprintf("%s. SQL: %s", err.Error(), sqlText),
		}
	}

	state.SQL = sqlText
	state.DisplaySQL = execution.DisplaySQL
	state.Bindings = execution.Bindings
	state.Result = execution.Result
	state.Error = execution.Error
	state.Feedback = execution.Feedback
	return state
}

// answerGeneral handles questions the database cannot answer. Reference
// document snippets, when available, are folded into the question so the
// summarizer can ground its answer on them.
func (p *Pipeline) answerGeneral(ctx context.Context, state models.WorkflowState) (*models.ResolutionResult, error) {
	question := state.Question

	snippets, err := p.retriever.Retrieve(ctx, question)
	if err != nil {
		p.logger.Warn("document retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	} else if len(snippets) > 0 {
		question = fmt.Sprintf("Use the following reference material when answering.\n\n%s\n\nQuestion: %s",
			strings.Join(snippets, "\n---\n"), question)
	}

	summary, err := p.summarizer.Execute(ctx, &summarizeanswer.Input{
		RequestID:    state.RequestID,
		Question:     question,
		IsSQLRelated: false,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	state.Answer = summary.Answer
	metrics.QuestionsResolved.WithLabelValues(string(models.SourceNone)).Inc()
	return state.Resolution(), nil
}
