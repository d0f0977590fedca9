// internal/workers/question/match-template/handler.go
package matchtemplate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"djia-agent/internal/catalog"
	apperrors "djia-agent/internal/common/errors"
	"djia-agent/internal/common/metrics"
	"djia-agent/internal/models"
	"djia-agent/internal/nlp"
)

const (
	TaskType = "match-template"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config    *Config
	matcher   *catalog.Matcher
	confirmer *catalog.Confirmer
	aliases   *nlp.AliasTable
	errors    *apperrors.ErrorHandler
	logger    Logger
}

// NewHandler builds the matching stage. The confirmer may be nil, in which
// case questions the rule cascade cannot place go straight to synthesis.
func NewHandler(config *Config, matcher *catalog.Matcher, confirmer *catalog.Confirmer, aliases *nlp.AliasTable, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:    config,
		matcher:   matcher,
		confirmer: confirmer,
		aliases:   aliases,
		errors:    apperrors.NewErrorHandler(l),
		logger:    l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	ticker := nlp.ExtractTicker(input.Question, h.aliases)

	// Chart questions always synthesize their own data query.
	if input.NeedsChart {
		return &Output{Ticker: ticker, Source: models.SourceNone, ForceSynthesis: true}, nil
	}

	// Whole-index questions never fit the single-company templates.
	allCompanies := nlp.IsAllCompanies(input.Question) ||
		(input.Complexity != nil && input.Complexity.MultipleCompanies)
	if allCompanies {
		return &Output{Source: models.SourceNone, ForceSynthesis: true}, nil
	}

	if sql, rule := h.matcher.Match(input.Question); sql != "" {
		metrics.TemplateMatches.WithLabelValues(rule).Inc()
		h.logger.Info("template matched", map[string]interface{}{
			"rule":   rule,
			"ticker": ticker,
		})
		return &Output{
			Ticker:    ticker,
			SQL:       sql,
			Source:    models.SourceTemplate,
			MatchRule: rule,
		}, nil
	}

	// Second opinion from the model before giving up on the catalog.
	if h.config.UseConfirmation && h.confirmer != nil {
		sql, err := h.confirmer.Confirm(ctx, input.Question)
		if err != nil {
			h.logger.Warn("template confirmation failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else if sql != "" {
			metrics.TemplateMatches.WithLabelValues("llm_confirmed").Inc()
			return &Output{
				Ticker:    ticker,
				SQL:       sql,
				Source:    models.SourceTemplate,
				MatchRule: "llm_confirmed",
			}, nil
		}
	}

	h.logger.Info("no template matched", map[string]interface{}{
		"ticker": ticker,
	})
	return &Output{Ticker: ticker, Source: models.SourceNone}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// failJob routes the error through the shared handler, which maps it onto
// the standard taxonomy and decides between engine retry and BPMN throw.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	h.errors.HandleJobError(context.Background(), client, job, err)
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
