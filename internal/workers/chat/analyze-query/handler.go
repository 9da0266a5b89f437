// Package analyzequery implements the BPMN job worker that runs the
// rule-based query analysis step of the conversation process.
package analyzequery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"storefront-workers/internal/chat/analyzer"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/common/metrics"
)

const TaskType = "analyze-query"

var ErrEmptyMessage = errors.New("EMPTY_MESSAGE")

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err), 0)
		return
	}

	output, err := h.Execute(&input)
	if err != nil {
		h.failJob(client, job, err, 0)
		return
	}

	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

// Execute runs the analysis. It is pure and fails only on an empty message.
func (h *Handler) Execute(input *Input) (*Output, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, ErrEmptyMessage
	}

	analysis := analyzer.Analyze(input.Message)

	h.logger.Info("query analyzed", map[string]interface{}{
		"intent":         string(analysis.UserIntent),
		"isProductQuery": analysis.IsProductQuery,
		"confidence":     analysis.Confidence,
		"searchTerms":    len(analysis.SearchTerms),
	})

	return &Output{
		Analysis:       *analysis,
		ShoppingSignal: analyzer.HasShoppingSignal(input.Message),
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error, retries int32) {
	errorCode := "ANALYSIS_FAILED"
	if errors.Is(err, ErrEmptyMessage) {
		errorCode = "EMPTY_MESSAGE"
	}

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": errorCode,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(errorCode + ": " + err.Error()).
		Send(context.Background())
}
