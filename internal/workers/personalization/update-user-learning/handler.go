// Package updateuserlearning implements the fire-and-forget BPMN worker
// that rolls a conversational turn into the user's preference document.
package updateuserlearning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	stderrors "storefront-workers/internal/common/errors"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/common/metrics"
	"storefront-workers/internal/models"
)

const TaskType = "update-user-learning"

var (
	ErrMissingUserID = errors.New("MISSING_USER_ID")
	ErrProfileLookup = errors.New("PROFILE_LOOKUP_FAILED")
)

// Learner rolls one turn into a preference document.
type Learner interface {
	UpdateUserLearning(ctx context.Context, user *models.UserContext, message string, analysis *models.QueryAnalysis) models.UserPreferences
}

// ProfileReader loads the user read model the learner starts from.
type ProfileReader interface {
	GetUserContext(ctx context.Context, userID string) (*models.UserContext, error)
}

type Handler struct {
	config   *Config
	learner  Learner
	profiles ProfileReader
	errors   *stderrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, learner Learner, profiles ProfileReader, log logger.Logger) *Handler {
	scoped := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:   config,
		learner:  learner,
		profiles: profiles,
		errors:   stderrors.NewErrorHandler(scoped),
		logger:   scoped,
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

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		if errors.Is(err, ErrProfileLookup) {
			// Coded store errors carry their own retry policy.
			metrics.WorkerJobsFailed.WithLabelValues(TaskType, "PROFILE_LOOKUP_FAILED").Inc()
			h.errors.HandleJobError(ctx, client, job, err)
			return
		}
		h.failJob(client, job, err, 0)
		return
	}

	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

// Execute loads the user's current preferences and applies the turn. The
// learner itself swallows write failures, so the only errors here are a
// missing user id and a failed profile read.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.UserID == "" {
		return nil, ErrMissingUserID
	}

	user, err := h.profiles.GetUserContext(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileLookup, err)
	}

	prefs := h.learner.UpdateUserLearning(ctx, user, input.Message, &input.Analysis)

	h.logger.Info("preferences updated", map[string]interface{}{
		"userId":       input.UserID,
		"interactions": prefs.Interactions,
		"categories":   len(prefs.Categories),
	})

	return &Output{Preferences: prefs}, nil
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
	errorCode := "LEARNING_FAILED"
	if errors.Is(err, ErrMissingUserID) {
		errorCode = "MISSING_USER_ID"
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
