// Package processusermessage implements the BPMN job worker that runs one
// full conversational turn: profile load, history load, orchestration, and
// history persistence.
package processusermessage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/common/metrics"
	"storefront-workers/internal/models"
)

const TaskType = "process-user-message"

var ErrEmptyMessage = errors.New("EMPTY_MESSAGE")

// Conversation is the dialogue orchestrator capability.
type Conversation interface {
	ProcessUserMessage(ctx context.Context, message string, user *models.UserContext, history []models.ChatMessage) models.ChatMessage
}

// ProfileReader loads the per-request user read model.
type ProfileReader interface {
	GetUserContext(ctx context.Context, userID string) (*models.UserContext, error)
}

// HistoryStore persists and reads conversation turns.
type HistoryStore interface {
	AppendMessage(ctx context.Context, sessionID string, msg models.ChatMessage) error
	RecentTurns(ctx context.Context, sessionID string, n int) ([]models.ChatMessage, error)
}

type Handler struct {
	config       *Config
	conversation Conversation
	profiles     ProfileReader
	history      HistoryStore
	logger       logger.Logger
}

func NewHandler(config *Config, conversation Conversation, profiles ProfileReader, history HistoryStore, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		conversation: conversation,
		profiles:     profiles,
		history:      history,
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

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err, 0)
		return
	}

	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

// Execute runs one conversational turn. Anything that can degrade, degrades:
// a failed profile read falls back to the anonymous path, a failed history
// read starts from an empty window, and failed history writes only warn.
// The only hard error is an empty message.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, ErrEmptyMessage
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var user *models.UserContext
	if input.UserID != "" && h.profiles != nil {
		loaded, err := h.profiles.GetUserContext(ctx, input.UserID)
		if err != nil {
			h.logger.Warn("profile load failed, continuing anonymously", map[string]interface{}{
				"userId": input.UserID,
				"error":  err.Error(),
			})
		} else {
			user = loaded
		}
	}

	var history []models.ChatMessage
	if input.SessionID != "" && h.history != nil {
		turns, err := h.history.RecentTurns(ctx, sessionID, h.config.HistoryWindow)
		if err != nil {
			h.logger.Warn("history load failed, starting with empty window", map[string]interface{}{
				"sessionId": sessionID,
				"error":     err.Error(),
			})
		} else {
			history = turns
		}
	}

	userMsg := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   input.Message,
		Timestamp: time.Now().UTC(),
	}

	reply := h.conversation.ProcessUserMessage(ctx, input.Message, user, history)

	if h.history != nil {
		for _, msg := range []models.ChatMessage{userMsg, reply} {
			if err := h.history.AppendMessage(ctx, sessionID, msg); err != nil {
				h.logger.Warn("history write failed", map[string]interface{}{
					"sessionId": sessionID,
					"messageId": msg.ID,
					"error":     err.Error(),
				})
			}
		}
	}

	h.logger.Info("turn completed", map[string]interface{}{
		"sessionId":       sessionID,
		"products":        len(reply.Products),
		"externalResults": len(reply.ExternalResults),
	})

	return &Output{SessionID: sessionID, Reply: reply}, nil
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
	errorCode := "TURN_FAILED"
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
