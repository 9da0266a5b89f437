// Package llm dispatches single-shot chat-completion requests to the hosted
// LLM service. One request per call: no streaming, no internal retries.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront-workers/internal/common/config"
	stderrors "storefront-workers/internal/common/errors"
	httpclient "storefront-workers/internal/common/http"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/common/metrics"
)

// BusyMessage is returned verbatim when the service rate-limits us. The
// degraded reply is user-facing and must stay friendly.
const BusyMessage = "I'm getting a lot of questions right now. Please give me a moment and ask again."

const systemPersona = "You are a helpful shopping assistant for an online marketplace. Keep replies short, warm, and focused on helping the customer find products."

const maxErrorBodyBytes = 512

// Dispatcher sends chat-completion requests. The zero value is not usable;
// construct with NewDispatcher.
type Dispatcher struct {
	cfg    config.LLMConfig
	client *httpclient.Client
	logger logger.Logger
}

func NewDispatcher(cfg config.LLMConfig, log logger.Logger) *Dispatcher {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Dispatcher{
		cfg:    cfg,
		client: httpclient.NewClient(timeout),
		logger: log,
	}
}

// IsConfigured reports whether a credential is present. Without one, Dispatch
// fails locally and the orchestrator takes its no-LLM path.
func (d *Dispatcher) IsConfigured() bool {
	return d.cfg.APIKey != ""
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string     `json:"model"`
	Messages    []chatTurn `json:"messages"`
	MaxTokens   int        `json:"max_tokens"`
	Temperature float64    `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message chatTurn `json:"message"`
	} `json:"choices"`
}

// Dispatch sends one completion request and returns the trimmed reply text.
// An empty modelOverride uses the configured default model. HTTP 429 yields
// BusyMessage with a nil error; other non-success statuses yield an
// LLM_REQUEST_FAILED error carrying the status code.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt, modelOverride string) (string, error) {
	if !d.IsConfigured() {
		return "", stderrors.NewLLMUnconfiguredError()
	}

	model := d.cfg.Model
	if modelOverride != "" {
		model = modelOverride
	}

	body, err := json.Marshal(completionRequest{
		Model: model,
		Messages: []chatTurn{
			{Role: "system", Content: systemPersona},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: d.cfg.Temperature,
	})
	if err != nil {
		return "", stderrors.NewLLMRequestFailedError(0, fmt.Sprintf("encode request: %v", err))
	}

	url := strings.TrimRight(d.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", stderrors.NewLLMRequestFailedError(0, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)

	start := time.Now()
	resp, err := d.client.DoWithContext(ctx, req)
	if err != nil {
		metrics.LLMRequestDuration.WithLabelValues(model, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", stderrors.NewLLMTimeoutError()
		}
		return "", stderrors.NewLLMRequestFailedError(0, fmt.Sprintf("transport: %v", err))
	}
	defer resp.Body.Close()

	metrics.LLMRequestDuration.WithLabelValues(model, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode == http.StatusTooManyRequests {
		d.logger.Warn("LLM service rate limited, degrading to busy message", map[string]interface{}{
			"model": model,
		})
		return BusyMessage, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", stderrors.NewLLMRequestFailedError(resp.StatusCode, string(snippet))
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", stderrors.NewLLMRequestFailedError(resp.StatusCode, fmt.Sprintf("decode response: %v", err))
	}
	if len(parsed.Choices) == 0 {
		return "", stderrors.NewLLMRequestFailedError(resp.StatusCode, "response carried no completion choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
