package narrative

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/solairus-intel/feed-engine/internal/feed"
	"github.com/solairus-intel/feed-engine/pkg/circuitbreaker"
	"github.com/solairus-intel/feed-engine/pkg/config"
	"github.com/solairus-intel/feed-engine/pkg/logger"
)

// Client queries the conversational narrative source. Retry is owned by the
// orchestrator; the client only guards the upstream with a circuit breaker
// and classifies failures as transient or not.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
}

type QueryResult struct {
	Response   string
	Confidence float64
}

func NewClient(cfg config.NarrativeConfig) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	cb := circuitbreaker.NewCircuitBreaker("narrative", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	logger.Info("Narrative client initialized", zap.String("model", cfg.Model))

	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		cb:          cb,
	}
}

const systemPrompt = `You are a geopolitical and economic intelligence analyst for a business aviation services company.
Answer with concrete, recent developments. Structure multi-topic answers as a numbered list.
Cite regions, institutions, and figures where possible. Do not speculate beyond the question's time frame.`

func (c *Client) Query(ctx context.Context, prompt string) (*QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result *QueryResult

	err := c.cb.Execute(ctx, func() error {
		resp, err := c.client.CreateChatCompletion(
			ctx,
			openai.ChatCompletionRequest{
				Model: c.model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
					{Role: openai.ChatMessageRoleUser, Content: prompt},
				},
				Temperature: c.temperature,
				MaxTokens:   c.maxTokens,
			},
		)

		if err != nil {
			return classifyError(err)
		}

		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return fmt.Errorf("%w: empty completion", feed.ErrTransientSource)
		}

		content := resp.Choices[0].Message.Content

		logger.Debug("Narrative query completed",
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		)

		result = &QueryResult{
			Response:   content,
			Confidence: responseConfidence(content),
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// responseConfidence estimates response quality from completeness and
// structure signals.
func responseConfidence(response string) float64 {
	score := 0.0

	if len(response) > 100 {
		score += 0.4
	}
	if len(response) > 500 {
		score += 0.2
	}

	for _, marker := range []string{"•", "- ", "1.", "2."} {
		if strings.Contains(response, marker) {
			score += 0.1
			break
		}
	}

	lower := strings.ToLower(response)
	for _, marker := range []string{"according to", "analysis", "trend", "forecast", "impact"} {
		if strings.Contains(lower, marker) {
			score += 0.1
			break
		}
	}

	if strings.ContainsAny(response, "0123456789") {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %v", feed.ErrTransientSource, err)
		}
		return fmt.Errorf("failed to query narrative source: %w", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", feed.ErrTransientSource, err)
	}

	return fmt.Errorf("failed to query narrative source: %w", err)
}
