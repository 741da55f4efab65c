package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

const llmMaxTokens = 4096

// Base delay before the first retry; doubles per attempt. Variable so
// tests can shrink it.
var retryBaseBackoff = time.Second

type LLMUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *LLMUsage) Add(other LLMUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// ModelCaller is the boundary to the external model. Production uses
// anthropicCaller; tests substitute a fake.
type ModelCaller interface {
	Call(ctx context.Context, systemPrompt, userPrompt string) (string, LLMUsage, error)
}

type anthropicCaller struct {
	client anthropic.Client
	model  string
}

func newAnthropicCaller(cfg Config) *anthropicCaller {
	model := cfg.LLMModel
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicCaller{
		client: anthropic.NewClient(
			option.WithAPIKey(cfg.AnthropicAPIKey),
			option.WithHTTPClient(externalHTTPClient),
		),
		model: model,
	}
}

func (c *anthropicCaller) Call(ctx context.Context, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: llmMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", LLMUsage{}, &TransportError{Err: err}
	}
	usage := LLMUsage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d cache_create=%d cache_read=%d",
				len(block.Text), usage.InputTokens, usage.OutputTokens, usage.CacheCreationInputTokens, usage.CacheReadInputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, &TransportError{Err: fmt.Errorf("no text content in Anthropic response")}
}

// callModel invokes the model with a per-attempt timeout and a small
// bounded retry on transport failures with doubling backoff.
// Malformed output is the caller's problem and is never retried here.
func callModel(ctx context.Context, caller ModelCaller, cfg Config, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	var total LLMUsage
	var lastErr error
	backoff := retryBaseBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("llm retry attempt=%d backoff=%s err=%v", attempt, backoff, lastErr)
			select {
			case <-ctx.Done():
				return "", total, &TransportError{Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		attemptCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
		text, usage, err := caller.Call(attemptCtx, systemPrompt, userPrompt)
		cancel()
		total.Add(usage)

		if err == nil {
			return text, total, nil
		}
		lastErr = err

		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			return "", total, err
		}
		if ctx.Err() != nil {
			return "", total, &TransportError{Err: ctx.Err()}
		}
	}
	return "", total, lastErr
}
