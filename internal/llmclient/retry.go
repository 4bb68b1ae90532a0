package llmclient

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// RetryConfig configures RetryingClient, adapted from the teacher's
// LLMRetryConfig/LLMRetryWrapper: exponential backoff, each attempt
// bounded by the shorter of a configured per-attempt timeout or the
// remaining parent-context deadline minus a cleanup buffer.
type RetryConfig struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	TimeoutPerRetry time.Duration
}

// DefaultRetryConfig mirrors the teacher's DefaultLLMRetryConfig, scaled
// down for a synthesis call rather than a multi-tool transaction
// explanation: three attempts, short backoff, and a 10s per-attempt
// timeout that is further shortened by the caller's context deadline.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialDelay:    200 * time.Millisecond,
		MaxDelay:        2 * time.Second,
		BackoffFactor:   2.0,
		TimeoutPerRetry: 10 * time.Second,
	}
}

// RetryingClient wraps a Client with retry logic for transient failures.
type RetryingClient struct {
	inner  Client
	config RetryConfig
}

// NewRetryingClient wraps inner with the given retry configuration.
func NewRetryingClient(inner Client, config RetryConfig) *RetryingClient {
	return &RetryingClient{inner: inner, config: config}
}

func (c *RetryingClient) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	delay := c.config.InitialDelay

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled before llm attempt %d: %w", attempt+1, ctx.Err())
		default:
		}

		attemptTimeout := c.config.TimeoutPerRetry
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining < attemptTimeout {
				attemptTimeout = remaining - time.Second
				if attemptTimeout <= 0 {
					return "", fmt.Errorf("insufficient time remaining for llm call (need %v, have %v)", c.config.TimeoutPerRetry, remaining)
				}
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		result, err := c.inner.Generate(attemptCtx, prompt)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt >= c.config.MaxRetries || !isRetryable(err) {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("context cancelled during retry delay: %w", ctx.Err())
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * c.config.BackoffFactor)
		if delay > c.config.MaxDelay {
			delay = c.config.MaxDelay
		}
	}

	return "", fmt.Errorf("llm call failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range []string{
		"context canceled", "context cancelled", "context deadline exceeded",
		"connection refused", "connection reset", "timeout", "no such host",
		"temporary failure", "rate limit", "overloaded", "service unavailable",
		"500", "502", "503", "504", "429",
	} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	if netErr, ok := err.(net.Error); ok {
		return netErr.Timeout()
	}
	return false
}
