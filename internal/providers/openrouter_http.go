package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

const maxRetryDelay = 10 * time.Second

// doRequest posts body to OpenRouter, retrying rate limits, server errors, and
// transport failures. It returns the decoded response and the attempt count.
func (c *OpenRouterClient) doRequest(ctx context.Context, path, requestID string, body *openRouterRequest) (*openRouterResponse, int, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	var (
		orResp   *openRouterResponse
		attempts int
	)
	err = retry.Do(
		func() error {
			attempts++
			if err := ctx.Err(); err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.post(ctx, path, requestID, bodyBytes)
			if err != nil {
				if ctx.Err() != nil {
					return retry.Unrecoverable(err)
				}
				return err
			}
			orResp = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.MaxJitter(max(c.retryDelay/2, time.Millisecond)),
		retry.DelayType(retryAfterDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, attempts, fmt.Errorf("openrouter request failed after %d attempt(s): %w", attempts, err)
	}
	return orResp, attempts, nil
}

// post performs a single HTTP round trip. Errors wrapped with retry.Unrecoverable
// stop the retry loop.
func (c *OpenRouterClient) post(ctx context.Context, path, requestID string, bodyBytes []byte) (*openRouterResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/jackzampolin/fieldfill")
	req.Header.Set("X-Title", "fieldfill")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{
			Message:    fmt.Sprintf("OpenRouter rate limited: %s", truncate(respBody, 200)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			StatusCode: resp.StatusCode,
		}
	case shouldRetry(resp.StatusCode):
		return nil, fmt.Errorf("OpenRouter error (status %d): %s", resp.StatusCode, truncate(respBody, 500))
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Unrecoverable(fmt.Errorf("OpenRouter error (status %d): %s", resp.StatusCode, truncate(respBody, 500)))
	}

	var orResp openRouterResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}

	if retryable, err := shouldRetryResponse(&orResp); err != nil {
		if retryable {
			return nil, err
		}
		return nil, retry.Unrecoverable(err)
	}

	return &orResp, nil
}

// shouldRetry returns true for status codes that should be retried.
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests:
		return true
	case 520, 521, 522, 523, 524: // Cloudflare errors
		return true
	default:
		return statusCode >= 500
	}
}

// shouldRetryResponse checks a 200 OK response for API-level problems.
func shouldRetryResponse(resp *openRouterResponse) (bool, error) {
	if resp.Error != nil {
		code := fmt.Sprintf("%v", resp.Error.Code)
		switch code {
		case "overloaded", "rate_limit_exceeded", "503", "502", "500":
			return true, fmt.Errorf("OpenRouter API error (retryable): %s", resp.Error.Message)
		}
		return false, fmt.Errorf("OpenRouter API error (code %s): %s", code, resp.Error.Message)
	}

	// Empty choices are usually transient.
	if len(resp.Choices) == 0 {
		return true, fmt.Errorf("%w: no choices (model=%s, id=%s)", ErrEmptyResponse, resp.Model, resp.ID)
	}
	return false, nil
}

// retryAfterDelay honors a provider's Retry-After hint and otherwise backs off
// exponentially with jitter.
func retryAfterDelay(n uint, err error, config *retry.Config) time.Duration {
	var rle *RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > 0 {
		return min(rle.RetryAfter, maxRetryDelay)
	}
	return retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)(n, err, config)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
