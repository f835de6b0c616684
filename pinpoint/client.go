// Package pinpoint is a REST client for the messaging and audience
// segmentation service backing the reminder system: phone validation, SMS
// endpoints, segments, scheduled campaigns, message templates and endpoint
// export jobs.
package pinpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// PageSize is the fixed page size for segment and campaign listings.
const PageSize = 200

// ErrNotFound is returned when the service reports a missing resource.
var ErrNotFound = errors.New("messaging API: resource not found")

// Client calls the messaging service REST API for one project.
type Client struct {
	client    *http.Client
	logger    *slog.Logger
	baseURL   string
	apiKey    string
	projectID string
}

// New creates a client for the given project. baseURL has no trailing slash.
func New(baseURL, apiKey, projectID string, logger *slog.Logger) *Client {
	return &Client{
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
		baseURL:   baseURL,
		apiKey:    apiKey,
		projectID: projectID,
	}
}

// appPath builds a project-scoped API path.
func (c *Client) appPath(format string, args ...any) string {
	return "/v1/apps/" + url.PathEscape(c.projectID) + fmt.Sprintf(format, args...)
}

// do performs one API call with retries. 4xx responses are not retried; 404
// maps to ErrNotFound. A non-nil out is filled from the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	err := retry.Do(
		func() error {
			var body io.Reader = http.NoBody
			if payload != nil {
				body = bytes.NewReader(payload)
			}

			req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("api-key", c.apiKey)
			if query != nil {
				req.URL.RawQuery = query.Encode()
			}

			c.logger.Info("Messaging API request starting",
				"method", method,
				"path", path)

			startTime := time.Now()
			resp, err := c.client.Do(req)
			duration := time.Since(startTime)

			if err != nil {
				c.logger.Warn("Messaging API request failed, will retry",
					"method", method,
					"path", path,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					c.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			c.logger.Info("Messaging API request completed",
				"method", method,
				"path", path,
				"status_code", resp.StatusCode,
				"duration_ms", duration.Milliseconds())

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(ErrNotFound)
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				return retry.Unrecoverable(fmt.Errorf("HTTP %d", resp.StatusCode))
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				c.logger.Warn("Messaging API returned non-2xx status, will retry",
					"status_code", resp.StatusCode,
					"path", path)
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}

			if out != nil {
				if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("Retrying messaging API call after error",
				"attempt", n, "method", method, "path", path, "error", err)
		}),
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%s %s after retries: %w", method, path, err)
	}
	return nil
}
