package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/TheMichaelB/cavsgen/internal/config"
	"github.com/TheMichaelB/cavsgen/internal/events"
	"github.com/TheMichaelB/cavsgen/internal/models"
)

// Upper bound on a downloaded response file.
const defaultMaxBodySize = 64 * 1024 * 1024

// HTTPClient downloads response files with retry.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	logger    *events.Logger

	// Retry configuration
	maxRetries int
	retryDelay time.Duration

	maxBodySize int64
}

// NewHTTPClient creates an HTTP client.
func NewHTTPClient(cfg *config.FetchConfig, logger *events.Logger) *HTTPClient {
	// Create transport with HTTP/2 support
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			NextProtos: []string{"h2", "http/1.1"},
		},
	}

	// Configure HTTP/2
	if err := http2.ConfigureTransport(transport); err != nil {
		logger.WithError(err).Warn("Failed to configure HTTP/2")
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		userAgent:   cfg.UserAgent,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  retryDelay,
		maxBodySize: defaultMaxBodySize,
		logger:      logger.WithField("component", "http_client"),
	}
}

// SetMaxBodySize overrides the response size limit.
func (c *HTTPClient) SetMaxBodySize(n int64) {
	c.maxBodySize = n
}

// Download fetches url and returns the response body.
func (c *HTTPClient) Download(ctx context.Context, url string) ([]byte, error) {
	c.logger.WithField("url", url).Debug("Downloading")

	var data []byte
	err := c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return permanent(fmt.Errorf("create request: %w", err))
		}

		req.Header.Set("Accept", "text/plain, */*")
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		if c.isRetryable(resp.StatusCode) {
			return fmt.Errorf("server error %d", resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return permanent(&models.HTTPError{
				URL:        url,
				StatusCode: resp.StatusCode,
				Body:       string(body),
			})
		}

		data, err = io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if int64(len(data)) > c.maxBodySize {
			return permanent(fmt.Errorf("response exceeds %d bytes", c.maxBodySize))
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"url":  url,
		"size": len(data),
	}).Debug("Downloaded")

	return data, nil
}

// permanentError stops the retry loop.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

// retry executes a function with exponential backoff.
func (c *HTTPClient) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(map[string]interface{}{
				"attempt": attempt,
				"delay":   delay.String(),
			}).Debug("Retrying request")

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
				delay *= 2 // Exponential backoff
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if !c.isRetryableError(err) {
			var perm *permanentError
			if errors.As(err, &perm) {
				return perm.err
			}
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable checks if an HTTP status code is retryable.
func (c *HTTPClient) isRetryable(status int) bool {
	return status == http.StatusTooManyRequests ||
		(status >= 500 && status < 600)
}

// isRetryableError checks if an error is retryable. Network errors and
// retryable statuses are.
func (c *HTTPClient) isRetryableError(err error) bool {
	var perm *permanentError
	return !errors.As(err, &perm)
}
