package models

import (
	"errors"
	"fmt"
)

// Error codes for structured error handling.
const (
	ErrCodeInput   = "INPUT_ERROR"
	ErrCodeParse   = "PARSE_ERROR"
	ErrCodeRender  = "RENDER_ERROR"
	ErrCodeStorage = "STORAGE_ERROR"
	ErrCodeState   = "STATE_ERROR"
	ErrCodeConfig  = "CONFIG_ERROR"
	ErrCodeNetwork = "NETWORK_ERROR"
)

// Sentinel errors
var (
	ErrInputNotFound  = errors.New("input file not found")
	ErrUnknownFormat  = errors.New("unknown output format")
	ErrUnknownVariant = errors.New("unknown CAVS variant")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrNoInputs       = errors.New("no inputs configured")
)

// GenerateError provides detailed generation failure information.
type GenerateError struct {
	Code  string
	Phase string
	Input string
	Err   error
}

func (e *GenerateError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("generate %s [%s]: %s: %v", e.Phase, e.Code, e.Input, e.Err)
	}
	return fmt.Sprintf("generate %s [%s]: %v", e.Phase, e.Code, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}

// HTTPError represents a non-retryable HTTP response.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// IsNotFound reports whether the response was a 404.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}
