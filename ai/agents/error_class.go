package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Base error definitions for agent errors.
var (
	ErrToolNotFound       = errors.New("tool not found")
	ErrParseError         = errors.New("parse error")
	ErrMaxIterations      = errors.New("max iterations exceeded")
	ErrNoAnswer           = errors.New("agent returned no answer")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ErrorClass represents the category of error for retry decisions.
type ErrorClass int

const (
	// Examples: network timeout, 429/5xx from the LLM provider, search engine hiccups.
	ErrorClassTransient ErrorClass = iota

	// Examples: invalid API key, malformed request, tool loop exhausted.
	ErrorClassPermanent

	// The caller gave up; never retried, never counted as an agent failure.
	ErrorClassCanceled
)

// String returns the string representation of ErrorClass.
func (e ErrorClass) String() string {
	switch e {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassPermanent:
		return "permanent"
	case ErrorClassCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with its classification and retry guidance.
type ClassifiedError struct {
	Original   error
	Class      ErrorClass
	RetryAfter time.Duration
}

// Error returns a formatted error message.
func (c *ClassifiedError) Error() string {
	if c.Original == nil {
		return fmt.Sprintf("classified error: class=%s", c.Class)
	}
	return fmt.Sprintf("%s: %v", c.Class, c.Original)
}

// Unwrap returns the original error for errors.Is/As.
func (c *ClassifiedError) Unwrap() error {
	return c.Original
}

// IsTransient returns true if the error is temporary and should be retried.
func (c *ClassifiedError) IsTransient() bool {
	return c.Class == ErrorClassTransient
}

// ClassifyError analyzes an error and determines its class and retry strategy.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{Class: ErrorClassCanceled, Original: err}
	}

	// Our own sentinels first: they are wrapped around arbitrary causes.
	switch {
	case errors.Is(err, ErrServiceUnavailable):
		return &ClassifiedError{Class: ErrorClassTransient, Original: err, RetryAfter: 2 * time.Second}
	case errors.Is(err, ErrMaxIterations), errors.Is(err, ErrToolNotFound), errors.Is(err, ErrParseError):
		return &ClassifiedError{Class: ErrorClassPermanent, Original: err}
	}

	if isTimeoutError(err) {
		return &ClassifiedError{Class: ErrorClassTransient, Original: err, RetryAfter: 3 * time.Second}
	}
	if isNetworkError(err) {
		return &ClassifiedError{Class: ErrorClassTransient, Original: err, RetryAfter: 2 * time.Second}
	}
	if isRateLimited(err) {
		return &ClassifiedError{Class: ErrorClassTransient, Original: err, RetryAfter: 5 * time.Second}
	}

	// Default to permanent for unknown errors (fail safe)
	return &ClassifiedError{Class: ErrorClassPermanent, Original: err}
}

// isNetworkError checks if an error is network-related (transient).
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"no such host",
		"temporary failure",
		"dial tcp",
		"unexpected eof",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if an error is timeout-related (transient).
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "deadline exceeded", "timed out"} {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// isRateLimited matches provider throttling and overload replies.
func isRateLimited(err error) bool {
	errMsg := strings.ToLower(err.Error())
	for _, pattern := range []string{"429", "rate limit", "too many requests", "502", "503", "overloaded"} {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// ShouldRetry returns true if the error warrants a retry attempt.
func ShouldRetry(err error) bool {
	classified := ClassifyError(err)
	return classified != nil && classified.IsTransient()
}

// GetRetryDelay returns the suggested delay before retry, or 0 if not retryable.
func GetRetryDelay(err error) time.Duration {
	classified := ClassifyError(err)
	if classified != nil && classified.IsTransient() {
		return classified.RetryAfter
	}
	return 0
}

// ErrorLabel is the short class name used in metrics and history records; "" for nil.
func ErrorLabel(err error) string {
	if err == nil {
		return ""
	}
	return ClassifyError(err).Class.String()
}
