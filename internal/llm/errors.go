package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	openai "github.com/openai/openai-go"
)

// RateLimitError marks a throttled or overloaded provider response.
// The pipeline backs off longer for these than for ordinary failures.
type RateLimitError struct {
	Status int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limited (status %d)", e.Status)
}

// UnavailableError covers transient transport and upstream failures
// that are worth retrying at the normal cadence.
type UnavailableError struct {
	Status int
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider unavailable: %v", e.Err)
	}
	return fmt.Sprintf("provider unavailable (status %d)", e.Status)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// AuthError is terminal; retrying with the same credentials cannot
// succeed.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider rejected credentials (status %d)", e.Status)
}

// MalformedResponseError reports output that stayed undecodable after
// every repair pass.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	return "malformed provider response: " + e.Reason
}

// Retryable reports whether the pipeline should try the call again.
func Retryable(err error) bool {
	var rate *RateLimitError
	var unavail *UnavailableError
	return errors.As(err, &rate) || errors.As(err, &unavail)
}

// RateLimited reports whether the failure was a throttle, which gets
// the long backoff floor.
func RateLimited(err error) bool {
	var rate *RateLimitError
	return errors.As(err, &rate)
}

// classifyProviderError maps SDK and transport failures onto the
// package error taxonomy.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	status := 0
	var aerr *anthropic.Error
	var oerr *openai.Error
	switch {
	case errors.As(err, &aerr):
		status = aerr.StatusCode
	case errors.As(err, &oerr):
		status = oerr.StatusCode
	}

	switch {
	case status == 429 || status == 529:
		return &RateLimitError{Status: status}
	case status == 401 || status == 403:
		return &AuthError{Status: status}
	case status >= 500:
		return &UnavailableError{Status: status}
	case status != 0:
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &UnavailableError{Err: err}
	}
	return &UnavailableError{Err: err}
}
