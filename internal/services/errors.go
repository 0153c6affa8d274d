package services

import (
	"errors"
	"fmt"
)

var (
	// ErrCycleInProgress is reported when a cycle starts while another one holds the guard.
	ErrCycleInProgress = errors.New("sync cycle already in progress")
	ErrInvalidToken    = errors.New("invalid token")
)

// SendError reports a failed outbound delivery. StatusCode is zero when no
// response was received.
type SendError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *SendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("send to %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("send to %s failed: %v", e.URL, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// GenerationError wraps failures while producing synthetic rows.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate rows: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
