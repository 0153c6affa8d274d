package models

import "fmt"

// CompletionStatus is the progress tag stored on every row as an integer code.
type CompletionStatus int16

const (
	StatusNotCompleted CompletionStatus = 0
	StatusProcessing   CompletionStatus = 1
	StatusCompleted    CompletionStatus = 2
)

func (s CompletionStatus) Valid() bool {
	switch s {
	case StatusNotCompleted, StatusProcessing, StatusCompleted:
		return true
	}
	return false
}

func (s CompletionStatus) String() string {
	switch s {
	case StatusNotCompleted:
		return "NOT_COMPLETED"
	case StatusProcessing:
		return "PROCESSING"
	case StatusCompleted:
		return "COMPLETED"
	}
	return fmt.Sprintf("CompletionStatus(%d)", int16(s))
}

// ParseCompletionStatus converts a stored integer code back into a status.
func ParseCompletionStatus(code int64) (CompletionStatus, error) {
	s := CompletionStatus(code)
	if int64(s) != code || !s.Valid() {
		return 0, fmt.Errorf("invalid completion status code: %d", code)
	}
	return s, nil
}
