package models

import (
	"github.com/google/uuid"
)

type Row struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Age              int              `json:"age"`
	CompletionStatus CompletionStatus `json:"completionStatus"`
}
