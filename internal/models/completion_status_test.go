package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionStatus_Valid(t *testing.T) {
	assert.True(t, StatusNotCompleted.Valid())
	assert.True(t, StatusProcessing.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, CompletionStatus(3).Valid())
	assert.False(t, CompletionStatus(-1).Valid())
}

func TestCompletionStatus_String(t *testing.T) {
	assert.Equal(t, "NOT_COMPLETED", StatusNotCompleted.String())
	assert.Equal(t, "PROCESSING", StatusProcessing.String())
	assert.Equal(t, "COMPLETED", StatusCompleted.String())
	assert.Equal(t, "CompletionStatus(7)", CompletionStatus(7).String())
}

func TestParseCompletionStatus(t *testing.T) {
	tests := []struct {
		name    string
		code    int64
		want    CompletionStatus
		wantErr bool
	}{
		{name: "not completed", code: 0, want: StatusNotCompleted},
		{name: "processing", code: 1, want: StatusProcessing},
		{name: "completed", code: 2, want: StatusCompleted},
		{name: "unknown code", code: 3, wantErr: true},
		{name: "negative code", code: -1, wantErr: true},
		{name: "overflows int16", code: 65538, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCompletionStatus(tt.code)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestRow_JSON checks the wire field names peers rely on
func TestRow_JSON(t *testing.T) {
	id := uuid.MustParse("6f1c1a5e-8d5b-4c1e-9a0e-3b0f4b8c2d11")
	row := Row{ID: id, Name: "Name42", Email: "name42@email.com", Age: 10, CompletionStatus: StatusCompleted}

	data, err := json.Marshal(row)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "6f1c1a5e-8d5b-4c1e-9a0e-3b0f4b8c2d11",
		"name": "Name42",
		"email": "name42@email.com",
		"age": 10,
		"completionStatus": 2
	}`, string(data))
}
