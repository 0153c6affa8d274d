package services

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/prudhvinik1/dbsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowGenerator_Generate(t *testing.T) {
	t.Parallel()

	gen := NewRowGenerator(rand.New(rand.NewPCG(1, 2)), DefaultGenerateMaxExtra)

	for range 50 {
		rows, err := gen.Generate()
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(rows), 1)
		require.LessOrEqual(t, len(rows), 3)

		names := make(map[string]struct{}, len(rows))
		for i, row := range rows {
			assert.NotEqual(t, uuid.Nil, row.ID)
			assert.Equal(t, i+10, row.Age)
			assert.Equal(t, models.StatusNotCompleted, row.CompletionStatus)

			var rec int
			_, err := fmt.Sscanf(row.Name, "Name%d", &rec)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("name%d@email.com", rec), row.Email)

			_, dup := names[row.Name]
			assert.False(t, dup, "suffix repeated within one batch: %s", row.Name)
			names[row.Name] = struct{}{}
		}
	}
}

func TestRowGenerator_ZeroBoundYieldsOneRow(t *testing.T) {
	t.Parallel()

	gen := NewRowGenerator(rand.New(rand.NewPCG(7, 7)), 0)

	for range 10 {
		rows, err := gen.Generate()
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	}
}

func TestRowGenerator_CoversWholeRange(t *testing.T) {
	t.Parallel()

	gen := NewRowGenerator(rand.New(rand.NewPCG(3, 4)), 2)
	seen := map[int]bool{}

	for range 200 {
		rows, err := gen.Generate()
		require.NoError(t, err)
		seen[len(rows)] = true
	}

	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, seen)
}

func TestRowGenerator_NegativeBound(t *testing.T) {
	t.Parallel()

	gen := NewRowGenerator(nil, -1)

	rows, err := gen.Generate()

	assert.Nil(t, rows)
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Contains(t, err.Error(), "negative bound")
}
