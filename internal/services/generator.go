package services

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/prudhvinik1/dbsync/internal/models"
)

const (
	// DefaultGenerateMaxExtra yields between one and three rows per call.
	DefaultGenerateMaxExtra = 2

	suffixSpace = 1_000_000
	baseAge     = 10
)

// Generator produces new rows for the store.
type Generator interface {
	Generate() ([]*models.Row, error)
}

// RowGenerator creates synthetic NOT_COMPLETED rows for demos.
type RowGenerator struct {
	rnd      *rand.Rand
	maxExtra int
}

// NewRowGenerator returns a generator producing 1 + U[0, maxExtra] rows per
// call. A nil rnd seeds a fresh PCG source.
func NewRowGenerator(rnd *rand.Rand, maxExtra int) *RowGenerator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RowGenerator{rnd: rnd, maxExtra: maxExtra}
}

func (g *RowGenerator) Generate() ([]*models.Row, error) {
	if g.maxExtra < 0 {
		return nil, &GenerationError{Err: fmt.Errorf("negative bound %d", g.maxExtra)}
	}
	if g.maxExtra >= suffixSpace {
		return nil, &GenerationError{Err: errors.New("bound exceeds the name suffix space")}
	}

	count := 1 + g.rnd.IntN(g.maxExtra+1)
	rows := make([]*models.Row, 0, count)
	used := make(map[int]struct{}, count)

	for i := 0; i < count; i++ {
		rec := g.rnd.IntN(suffixSpace)
		for {
			if _, taken := used[rec]; !taken {
				break
			}
			rec = g.rnd.IntN(suffixSpace)
		}
		used[rec] = struct{}{}

		rows = append(rows, &models.Row{
			ID:               uuid.New(),
			Name:             fmt.Sprintf("Name%d", rec),
			Email:            fmt.Sprintf("name%d@email.com", rec),
			Age:              i + baseAge,
			CompletionStatus: models.StatusNotCompleted,
		})
	}

	return rows, nil
}
