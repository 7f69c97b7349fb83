package engine

import (
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/model"
)

func fakeOptimizer(t *testing.T, n int, cfg model.NestConfig) *geneticOptimizer {
	t.Helper()
	insts := make([]*partInstance, n)
	for i := range insts {
		insts[i] = &partInstance{rotations: []float64{0, 90, 180, 270}, order: i}
	}
	g := newGeneticOptimizer(insts, model.Sheet{Width: 100, Height: 100}, cfg, nil, slog.Default(), nil)
	g.rng = rand.New(rand.NewSource(7))
	return g
}

func assertPermutation(t *testing.T, c *chromosome, n int) {
	t.Helper()
	require.Len(t, c.genes, n)
	seen := make(map[int]bool, n)
	for _, gn := range c.genes {
		assert.False(t, seen[gn.instIndex], "instance %d appears twice", gn.instIndex)
		seen[gn.instIndex] = true
		assert.GreaterOrEqual(t, gn.instIndex, 0)
		assert.Less(t, gn.instIndex, n)
	}
}

func TestInitPopulation_NaturalOrderFirst(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.PopulationSize = 8
	g := fakeOptimizer(t, 5, cfg)

	pop := g.initPopulation()
	require.Len(t, pop, 8)

	for i, gn := range pop[0].genes {
		assert.Equal(t, gene{instIndex: i, rotIndex: 0}, gn, "first individual keeps input order")
	}
	assert.False(t, pop[0].random)
	for _, c := range pop {
		assertPermutation(t, c, 5)
	}
}

func TestOrderCrossover_ProducesValidPermutation(t *testing.T) {
	cfg := model.DefaultConfig()
	g := fakeOptimizer(t, 8, cfg)

	p1 := &chromosome{genes: make([]gene, 8)}
	p2 := &chromosome{genes: make([]gene, 8), random: true}
	for i := 0; i < 8; i++ {
		p1.genes[i] = gene{instIndex: i, rotIndex: i % 4}
		p2.genes[i] = gene{instIndex: 7 - i, rotIndex: (i + 1) % 4}
	}

	for i := 0; i < 50; i++ {
		child := g.orderCrossover(p1, p2)
		assertPermutation(t, child, 8)
	}
}

func TestOrderCrossover_TinyParentsClone(t *testing.T) {
	g := fakeOptimizer(t, 2, model.DefaultConfig())
	p1 := &chromosome{genes: []gene{{instIndex: 0}, {instIndex: 1}}}
	p2 := &chromosome{genes: []gene{{instIndex: 1}, {instIndex: 0}}}

	child := g.orderCrossover(p1, p2)
	assert.Equal(t, p1.genes, child.genes)
	assert.NotSame(t, &p1.genes[0], &child.genes[0], "clone must not share gene storage")
}

func TestMutate_PreservesPermutation(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.MutationRate = 1.0
	cfg.UseRandomStrategy = true
	g := fakeOptimizer(t, 6, cfg)

	c := &chromosome{genes: make([]gene, 6)}
	for i := range c.genes {
		c.genes[i] = gene{instIndex: i}
	}

	for i := 0; i < 50; i++ {
		g.mutate(c)
		assertPermutation(t, c, 6)
		for _, gn := range c.genes {
			assert.GreaterOrEqual(t, gn.rotIndex, 0)
			assert.Less(t, gn.rotIndex, 4)
		}
	}
}

func TestTournamentSelect_PrefersFitter(t *testing.T) {
	g := fakeOptimizer(t, 3, model.DefaultConfig())

	pop := []*chromosome{
		{fitness: 100, evaluated: true},
		{fitness: 10, evaluated: true},
		{fitness: 50, evaluated: true},
	}
	wins := 0
	for i := 0; i < 200; i++ {
		if g.tournamentSelect(pop) == pop[1] {
			wins++
		}
	}
	assert.Greater(t, wins, 100, "the fittest individual should win most tournaments")
}
