package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/model"
	"github.com/tarman3/Freecad-Nesting-Workbench/internal/nfp"
)

// gene is a single placement decision in the chromosome: which part
// instance goes next and at which of its allowed rotations.
type gene struct {
	instIndex int
	rotIndex  int
}

// chromosome is a candidate solution: an ordering of part instances
// with rotation choices, plus the random-strategy toggle gene. Fitness
// is lower-is-better and set once evaluated.
type chromosome struct {
	genes     []gene
	random    bool
	fitness   float64
	layout    *model.Layout
	evaluated bool
}

// Progress is the per-generation update handed to the optional
// progress callback between generations.
type Progress struct {
	Generation  int
	Generations int
	BestFitness float64
	SheetCount  int
}

// geneticOptimizer searches part orderings and rotations using the
// placement engine as its fitness evaluator.
type geneticOptimizer struct {
	insts    []*partInstance
	sheet    model.Sheet
	cfg      model.NestConfig
	calc     *nfp.Calculator
	rng      *rand.Rand
	logger   *slog.Logger
	progress func(Progress)

	eliteCount     int
	tournamentSize int
}

func newGeneticOptimizer(insts []*partInstance, sheet model.Sheet, cfg model.NestConfig, calc *nfp.Calculator, logger *slog.Logger, progress func(Progress)) *geneticOptimizer {
	elite := cfg.PopulationSize / 10
	if elite < 1 {
		elite = 1
	}
	return &geneticOptimizer{
		insts:          insts,
		sheet:          sheet,
		cfg:            cfg,
		calc:           calc,
		rng:            rand.New(rand.NewSource(cfg.Seed)),
		logger:         logger,
		progress:       progress,
		eliteCount:     elite,
		tournamentSize: 3,
	}
}

// optimize runs the evolution loop and returns the best layout found.
// Cancellation is checked at generation boundaries only; an observed
// cancellation returns the best individual evaluated so far.
func (g *geneticOptimizer) optimize(ctx context.Context) *model.Layout {
	if len(g.insts) == 0 {
		return &model.Layout{}
	}

	population := g.initPopulation()
	var best *chromosome

	for gen := 0; gen < g.cfg.Generations; gen++ {
		if ctx.Err() != nil {
			g.logger.Info("nesting cancelled, returning best layout so far", "generation", gen)
			break
		}

		g.evaluate(ctx, gen, population)
		sort.SliceStable(population, func(i, j int) bool {
			return population[i].fitness < population[j].fitness
		})

		if best == nil || population[0].fitness < best.fitness {
			cp := *population[0]
			best = &cp
		}

		g.logger.Debug("generation complete",
			"generation", gen+1, "of", g.cfg.Generations,
			"bestFitness", best.fitness, "sheets", best.layout.SheetCount())
		if g.progress != nil {
			g.progress(Progress{
				Generation:  gen + 1,
				Generations: g.cfg.Generations,
				BestFitness: best.fitness,
				SheetCount:  best.layout.SheetCount(),
			})
		}

		if gen == g.cfg.Generations-1 {
			break
		}

		next := make([]*chromosome, 0, g.cfg.PopulationSize)
		for i := 0; i < g.eliteCount && i < len(population); i++ {
			next = append(next, g.clone(population[i]))
		}
		for len(next) < g.cfg.PopulationSize {
			p1 := g.tournamentSelect(population)
			p2 := g.tournamentSelect(population)
			child := g.orderCrossover(p1, p2)
			g.mutate(child)
			next = append(next, child)
		}
		population = next
	}

	if best == nil {
		// Cancelled before the first evaluation: evaluate just the
		// natural-order individual so a layout is always returned.
		g.evalOne(population[0], 0, 0)
		best = population[0]
	}
	return best.layout
}

// initPopulation seeds one individual from the natural input order and
// fills the remainder with random permutations and rotations.
func (g *geneticOptimizer) initPopulation() []*chromosome {
	n := len(g.insts)
	pop := make([]*chromosome, g.cfg.PopulationSize)

	natural := &chromosome{genes: make([]gene, n)}
	for i := range natural.genes {
		natural.genes[i] = gene{instIndex: i, rotIndex: 0}
	}
	pop[0] = natural

	for i := 1; i < len(pop); i++ {
		genes := make([]gene, n)
		for j, idx := range g.rng.Perm(n) {
			genes[j] = gene{
				instIndex: idx,
				rotIndex:  g.rng.Intn(len(g.insts[idx].rotations)),
			}
		}
		pop[i] = &chromosome{
			genes:  genes,
			random: g.cfg.UseRandomStrategy && g.rng.Float64() < 0.5,
		}
	}
	return pop
}

// evaluate scores every unevaluated individual, optionally across a
// bounded worker pool. Each evaluation is a pure function of the
// chromosome plus shared read-only state, so no ordering dependency
// exists between individuals.
func (g *geneticOptimizer) evaluate(ctx context.Context, gen int, population []*chromosome) {
	if g.cfg.Workers <= 1 {
		for i, c := range population {
			if !c.evaluated {
				g.evalOne(c, gen, i)
			}
		}
		return
	}
	grp, _ := errgroup.WithContext(ctx)
	grp.SetLimit(g.cfg.Workers)
	for i, c := range population {
		if c.evaluated {
			continue
		}
		grp.Go(func() error {
			g.evalOne(c, gen, i)
			return nil
		})
	}
	grp.Wait() //nolint:errcheck // evaluations never return errors
}

// evalOne decodes a chromosome through the placement engine and scores
// it: sheet count is the primary key, wasted area the secondary, with a
// heavy penalty per unplaced part.
func (g *geneticOptimizer) evalOne(c *chromosome, gen, idx int) {
	reqs := make([]placeRequest, len(c.genes))
	for i, gn := range c.genes {
		inst := g.insts[gn.instIndex]
		reqs[i] = placeRequest{inst: inst, rotation: inst.rotations[gn.rotIndex]}
	}

	// Derive a per-evaluation RNG so parallel evaluations stay
	// deterministic for a fixed seed.
	evalSeed := g.cfg.Seed + int64(gen)*100003 + int64(idx)
	pl := newPlacer(g.calc, g.sheet, g.cfg, rand.New(rand.NewSource(evalSeed)), c.random, g.logger)
	layout := pl.run(reqs)

	sheetArea := g.sheet.Width * g.sheet.Height
	fitness := float64(layout.SheetCount())*sheetArea + layout.WastedArea()
	fitness += float64(layout.UnplacedCount()) * sheetArea * 10

	c.fitness = fitness
	c.layout = layout
	c.evaluated = true
}

func (g *geneticOptimizer) tournamentSelect(population []*chromosome) *chromosome {
	best := population[g.rng.Intn(len(population))]
	for i := 1; i < g.tournamentSize; i++ {
		c := population[g.rng.Intn(len(population))]
		if c.fitness < best.fitness {
			best = c
		}
	}
	return best
}

// orderCrossover is OX1 on the instance permutation: the child inherits
// a contiguous slice (with its rotation genes) from parent1 and fills
// the remaining slots from parent2 in relative order.
func (g *geneticOptimizer) orderCrossover(p1, p2 *chromosome) *chromosome {
	n := len(p1.genes)
	if n <= 2 {
		return g.clone(p1)
	}
	a, b := g.rng.Intn(n), g.rng.Intn(n)
	if a > b {
		a, b = b, a
	}

	child := &chromosome{genes: make([]gene, n)}
	inSlice := make(map[int]bool, b-a+1)
	for i := a; i <= b; i++ {
		child.genes[i] = p1.genes[i]
		inSlice[p1.genes[i].instIndex] = true
	}
	pos := (b + 1) % n
	for _, gn := range p2.genes {
		if inSlice[gn.instIndex] {
			continue
		}
		child.genes[pos] = gn
		pos = (pos + 1) % n
	}

	// The strategy gene comes from either parent at random.
	if g.rng.Float64() < 0.5 {
		child.random = p1.random
	} else {
		child.random = p2.random
	}
	return child
}

// mutate applies swap and rotation mutations, each with independent
// probability.
func (g *geneticOptimizer) mutate(c *chromosome) {
	n := len(c.genes)
	if n >= 2 && g.rng.Float64() < g.cfg.MutationRate {
		i, j := g.rng.Intn(n), g.rng.Intn(n)
		c.genes[i], c.genes[j] = c.genes[j], c.genes[i]
	}
	if n >= 1 && g.rng.Float64() < g.cfg.MutationRate {
		i := g.rng.Intn(n)
		rots := g.insts[c.genes[i].instIndex].rotations
		if len(rots) > 1 {
			c.genes[i].rotIndex = g.rng.Intn(len(rots))
		}
	}
	if g.cfg.UseRandomStrategy && g.rng.Float64() < g.cfg.MutationRate {
		c.random = !c.random
	}
}

func (g *geneticOptimizer) clone(c *chromosome) *chromosome {
	genes := make([]gene, len(c.genes))
	copy(genes, c.genes)
	return &chromosome{
		genes:     genes,
		random:    c.random,
		fitness:   c.fitness,
		layout:    c.layout,
		evaluated: c.evaluated,
	}
}
