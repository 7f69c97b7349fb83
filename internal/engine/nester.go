package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/geometry"
	"github.com/tarman3/Freecad-Nesting-Workbench/internal/model"
	"github.com/tarman3/Freecad-Nesting-Workbench/internal/nfp"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Nester coordinates preprocessing, the genetic search and placement.
// It owns a no-fit-polygon cache that persists across Run calls, so
// repeated runs over the same part set skip the expensive geometry.
type Nester struct {
	cfg      model.NestConfig
	cache    *nfp.Cache
	calc     *nfp.Calculator
	logger   *slog.Logger
	progress func(Progress)
}

// Option configures a Nester.
type Option func(*Nester)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Nester) { n.logger = l }
}

// WithProgress registers a callback invoked after every generation.
func WithProgress(fn func(Progress)) Option {
	return func(n *Nester) { n.progress = fn }
}

// NewNester validates the configuration and builds a nester. An
// invalid configuration is a fatal error.
func NewNester(cfg model.NestConfig, opts ...Option) (*Nester, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}
	n := &Nester{cfg: cfg, cache: nfp.NewCache()}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	n.calc = nfp.NewCalculator(n.cache, n.logger)
	return n, nil
}

// ClearCache drops all cached no-fit polygons and rotated geometry.
func (n *Nester) ClearCache() {
	n.calc.Clear()
}

// CacheSize reports the number of cached no-fit-polygon entries.
func (n *Nester) CacheSize() int {
	return n.cache.Len()
}

// Run nests the given parts onto copies of sheet and returns the best
// layout found. Parts whose outlines fail preprocessing are reported
// in the layout's Unplaced list rather than aborting the run.
// Cancellation via ctx is honoured at generation boundaries and
// returns the best layout found so far.
func (n *Nester) Run(ctx context.Context, parts []*model.Part, sheet model.Sheet) (*model.Layout, error) {
	if err := sheet.Validate(); err != nil {
		return nil, err
	}
	for _, p := range parts {
		if p.Quantity < 1 {
			return nil, fmt.Errorf("%w: part %s has quantity %d", model.ErrInvalidConfig, p.ID, p.Quantity)
		}
		if p.Rotations != nil && len(p.Rotations) == 0 {
			return nil, fmt.Errorf("%w: part %s has an empty rotation set", model.ErrInvalidConfig, p.ID)
		}
	}
	if n.cfg.ClearNfpCache {
		n.calc.Clear()
	}

	insts, invalid := n.prepare(parts)
	n.logger.Info("nesting started",
		"parts", len(parts), "instances", len(insts),
		"sheet", fmt.Sprintf("%gx%g", sheet.Width, sheet.Height),
		"generations", n.cfg.Generations, "population", n.cfg.PopulationSize)

	opt := newGeneticOptimizer(insts, sheet, n.cfg, n.calc, n.logger, n.progress)
	layout := opt.optimize(ctx)

	layout.Unplaced = append(layout.Unplaced, invalid...)
	sort.Slice(layout.Unplaced, func(i, j int) bool {
		return layout.Unplaced[i].PartID < layout.Unplaced[j].PartID
	})

	n.logger.Info("nesting finished",
		"sheets", layout.SheetCount(), "placed", layout.PlacedCount(),
		"unplaced", layout.UnplacedCount(),
		"utilization", fmt.Sprintf("%.1f%%", layout.TotalUtilization()*100))
	return layout, nil
}

// prepare converts part outlines to clean polygons and expands
// quantities into individual placement instances. Degenerate outlines
// are collected as unplaced with ReasonInvalidPolygon.
func (n *Nester) prepare(parts []*model.Part) ([]*partInstance, []model.UnplacedPart) {
	var (
		insts   []*partInstance
		invalid []model.UnplacedPart
		order   int
	)
	for _, p := range parts {
		poly, err := n.preparePolygon(p)
		if err != nil {
			n.logger.Warn("skipping part with invalid outline", "part", p.ID, "label", p.Label, "error", err)
			invalid = append(invalid, model.UnplacedPart{
				PartID:   p.ID,
				Label:    p.Label,
				Quantity: p.Quantity,
				Reason:   model.ReasonInvalidPolygon,
			})
			continue
		}
		sig := nfp.Signature(poly)
		rotations := n.cfg.AllowedRotations(*p)
		area := poly.Area()
		for q := 0; q < p.Quantity; q++ {
			insts = append(insts, &partInstance{
				part:      *p,
				poly:      poly,
				sig:       sig,
				rotations: rotations,
				area:      area,
				order:     order,
			})
			order++
		}
	}
	return insts, invalid
}

// preparePolygon runs geometric preprocessing for one part, classifying
// failures as model.ErrInvalidPolygon.
func (n *Nester) preparePolygon(p *model.Part) (*geometry.Polygon, error) {
	poly, err := geometry.Prepare(p.Outline, p.Holes, n.cfg.CurveAngleTolerance, n.cfg.SimplificationTolerance)
	if err != nil {
		return nil, fmt.Errorf("%w: part %s: %v", model.ErrInvalidPolygon, p.ID, err)
	}
	return poly, nil
}
