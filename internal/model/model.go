// Package model defines the value records exchanged between the
// nesting components: parts, sheets, run configuration and the
// resulting layout. All records are plain data passed explicitly; the
// engine never mutates its inputs.
package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/geometry"
)

var (
	// ErrInvalidPolygon marks a part whose outline is degenerate after
	// preprocessing. The part is excluded and reported unplaced; the
	// run continues.
	ErrInvalidPolygon = errors.New("invalid polygon")

	// ErrInvalidConfig marks malformed run configuration. This is the
	// only fatal condition: the run aborts before any placement work.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Direction is the gravity direction parts are packed against.
type Direction string

const (
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionUp    Direction = "up"
	DirectionRight Direction = "right"
)

// Vector returns the unit gravity vector for the direction.
func (d Direction) Vector() (dx, dy float64) {
	switch d {
	case DirectionLeft:
		return -1, 0
	case DirectionUp:
		return 0, 1
	case DirectionRight:
		return 1, 0
	default:
		return 0, -1
	}
}

// Part is one required piece to nest.
type Part struct {
	ID       string                 `json:"id"`
	Label    string                 `json:"label"`
	Outline  geometry.RawContour    `json:"outline"`
	Holes    []geometry.RawContour  `json:"holes,omitempty"`
	Quantity int                    `json:"quantity"`
	// Rotations is the set of allowed rotation angles in degrees. When
	// nil, angles are derived from the global RotationSteps setting. An
	// explicitly empty set is malformed configuration.
	Rotations []float64 `json:"rotations,omitempty"`
	// Filler parts are placed opportunistically into leftover gaps
	// after all primary parts, and never open a new sheet.
	Filler bool `json:"filler,omitempty"`
	// UpAxis records which axis the external projector treated as "up"
	// when producing the 2D outline. Carried as metadata only.
	UpAxis string `json:"up_axis,omitempty"`
}

// NewPartID generates a short unique part identifier.
func NewPartID() string {
	return uuid.New().String()[:8]
}

// NewPart creates a part with a generated ID from a plain point outline.
func NewPart(label string, outline []geometry.Point, qty int) Part {
	return Part{
		ID:       NewPartID(),
		Label:    label,
		Outline:  geometry.LinearContour(outline),
		Quantity: qty,
	}
}

// Sheet describes the rectangular stock material.
type Sheet struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// Thickness is carried through for downstream consumers; it plays
	// no geometric role in nesting.
	Thickness float64 `json:"thickness,omitempty"`
	// Spacing is the minimum clearance between any two placed parts and
	// between a part and the sheet edges.
	Spacing float64 `json:"spacing"`
}

// Validate checks the sheet dimensions.
func (s Sheet) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: sheet must have positive area, got %gx%g", ErrInvalidConfig, s.Width, s.Height)
	}
	if s.Spacing < 0 {
		return fmt.Errorf("%w: negative spacing %g", ErrInvalidConfig, s.Spacing)
	}
	return nil
}

// NestConfig holds all engine options, validated once at run start.
type NestConfig struct {
	// Placement
	PackingDirection  Direction `json:"packing_direction" validate:"oneof=down left up right"`
	UseRandomStrategy bool      `json:"use_random_strategy"`
	// RandomBand is the score band, as a fraction of the larger sheet
	// dimension, from which the random strategy samples candidates.
	RandomBand float64 `json:"random_band" validate:"gte=0,lte=1"`
	// CandidateStep is the spacing at which NFP edges are discretized
	// into extra candidate positions (mm).
	CandidateStep float64 `json:"candidate_step" validate:"gt=0"`

	// Genetic algorithm
	Generations    int     `json:"generations" validate:"gte=1"`
	PopulationSize int     `json:"population_size" validate:"gte=1"`
	MutationRate   float64 `json:"mutation_rate" validate:"gte=0,lte=1"`
	Seed           int64   `json:"seed"`
	// Workers bounds parallel fitness evaluations per generation;
	// 0 means serial evaluation.
	Workers int `json:"workers" validate:"gte=0"`

	// Preprocessing
	CurveAngleTolerance     float64 `json:"curve_angle_tolerance" validate:"gt=0"`
	SimplificationTolerance float64 `json:"simplification_tolerance" validate:"gte=0"`
	// RotationSteps derives the default rotation set for parts without
	// an explicit one: i*360/steps for i in [0,steps).
	RotationSteps int `json:"rotation_steps" validate:"gte=1"`

	// ClearNfpCache forces NFP recomputation at the start of the run.
	ClearNfpCache bool `json:"clear_nfp_cache"`
}

// DefaultConfig returns the engine defaults: a single deterministic
// pass (generations=1) packing downward.
func DefaultConfig() NestConfig {
	return NestConfig{
		PackingDirection:        DirectionDown,
		RandomBand:              0.05,
		CandidateStep:           5.0,
		Generations:             1,
		PopulationSize:          20,
		MutationRate:            0.1,
		Seed:                    42,
		CurveAngleTolerance:     5.0,
		SimplificationTolerance: 0.05,
		RotationSteps:           4,
	}
}

// AllowedRotations resolves the rotation set for a part under this
// configuration.
func (c NestConfig) AllowedRotations(p Part) []float64 {
	if p.Rotations != nil {
		return p.Rotations
	}
	steps := c.RotationSteps
	if steps < 1 {
		steps = 1
	}
	angles := make([]float64, steps)
	for i := range angles {
		angles[i] = float64(i) * 360.0 / float64(steps)
	}
	return angles
}
