package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/geometry"
)

func TestSheet_Validate(t *testing.T) {
	assert.NoError(t, Sheet{Width: 100, Height: 50}.Validate())
	assert.NoError(t, Sheet{Width: 100, Height: 50, Spacing: 2}.Validate())

	assert.ErrorIs(t, Sheet{Width: 0, Height: 50}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Sheet{Width: 100, Height: -1}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Sheet{Width: 100, Height: 50, Spacing: -0.5}.Validate(), ErrInvalidConfig)
}

func TestDirection_Vector(t *testing.T) {
	cases := []struct {
		dir    Direction
		dx, dy float64
	}{
		{DirectionDown, 0, -1},
		{DirectionLeft, -1, 0},
		{DirectionUp, 0, 1},
		{DirectionRight, 1, 0},
		{Direction("unknown"), 0, -1},
	}
	for _, tc := range cases {
		dx, dy := tc.dir.Vector()
		assert.Equal(t, tc.dx, dx, "direction %s", tc.dir)
		assert.Equal(t, tc.dy, dy, "direction %s", tc.dir)
	}
}

func TestNestConfig_AllowedRotations(t *testing.T) {
	cfg := DefaultConfig()

	derived := cfg.AllowedRotations(Part{})
	assert.Equal(t, []float64{0, 90, 180, 270}, derived, "derived from RotationSteps")

	explicit := cfg.AllowedRotations(Part{Rotations: []float64{0, 45}})
	assert.Equal(t, []float64{0, 45}, explicit, "explicit set wins")

	cfg.RotationSteps = 1
	assert.Equal(t, []float64{0}, cfg.AllowedRotations(Part{}))
}

func TestNewPart(t *testing.T) {
	outline := []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 0, Y: 5}}

	p := NewPart("Shelf", outline, 3)
	require.Len(t, p.ID, 8)
	assert.Equal(t, "Shelf", p.Label)
	assert.Equal(t, 3, p.Quantity)
	require.Len(t, p.Outline, 4)
	assert.Zero(t, p.Outline[0].Bulge)

	other := NewPart("Shelf", outline, 3)
	assert.NotEqual(t, p.ID, other.ID, "IDs are unique per part")
}

func TestLayout_Statistics(t *testing.T) {
	layout := &Layout{
		Sheets: []SheetLayout{
			{Index: 0, Width: 100, Height: 100, UsedArea: 7500,
				Placements: []Placement{{PartID: "a"}, {PartID: "b"}}},
			{Index: 1, Width: 100, Height: 100, UsedArea: 2500,
				Placements: []Placement{{PartID: "a"}}},
		},
		Unplaced: []UnplacedPart{{PartID: "c", Quantity: 2, Reason: ReasonNoSpaceLeft}},
	}

	assert.Equal(t, 2, layout.SheetCount())
	assert.Equal(t, 3, layout.PlacedCount())
	assert.Equal(t, 2, layout.UnplacedCount())
	assert.InDelta(t, 10000.0, layout.WastedArea(), 1e-9)
	assert.InDelta(t, 0.5, layout.TotalUtilization(), 1e-9)
	assert.InDelta(t, 0.75, layout.Sheets[0].Utilization(), 1e-9)

	empty := &Layout{}
	assert.Zero(t, empty.TotalUtilization())
}
