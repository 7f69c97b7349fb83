package engine

import (
	"context"
	"fmt"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/model"
)

// ComparisonScenario defines a named configuration to compare.
type ComparisonScenario struct {
	Name   string
	Config model.NestConfig
}

// ComparisonResult holds the nesting result and computed statistics
// for a single scenario.
type ComparisonResult struct {
	Scenario      ComparisonScenario
	Layout        *model.Layout
	SheetsUsed    int
	WastePercent  float64
	UnplacedCount int
	Err           error
}

// CompareScenarios nests the same parts under each scenario and
// returns the results in scenario order for side-by-side comparison.
// A scenario that fails validation is reported in its result rather
// than aborting the remaining ones.
func CompareScenarios(ctx context.Context, scenarios []ComparisonScenario, parts []*model.Part, sheet model.Sheet, opts ...Option) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		res := ComparisonResult{Scenario: scenario}

		nester, err := NewNester(scenario.Config, opts...)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		layout, err := nester.Run(ctx, parts, sheet)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		res.Layout = layout
		res.SheetsUsed = layout.SheetCount()
		res.WastePercent = 100.0 - layout.TotalUtilization()*100
		res.UnplacedCount = layout.UnplacedCount()
		results = append(results, res)
	}

	return results
}

// BuildDefaultScenarios derives what-if scenarios from the given base
// configuration by varying the parameters that most affect packing.
func BuildDefaultScenarios(base model.NestConfig) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{Name: "Current Settings", Config: base},
	}

	// Scenario: pack along the other axis.
	altDir := base
	if base.PackingDirection == model.DirectionDown || base.PackingDirection == model.DirectionUp {
		altDir.PackingDirection = model.DirectionLeft
		scenarios = append(scenarios, ComparisonScenario{Name: "Pack Left", Config: altDir})
	} else {
		altDir.PackingDirection = model.DirectionDown
		scenarios = append(scenarios, ComparisonScenario{Name: "Pack Down", Config: altDir})
	}

	// Scenario: toggle the random placement strategy.
	altRand := base
	altRand.UseRandomStrategy = !base.UseRandomStrategy
	if altRand.UseRandomStrategy {
		scenarios = append(scenarios, ComparisonScenario{Name: "Random Strategy", Config: altRand})
	} else {
		scenarios = append(scenarios, ComparisonScenario{Name: "Deterministic Strategy", Config: altRand})
	}

	// Scenario: longer evolution.
	if base.Generations < 10 {
		longer := base
		longer.Generations = base.Generations * 5
		if longer.Generations < 10 {
			longer.Generations = 10
		}
		scenarios = append(scenarios, ComparisonScenario{
			Name:   fmt.Sprintf("%d Generations", longer.Generations),
			Config: longer,
		})
	}

	// Scenario: finer rotation steps.
	if base.RotationSteps < 8 {
		finer := base
		finer.RotationSteps = 8
		scenarios = append(scenarios, ComparisonScenario{Name: "8 Rotation Steps", Config: finer})
	}

	return scenarios
}
