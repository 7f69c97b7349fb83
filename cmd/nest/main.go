// nest packs 2D part outlines onto rectangular sheets.
//
// A job file (JSON) describes the parts, the stock sheet and the
// engine configuration; parts can also be imported from CSV, Excel or
// DXF files. The resulting layout is written as JSON, with optional
// PDF layout and label exports.
//
// Build:
//
//	go build -o nest ./cmd/nest
//
// Run:
//
//	nest -job job.json -out layout.json
//	nest -parts list.csv -sheet 2500x1250 -spacing 5 -pdf layout.pdf
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/engine"
	"github.com/tarman3/Freecad-Nesting-Workbench/internal/export"
	"github.com/tarman3/Freecad-Nesting-Workbench/internal/importer"
	"github.com/tarman3/Freecad-Nesting-Workbench/internal/model"
	"github.com/tarman3/Freecad-Nesting-Workbench/internal/project"
)

func main() {
	var (
		jobPath    = flag.String("job", "", "path to a job file (JSON)")
		partsPath  = flag.String("parts", "", "import parts from a CSV, Excel or DXF file")
		sheetSpec  = flag.String("sheet", "", "sheet dimensions as WxH in mm (with -parts)")
		spacing    = flag.Float64("spacing", 0, "minimum clearance between parts in mm (with -parts)")
		outPath    = flag.String("out", "layout.json", "path to write the resulting layout")
		pdfPath    = flag.String("pdf", "", "also write a layout PDF to this path")
		labelsPath = flag.String("labels", "", "also write QR part labels PDF to this path")
		compare    = flag.Bool("compare", false, "run what-if scenarios instead of a single nest")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *jobPath == "" && *partsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: nest -job job.json | -parts list.csv -sheet WxH [options]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		jobPath:    *jobPath,
		partsPath:  *partsPath,
		sheetSpec:  *sheetSpec,
		spacing:    *spacing,
		outPath:    *outPath,
		pdfPath:    *pdfPath,
		labelsPath: *labelsPath,
		compare:    *compare,
	}); err != nil {
		logger.Error("nest failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	jobPath    string
	partsPath  string
	sheetSpec  string
	spacing    float64
	outPath    string
	pdfPath    string
	labelsPath string
	compare    bool
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	job, err := buildJob(logger, opts)
	if err != nil {
		return err
	}

	if opts.compare {
		return runComparison(ctx, logger, job)
	}

	nester, err := engine.NewNester(job.Config,
		engine.WithLogger(logger),
		engine.WithProgress(func(p engine.Progress) {
			logger.Info("generation",
				"n", p.Generation, "of", p.Generations,
				"fitness", p.BestFitness, "sheets", p.SheetCount)
		}))
	if err != nil {
		return err
	}

	layout, err := nester.Run(ctx, job.Parts, job.Sheet)
	if err != nil {
		return err
	}

	if err := project.SaveLayout(opts.outPath, layout); err != nil {
		return fmt.Errorf("writing layout: %w", err)
	}
	if opts.pdfPath != "" {
		if err := export.ExportPDF(opts.pdfPath, layout); err != nil {
			return fmt.Errorf("writing layout PDF: %w", err)
		}
	}
	if opts.labelsPath != "" {
		if err := export.ExportLabels(opts.labelsPath, layout); err != nil {
			return fmt.Errorf("writing labels PDF: %w", err)
		}
	}

	fmt.Printf("placed %d parts on %d sheet(s), %.1f%% utilization\n",
		layout.PlacedCount(), layout.SheetCount(), layout.TotalUtilization()*100)
	for _, u := range layout.Unplaced {
		fmt.Printf("unplaced: %s x%d (%s)\n", u.Label, u.Quantity, u.Reason)
	}
	fmt.Printf("layout written to %s\n", opts.outPath)
	return nil
}

// buildJob assembles the nesting job from the job file, an imported
// part list, or both. Imported parts are appended to the job's parts.
func buildJob(logger *slog.Logger, opts options) (project.Job, error) {
	job := project.Job{Config: model.DefaultConfig()}

	if opts.jobPath != "" {
		loaded, err := project.LoadJob(opts.jobPath)
		if err != nil {
			return project.Job{}, fmt.Errorf("loading job: %w", err)
		}
		job = loaded
	}

	if opts.partsPath != "" {
		result := importParts(opts.partsPath)
		for _, w := range result.Warnings {
			logger.Warn("import", "detail", w)
		}
		if len(result.Errors) > 0 {
			for _, e := range result.Errors {
				logger.Error("import", "detail", e)
			}
			return project.Job{}, fmt.Errorf("importing %s: %d error(s)", opts.partsPath, len(result.Errors))
		}
		job.Parts = append(job.Parts, result.Parts...)
	}

	if opts.sheetSpec != "" {
		var w, h float64
		if _, err := fmt.Sscanf(opts.sheetSpec, "%gx%g", &w, &h); err != nil {
			return project.Job{}, fmt.Errorf("invalid -sheet %q, expected WxH", opts.sheetSpec)
		}
		job.Sheet = model.Sheet{Width: w, Height: h, Spacing: opts.spacing}
	}

	if len(job.Parts) == 0 {
		return project.Job{}, fmt.Errorf("no parts to nest")
	}
	return job, nil
}

func importParts(path string) importer.ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dxf":
		return importer.ImportDXF(path)
	case ".xlsx", ".xlsm":
		return importer.ImportExcel(path)
	default:
		return importer.ImportCSV(path)
	}
}

func runComparison(ctx context.Context, logger *slog.Logger, job project.Job) error {
	scenarios := engine.BuildDefaultScenarios(job.Config)
	results := engine.CompareScenarios(ctx, scenarios, job.Parts, job.Sheet, engine.WithLogger(logger))

	fmt.Printf("%-24s %8s %8s %10s\n", "scenario", "sheets", "waste%", "unplaced")
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%-24s failed: %v\n", r.Scenario.Name, r.Err)
			continue
		}
		fmt.Printf("%-24s %8d %7.1f%% %10d\n",
			r.Scenario.Name, r.SheetsUsed, r.WastePercent, r.UnplacedCount)
	}
	return nil
}
