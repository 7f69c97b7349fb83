package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/geometry"
	"github.com/tarman3/Freecad-Nesting-Workbench/internal/model"
)

func sampleLayout() *model.Layout {
	rect := func(x, y, w, h float64) geometry.Contour {
		return geometry.Contour{
			{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h},
		}
	}
	return &model.Layout{
		Sheets: []model.SheetLayout{
			{
				Index: 0, Width: 2500, Height: 1250, UsedArea: 800000,
				Placements: []model.Placement{
					{PartID: "a1", Label: "Side Panel", SheetIndex: 0, X: 305, Y: 205,
						Order: 0, Outline: rect(5, 5, 600, 400)},
					{PartID: "b2", Label: "Shelf", SheetIndex: 0, X: 890, Y: 180, Rotation: 90,
						Order: 1, Outline: rect(715, 5, 350, 550)},
				},
			},
			{
				Index: 1, Width: 2500, Height: 1250, UsedArea: 240000,
				Placements: []model.Placement{
					{PartID: "a1", Label: "Side Panel", SheetIndex: 1, X: 305, Y: 205,
						Order: 2, Outline: rect(5, 5, 600, 400)},
				},
			},
		},
		Unplaced: []model.UnplacedPart{
			{PartID: "c3", Label: "Gap Strip", Quantity: 2, Reason: model.ReasonNoSpaceLeft},
		},
	}
}

func TestExportPDF_WritesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.pdf")

	require.NoError(t, ExportPDF(path, sampleLayout()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(data) > 4 && string(data[:4]) == "%PDF", "output is a PDF document")
}

func TestExportPDF_EmptyLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")

	err := ExportPDF(path, &model.Layout{})
	require.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestExportLabels_WritesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.pdf")

	require.NoError(t, ExportLabels(path, sampleLayout()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestExportLabels_NoPlacements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.pdf")

	err := ExportLabels(path, &model.Layout{})
	require.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestCollectLabelInfos(t *testing.T) {
	infos := CollectLabelInfos(sampleLayout())
	require.Len(t, infos, 3)

	assert.Equal(t, LabelInfo{
		PartID: "a1", PartLabel: "Side Panel", SheetIndex: 1,
		X: 305, Y: 205, Order: 0,
	}, infos[0])

	assert.Equal(t, 90.0, infos[1].Rotation)
	assert.Equal(t, 2, infos[2].SheetIndex, "label sheet numbers are 1-based")

	assert.Empty(t, CollectLabelInfos(&model.Layout{}))
}
