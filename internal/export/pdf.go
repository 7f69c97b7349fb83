// Package export renders nesting results to printable documents: a
// per-sheet layout PDF for the shop floor and QR-coded part labels.
package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/model"
)

// partColor represents an RGB color for a placed part.
type partColor struct {
	R, G, B int
}

var partColors = []partColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	legendHeight = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// ExportPDF generates a PDF document of a nesting result. Each sheet
// is rendered on its own page with the placed outlines to scale,
// followed by a summary page with overall statistics.
func ExportPDF(path string, layout *model.Layout) error {
	if layout.SheetCount() == 0 {
		return fmt.Errorf("no sheets to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, sheet := range layout.Sheets {
		pdf.AddPage()
		renderSheetPage(pdf, sheet)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, layout)

	return pdf.OutputFileAndClose(path)
}

// renderSheetPage draws a single sheet layout on the current PDF page.
func renderSheetPage(pdf *fpdf.Fpdf, sheet model.SheetLayout) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Sheet %d (%.0f x %.0f mm)", sheet.Index+1, sheet.Width, sheet.Height)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Parts: %d | Used area: %.0f mm² | Total area: %.0f mm² | Utilization: %.1f%%",
		len(sheet.Placements), sheet.UsedArea, sheet.Width*sheet.Height, sheet.Utilization()*100)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - legendHeight

	scale := math.Min(drawWidth/sheet.Width, drawHeight/sheet.Height)
	canvasW := sheet.Width * scale
	canvasH := sheet.Height * scale

	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	// Sheet background. PDF y grows downward, the layout's y grows
	// upward, so placements flip vertically around the sheet midline.
	pdf.SetFillColor(235, 235, 235)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	for i, p := range sheet.Placements {
		col := partColors[i%len(partColors)]
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)

		pts := make([]fpdf.PointType, len(p.Outline))
		for j, v := range p.Outline {
			pts[j] = fpdf.PointType{
				X: offsetX + v.X*scale,
				Y: offsetY + (sheet.Height-v.Y)*scale,
			}
		}
		pdf.Polygon(pts, "FD")

		drawPlacementLabel(pdf, p, scale, offsetX, offsetY, sheet.Height)
	}

	drawDimensionAnnotations(pdf, sheet, scale, offsetX, offsetY, canvasW, canvasH)
	drawPartsLegend(pdf, sheet, offsetY+canvasH+5)
}

// drawPlacementLabel writes the part label at the placement reference
// point when the outline is large enough to hold it.
func drawPlacementLabel(pdf *fpdf.Fpdf, p model.Placement, scale, offsetX, offsetY, sheetHeight float64) {
	if len(p.Outline) == 0 || p.Label == "" {
		return
	}
	bb := p.Outline.BoundingBox()
	pw := bb.Width() * scale
	ph := bb.Height() * scale
	if pw < 15 || ph < 8 {
		return
	}

	pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
	pdf.SetTextColor(0, 0, 0)
	labelW := pdf.GetStringWidth(p.Label)
	if labelW >= pw-2 {
		return
	}
	cx := offsetX + p.X*scale
	cy := offsetY + (sheetHeight-p.Y)*scale
	pdf.SetXY(cx-labelW/2, cy-2)
	pdf.CellFormat(labelW, 4, p.Label, "", 0, "C", false, 0, "")
}

// drawDimensionAnnotations adds width and height labels outside the
// sheet rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, sheet model.SheetLayout, scale, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%.0f mm", sheet.Width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%.0f mm", sheet.Height)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(offsetX-3-hLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawPartsLegend renders a compact legend of placed parts at the
// bottom of the sheet page.
func drawPartsLegend(pdf *fpdf.Fpdf, sheet model.SheetLayout, startY float64) {
	if len(sheet.Placements) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Parts placed:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for i, p := range sheet.Placements {
		col := partColors[i%len(partColors)]
		label := p.Label
		if label == "" {
			label = p.PartID
		}
		if p.Rotation != 0 {
			label += fmt.Sprintf(" @%.0f°", p.Rotation)
		}
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final summary page with overall
// statistics and the unplaced-parts report.
func renderSummaryPage(pdf *fpdf.Fpdf, layout *model.Layout) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Nesting Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	summaryItems := []struct {
		label string
		value string
	}{
		{"Total Sheets Used", fmt.Sprintf("%d", layout.SheetCount())},
		{"Overall Utilization", fmt.Sprintf("%.1f%%", layout.TotalUtilization()*100)},
		{"Total Parts Placed", fmt.Sprintf("%d", layout.PlacedCount())},
		{"Unplaced Parts", fmt.Sprintf("%d", layout.UnplacedCount())},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Sheet Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{20, 55, 40, 45, 60}
	headers := []string{"Sheet", "Dimensions", "Parts", "Utilization", "Used / Total Area"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, sheet := range layout.Sheets {
		xPos = marginLeft
		rowData := []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.0f x %.0f mm", sheet.Width, sheet.Height),
			fmt.Sprintf("%d", len(sheet.Placements)),
			fmt.Sprintf("%.1f%%", sheet.Utilization()*100),
			fmt.Sprintf("%.0f / %.0f mm²", sheet.UsedArea, sheet.Width*sheet.Height),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if len(layout.Unplaced) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unplaced Parts", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)

		for _, part := range layout.Unplaced {
			pdf.SetXY(marginLeft+5, y)
			text := fmt.Sprintf("- %s (qty: %d): %s", part.Label, part.Quantity, part.Reason)
			pdf.CellFormat(200, 5, text, "", 0, "L", false, 0, "")
			y += 5
		}
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by nest - 2D Part Nesting", "", 0, "C", false, 0, "")
}

// labelFontSize returns an appropriate font size for the given
// rectangle dimensions.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
