package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/model"
)

// LabelInfo holds the data encoded into each part label's QR code.
type LabelInfo struct {
	PartID     string  `json:"part_id"`
	PartLabel  string  `json:"label"`
	SheetIndex int     `json:"sheet"`
	Rotation   float64 `json:"rotation_deg"`
	X          float64 `json:"x_mm"`
	Y          float64 `json:"y_mm"`
	Order      int     `json:"order"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns,
// 10 rows per page). Each label cell is approximately 66.7mm x 25.4mm
// on US Letter paper.
const (
	labelPageWidth  = 215.9 // US Letter width in mm
	labelPageHeight = 279.4 // US Letter height in mm
	labelMarginTop  = 12.7  // mm
	labelMarginLeft = 4.8   // mm
	labelWidth      = 66.7  // mm per label
	labelHeight     = 25.4  // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportLabels generates a PDF of QR-coded labels for all placed
// parts. Each label carries the part name, its sheet and position, and
// a QR code encoding the placement as JSON. Labels are laid out on a
// standard label sheet format (Avery 5160 / 3 columns x 10 rows on US
// Letter).
func ExportLabels(path string, layout *model.Layout) error {
	labels := CollectLabelInfos(layout)
	if len(labels) == 0 {
		return fmt.Errorf("no parts placed to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, label); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.PartLabel, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, info LabelInfo) error {
	// Light border as a cutting guide.
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%s_%d_%d", info.PartID, info.SheetIndex, info.Order)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)

	partLabel := info.PartLabel
	if partLabel == "" {
		partLabel = info.PartID
	}
	if pdf.GetStringWidth(partLabel) > textW {
		for len(partLabel) > 0 && pdf.GetStringWidth(partLabel+"...") > textW {
			partLabel = partLabel[:len(partLabel)-1]
		}
		partLabel += "..."
	}
	pdf.CellFormat(textW, 4.5, partLabel, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+6)
	sheetInfo := fmt.Sprintf("Sheet %d @ (%.0f, %.0f)", info.SheetIndex, info.X, info.Y)
	pdf.CellFormat(textW, 3, sheetInfo, "", 1, "L", false, 0, "")

	if info.Rotation != 0 {
		pdf.SetXY(textX, y+labelPadding+9.5)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(150, 100, 0)
		pdf.CellFormat(textW, 3, fmt.Sprintf("Rotated %.0f\xb0", info.Rotation), "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)

	return nil
}

// CollectLabelInfos extracts label information from a nesting result
// for use in testing or alternative export formats.
func CollectLabelInfos(layout *model.Layout) []LabelInfo {
	var labels []LabelInfo
	for _, sheet := range layout.Sheets {
		for _, p := range sheet.Placements {
			labels = append(labels, LabelInfo{
				PartID:     p.PartID,
				PartLabel:  p.Label,
				SheetIndex: sheet.Index + 1,
				Rotation:   p.Rotation,
				X:          p.X,
				Y:          p.Y,
				Order:      p.Order,
			})
		}
	}
	return labels
}
