package model

import "github.com/tarman3/Freecad-Nesting-Workbench/internal/geometry"

// UnplacedReason classifies why a requested part instance was not
// placed. No instance is ever dropped without appearing in the report.
type UnplacedReason string

const (
	// ReasonInvalidPolygon: the outline was degenerate after
	// preprocessing; all instances of the part are excluded.
	ReasonInvalidPolygon UnplacedReason = "InvalidPolygon"
	// ReasonPartTooLargeForSheet: the part does not fit even alone on
	// an empty sheet at any allowed rotation.
	ReasonPartTooLargeForSheet UnplacedReason = "PartTooLargeForSheet"
	// ReasonNoSpaceLeft: a filler part found no remaining gap. Fillers
	// never open new sheets, so this is expected and non-fatal.
	ReasonNoSpaceLeft UnplacedReason = "NoSpaceLeft"
)

// Placement positions one part instance on a sheet. X, Y translate the
// part's reference point (the centroid of its prepared outline).
type Placement struct {
	PartID     string  `json:"part_id"`
	Label      string  `json:"label,omitempty"`
	SheetIndex int     `json:"sheet_index"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Rotation   float64 `json:"rotation"`
	// Order is the insertion order index within the run.
	Order int `json:"order"`
	// Outline is the placed outer contour in sheet coordinates, for
	// export and visualization collaborators.
	Outline geometry.Contour `json:"outline,omitempty"`
}

// SheetLayout is one used sheet with its placements in insertion order.
type SheetLayout struct {
	Index      int         `json:"index"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Thickness  float64     `json:"thickness,omitempty"`
	Placements []Placement `json:"placements"`
	UsedArea   float64     `json:"used_area"`
}

// Utilization returns the utilized area fraction of the sheet.
func (s SheetLayout) Utilization() float64 {
	total := s.Width * s.Height
	if total == 0 {
		return 0
	}
	return s.UsedArea / total
}

// UnplacedPart is one entry of the unplaced-parts report.
type UnplacedPart struct {
	PartID   string         `json:"part_id"`
	Label    string         `json:"label,omitempty"`
	Quantity int            `json:"quantity"`
	Reason   UnplacedReason `json:"reason"`
}

// Layout is the result of one nesting run.
type Layout struct {
	Sheets   []SheetLayout  `json:"sheets"`
	Unplaced []UnplacedPart `json:"unplaced,omitempty"`
}

// SheetCount returns the number of sheets used.
func (l *Layout) SheetCount() int { return len(l.Sheets) }

// PlacedCount returns the total number of placements across all sheets.
func (l *Layout) PlacedCount() int {
	n := 0
	for _, s := range l.Sheets {
		n += len(s.Placements)
	}
	return n
}

// UnplacedCount returns the total quantity in the unplaced report.
func (l *Layout) UnplacedCount() int {
	n := 0
	for _, u := range l.Unplaced {
		n += u.Quantity
	}
	return n
}

// WastedArea returns the unused area summed across used sheets.
func (l *Layout) WastedArea() float64 {
	var w float64
	for _, s := range l.Sheets {
		w += s.Width*s.Height - s.UsedArea
	}
	return w
}

// TotalUtilization returns the overall utilized area fraction.
func (l *Layout) TotalUtilization() float64 {
	var used, total float64
	for _, s := range l.Sheets {
		used += s.UsedArea
		total += s.Width * s.Height
	}
	if total == 0 {
		return 0
	}
	return used / total
}
