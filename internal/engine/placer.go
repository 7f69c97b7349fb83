// Package engine implements the nesting core: the gravity placement
// heuristic, the genetic optimizer that searches part orderings and
// rotations, and the orchestrator that wires them together with the
// NFP cache.
package engine

import (
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/geometry"
	"github.com/tarman3/Freecad-Nesting-Workbench/internal/model"
	"github.com/tarman3/Freecad-Nesting-Workbench/internal/nfp"
)

// partInstance is one concrete piece to place: a part expanded by
// quantity, with its prepared polygon and cache signature.
type partInstance struct {
	part      model.Part
	poly      *geometry.Polygon
	sig       uint64
	rotations []float64
	area      float64
	order     int
}

// placeRequest pairs an instance with the rotation its gene selected.
type placeRequest struct {
	inst     *partInstance
	rotation float64
}

type placedPart struct {
	inst     *partInstance
	rotation float64
	pos      geometry.Point
	poly     *geometry.Polygon // rotated and translated to position
}

type sheetState struct {
	placed []placedPart
}

// placer runs one placement evaluation: given ordered requests it
// produces a layout. It only reads shared state (polygons, NFP cache);
// all mutable placement state is local to the evaluation.
type placer struct {
	calc   *nfp.Calculator
	sheet  model.Sheet
	cfg    model.NestConfig
	rng    *rand.Rand
	random bool
	logger *slog.Logger
}

func newPlacer(calc *nfp.Calculator, sheet model.Sheet, cfg model.NestConfig, rng *rand.Rand, random bool, logger *slog.Logger) *placer {
	return &placer{calc: calc, sheet: sheet, cfg: cfg, rng: rng, random: random, logger: logger}
}

// run places all requests: primary parts first in the given order,
// spilling to new sheets as needed, then fillers largest-first into
// whatever gaps remain.
func (p *placer) run(reqs []placeRequest) *model.Layout {
	var mains, fillers []placeRequest
	for _, r := range reqs {
		if r.inst.part.Filler {
			fillers = append(fillers, r)
		} else {
			mains = append(mains, r)
		}
	}

	var sheets []*sheetState
	layout := &model.Layout{}
	unplaced := map[string]*model.UnplacedPart{}

	report := func(inst *partInstance, reason model.UnplacedReason) {
		key := inst.part.ID + string(reason)
		if u, ok := unplaced[key]; ok {
			u.Quantity++
			return
		}
		u := &model.UnplacedPart{PartID: inst.part.ID, Label: inst.part.Label, Quantity: 1, Reason: reason}
		unplaced[key] = u
	}

	for _, r := range mains {
		placed := false
		for _, st := range sheets {
			if pos, rot, ok := p.placeOnSheet(st, r.inst, r.rotation); ok {
				p.commit(st, r.inst, rot, pos)
				placed = true
				break
			}
		}
		if !placed {
			st := &sheetState{}
			if pos, rot, ok := p.placeOnSheet(st, r.inst, r.rotation); ok {
				p.commit(st, r.inst, rot, pos)
				sheets = append(sheets, st)
			} else {
				report(r.inst, model.ReasonPartTooLargeForSheet)
			}
		}
	}

	// Filler pass: per sheet, largest first, never opening new sheets.
	sort.SliceStable(fillers, func(i, j int) bool {
		return fillers[i].inst.area > fillers[j].inst.area
	})
	remaining := fillers
	for _, st := range sheets {
		var next []placeRequest
		for _, r := range remaining {
			if pos, rot, ok := p.placeOnSheet(st, r.inst, r.rotation); ok {
				p.commit(st, r.inst, rot, pos)
			} else {
				next = append(next, r)
			}
		}
		remaining = next
	}
	for _, r := range remaining {
		report(r.inst, model.ReasonNoSpaceLeft)
	}

	// Build the layout in insertion order.
	idx := 0
	for si, st := range sheets {
		sl := model.SheetLayout{
			Index:     si,
			Width:     p.sheet.Width,
			Height:    p.sheet.Height,
			Thickness: p.sheet.Thickness,
		}
		for _, pp := range st.placed {
			sl.Placements = append(sl.Placements, model.Placement{
				PartID:     pp.inst.part.ID,
				Label:      pp.inst.part.Label,
				SheetIndex: si,
				X:          pp.pos.X,
				Y:          pp.pos.Y,
				Rotation:   pp.rotation,
				Order:      idx,
				Outline:    pp.poly.Outer.Clone(),
			})
			sl.UsedArea += pp.inst.area
			idx++
		}
		layout.Sheets = append(layout.Sheets, sl)
	}
	for _, u := range unplaced {
		layout.Unplaced = append(layout.Unplaced, *u)
	}
	sort.Slice(layout.Unplaced, func(i, j int) bool {
		return layout.Unplaced[i].PartID < layout.Unplaced[j].PartID
	})
	return layout
}

func (p *placer) commit(st *sheetState, inst *partInstance, rotation float64, pos geometry.Point) {
	moved := p.calc.Rotated(inst.poly, inst.sig, rotation).Translated(pos.X, pos.Y)
	st.placed = append(st.placed, placedPart{inst: inst, rotation: rotation, pos: pos, poly: moved})
}

// placeOnSheet finds a collision-free position for the instance on the
// given sheet, preferring the gene rotation and falling back through
// the remaining allowed rotations.
func (p *placer) placeOnSheet(st *sheetState, inst *partInstance, rotation float64) (geometry.Point, float64, bool) {
	for _, rot := range rotationOrder(inst.rotations, rotation) {
		if pos, ok := p.tryRotation(st, inst, rot); ok {
			return pos, rot, true
		}
	}
	return geometry.Point{}, 0, false
}

func rotationOrder(allowed []float64, preferred float64) []float64 {
	out := []float64{preferred}
	for _, a := range allowed {
		if a != preferred {
			out = append(out, a)
		}
	}
	return out
}

func (p *placer) tryRotation(st *sheetState, inst *partInstance, rot float64) (geometry.Point, bool) {
	fitRes := p.calc.InnerFit(p.sheet.Width, p.sheet.Height, p.sheet.Spacing, inst.poly, inst.sig, rot)
	if !fitRes.FitOK {
		return geometry.Point{}, false
	}
	fit := fitRes.Fit
	rp := p.calc.Rotated(inst.poly, inst.sig, rot)

	candidates := p.candidates(st, inst, rot, fit, rp)
	if len(candidates) == 0 {
		return geometry.Point{}, false
	}

	dx, dy := p.cfg.PackingDirection.Vector()
	type scored struct {
		pos    geometry.Point
		metric float64
		tie    float64
	}
	var valid []scored
	best := math.Inf(1)
	for _, cand := range candidates {
		metric := -(cand.X*dx + cand.Y*dy)
		if !p.random && metric > best+p.tieEpsilon() {
			// Deterministic mode: a worse candidate can never win, skip
			// its (expensive) validation.
			continue
		}
		if !p.validate(st, rp, cand) {
			continue
		}
		tie := cand.X
		if dy == 0 {
			tie = cand.Y // gravity along X: break ties on Y
		}
		valid = append(valid, scored{pos: cand, metric: metric, tie: tie})
		if metric < best {
			best = metric
		}
	}
	if len(valid) == 0 {
		return geometry.Point{}, false
	}

	if p.random {
		band := p.cfg.RandomBand * math.Max(p.sheet.Width, p.sheet.Height)
		var pool []scored
		for _, v := range valid {
			if v.metric <= best+band {
				pool = append(pool, v)
			}
		}
		return pool[p.rng.Intn(len(pool))].pos, true
	}

	eps := p.tieEpsilon()
	winner := valid[0]
	for _, v := range valid[1:] {
		if v.metric < winner.metric-eps {
			winner = v
		} else if math.Abs(v.metric-winner.metric) <= eps && v.tie < winner.tie-eps {
			winner = v
		}
		// Equal on both keys keeps the earlier candidate (insertion order).
	}
	return winner.pos, true
}

func (p *placer) tieEpsilon() float64 { return 1e-7 }

// candidates generates reference-point positions worth testing: the
// inner-fit corners, the vertices and discretized edges of every
// spacing-offset NFP piece, and grid positions inside admissible holes.
func (p *placer) candidates(st *sheetState, inst *partInstance, rot float64, fit geometry.Rect, rp *geometry.Polygon) []geometry.Point {
	var out []geometry.Point
	seen := map[[2]int64]bool{}
	// Candidates outside the inner-fit rectangle are clamped onto it
	// rather than discarded: a touch position that sticks out only a
	// little often has a valid counterpart on the fit boundary, and
	// exact validation rejects the rest.
	add := func(pt geometry.Point) {
		pt.X = math.Min(math.Max(pt.X, fit.Min.X), fit.Max.X)
		pt.Y = math.Min(math.Max(pt.Y, fit.Min.Y), fit.Max.Y)
		key := [2]int64{int64(math.Round(pt.X * 1e6)), int64(math.Round(pt.Y * 1e6))}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, pt)
	}

	add(fit.Min)
	add(geometry.Point{X: fit.Max.X, Y: fit.Min.Y})
	add(geometry.Point{X: fit.Min.X, Y: fit.Max.Y})
	add(fit.Max)

	step := p.cfg.CandidateStep
	for _, q := range st.placed {
		res := p.calc.Outer(q.inst.poly, q.inst.sig, q.rotation, inst.poly, inst.sig, rot)
		if res.Blocked {
			// Conservative full-plane block: nothing near this part.
			return nil
		}
		for _, piece := range res.Pieces {
			offset := geometry.OffsetConvex(piece, p.sheet.Spacing)
			n := len(offset)
			for i, v := range offset {
				add(v.Add(q.pos))
				// Discretize the edge to the next vertex.
				w := offset[(i+1)%n]
				length := v.Dist(w)
				if step > 0 && length > step {
					segs := int(length / step)
					for s := 1; s <= segs; s++ {
						t := float64(s) / float64(segs+1)
						add(geometry.Point{
							X: v.X + (w.X-v.X)*t + q.pos.X,
							Y: v.Y + (w.Y-v.Y)*t + q.pos.Y,
						})
					}
				}
			}
		}
		rpb := rp.BoundingBox()
		for _, hole := range res.HoleFits {
			hb := hole.BoundingBox()
			minX := hb.Min.X - rpb.Min.X + p.sheet.Spacing
			maxX := hb.Max.X - rpb.Max.X - p.sheet.Spacing
			minY := hb.Min.Y - rpb.Min.Y + p.sheet.Spacing
			maxY := hb.Max.Y - rpb.Max.Y - p.sheet.Spacing
			if minX > maxX || minY > maxY {
				continue
			}
			for x := minX; x <= maxX+geometry.Epsilon; x += gridStep(step, maxX-minX) {
				for y := minY; y <= maxY+geometry.Epsilon; y += gridStep(step, maxY-minY) {
					add(geometry.Point{X: x + q.pos.X, Y: y + q.pos.Y})
				}
			}
		}
	}
	return out
}

func gridStep(step, span float64) float64 {
	if step <= 0 || step > span {
		if span <= 0 {
			return 1
		}
		return span + 1
	}
	return step
}

// validate performs the exact geometric check for one candidate: the
// moved polygon must keep at least the spacing margin to every placed
// polygon, or sit entirely inside one of their holes with that margin.
func (p *placer) validate(st *sheetState, rp *geometry.Polygon, pos geometry.Point) bool {
	moved := rp.Translated(pos.X, pos.Y)
	for _, q := range st.placed {
		if geometry.Overlaps(moved, q.poly) {
			return false
		}
		if p.sheet.Spacing > 0 && geometry.Clearance(moved, q.poly) < p.sheet.Spacing-1e-6 {
			return false
		}
	}
	return true
}
