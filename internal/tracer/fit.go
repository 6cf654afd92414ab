package tracer

import "math"

// pathSegment is one emitted piece of an SVG path.
type pathSegment struct {
	kind byte // 'L' or 'Q'
	ctrl point
	end  point
}

// fitContour converts a closed lattice loop into line and quadratic
// segments. Each span first tries a straight fit within lineTol; if
// that misses, a quadratic within curveTol; otherwise the span splits
// at the worst point and both halves are fitted again.
func fitContour(pts []point, lineTol, curveTol float64) []pathSegment {
	if len(pts) < 2 {
		return nil
	}
	ring := append(append([]point(nil), pts...), pts[0])
	var segs []pathSegment
	fitSpan(ring, 0, len(ring)-1, lineTol, curveTol, &segs)
	return segs
}

func fitSpan(pts []point, start, end int, lineTol, curveTol float64, out *[]pathSegment) {
	if end-start <= 1 {
		*out = append(*out, pathSegment{kind: 'L', end: pts[end]})
		return
	}

	worst, worstDist := start, 0.0
	for i := start + 1; i < end; i++ {
		d := pointLineDistance(pts[i], pts[start], pts[end])
		if d > worstDist {
			worst, worstDist = i, d
		}
	}
	if worstDist <= lineTol {
		*out = append(*out, pathSegment{kind: 'L', end: pts[end]})
		return
	}

	// Quadratic through the worst point: control chosen so the curve
	// interpolates it at its parameter position.
	t := float64(worst-start) / float64(end-start)
	if ctrl, ok := quadControl(pts[start], pts[worst], pts[end], t); ok {
		if quadError(pts, start, end, ctrl) <= curveTol {
			*out = append(*out, pathSegment{kind: 'Q', ctrl: ctrl, end: pts[end]})
			return
		}
	}

	fitSpan(pts, start, worst, lineTol, curveTol, out)
	fitSpan(pts, worst, end, lineTol, curveTol, out)
}

func pointLineDistance(p, a, b point) float64 {
	dx, dy := b.x-a.x, b.y-a.y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.x-a.x, p.y-a.y)
	}
	return math.Abs(dy*p.x-dx*p.y+b.x*a.y-b.y*a.x) / length
}

// quadControl solves B(t) = mid for the control point of a quadratic
// from a to b. Degenerate at the endpoints.
func quadControl(a, mid, b point, t float64) (point, bool) {
	denom := 2 * t * (1 - t)
	if denom < 1e-9 {
		return point{}, false
	}
	omt := 1 - t
	return point{
		x: (mid.x - omt*omt*a.x - t*t*b.x) / denom,
		y: (mid.y - omt*omt*a.y - t*t*b.y) / denom,
	}, true
}

func quadError(pts []point, start, end int, ctrl point) float64 {
	a, b := pts[start], pts[end]
	worst := 0.0
	for i := start + 1; i < end; i++ {
		t := float64(i-start) / float64(end-start)
		omt := 1 - t
		qx := omt*omt*a.x + 2*omt*t*ctrl.x + t*t*b.x
		qy := omt*omt*a.y + 2*omt*t*ctrl.y + t*t*b.y
		if d := math.Hypot(pts[i].x-qx, pts[i].y-qy); d > worst {
			worst = d
		}
	}
	return worst
}
